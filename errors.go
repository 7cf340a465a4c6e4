package membership

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes give callers stable identifiers to translate into user
// facing messages without string matching.
const (
	TextCodeDuplicateIdentity    = "DUPLICATE_IDENTITY"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeInvalidCode          = "INVALID_CODE"
	TextCodeCodeExpired          = "CODE_EXPIRED"
	TextCodeInvalidToken         = "INVALID_TOKEN"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeNotificationDispatch = "NOTIFICATION_DISPATCH_FAILED"
)

// ErrDuplicateIdentity is returned by Register when the identity is taken.
var ErrDuplicateIdentity = goerrors.New("identity already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity)

// ErrUserNotFound is returned when no active user matches a lookup.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrInvalidCode is returned for unknown, mismatched, or already consumed
// activation and forgotten password codes.
var ErrInvalidCode = goerrors.New("invalid or consumed code", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidCode)

// ErrCodeExpired is returned when a forgotten password code is past the
// configured expiration window. The code is invalidated before this is
// returned, so a retry with the same code yields ErrInvalidCode.
var ErrCodeExpired = goerrors.New("code expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeCodeExpired)

// ErrInvalidToken is returned when no user holds the presented remember
// token.
var ErrInvalidToken = goerrors.New("invalid remember token", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidToken)

// ErrInvalidCredentials is returned by Login for unknown identities,
// wrong passwords, and inactive accounts alike.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials)

// ErrNotificationDispatch wraps a NotificationPort failure. Record
// creation is never undone because of it.
var ErrNotificationDispatch = goerrors.New("notification dispatch failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotificationDispatch)

// ErrNoEmptyString guards hash inputs.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryValidation)

// ErrMismatchedHashAndPassword is returned when a password does not
// verify against the stored hash.
var ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth)

// IsDuplicateIdentity reports whether err carries the duplicate identity
// text code.
func IsDuplicateIdentity(err error) bool {
	return hasTextCode(err, TextCodeDuplicateIdentity)
}

// IsCodeExpired reports whether err carries the expiration text code.
func IsCodeExpired(err error) bool {
	return hasTextCode(err, TextCodeCodeExpired)
}

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

func wrapRepoErr(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}
