package membership

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ForgottenPassword issues a reset code for an active user. Only one
// reset code is outstanding per user: a new issuance overwrites any
// prior unconsumed code. Inactive accounts never receive codes, which
// keeps a pending activation from being hijacked through the reset
// path.
func (e *Engine) ForgottenPassword(ctx context.Context, identity string) (*ResetDetails, error) {
	details := &ResetDetails{}

	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := e.repo.Users().GetByIdentifierTx(ctx, tx, identity)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUserNotFound
			}
			return wrapRepoErr(err, "failed to retrieve user for password reset")
		}

		if !user.Active {
			return ErrUserNotFound
		}

		code, err := e.tokens.Generate()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset code")
		}

		if _, err := e.repo.Users().SetForgottenPasswordTx(ctx, tx, user.ID, code, time.Now()); err != nil {
			return wrapRepoErr(err, "failed to store reset code")
		}

		details.Identity = user.Identity
		details.Email = user.Email
		details.Code = code

		e.recordActivity(ctx, ActivityEventPasswordResetRequest, user.ID.String(), map[string]any{
			"identity": identity,
		})

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	return details, nil
}

// ForgottenPasswordCheck resolves the user holding the code. When an
// expiration window is configured and exceeded, the code is invalidated
// in the same transaction before ErrCodeExpired is returned; a retry
// with the same code then fails with ErrInvalidCode. The clear is
// guarded on the code value, so two concurrent checks cannot both see a
// valid, unexpired code once one of them invalidates it.
func (e *Engine) ForgottenPasswordCheck(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, ErrInvalidCode
	}

	user := &User{}
	expired := false

	// The invalidation must commit even though the check fails, so the
	// expired branch records the outcome and returns nil from the
	// transaction closure.
	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = e.repo.Users().GetByForgottenPasswordCodeTx(ctx, tx, code)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidCode
			}
			return wrapRepoErr(err, "failed to resolve reset code")
		}

		window := e.config.GetForgottenPasswordExpiration()
		if window <= 0 || user.ForgottenPasswordSetAt == nil {
			return nil
		}

		if time.Since(*user.ForgottenPasswordSetAt) <= window {
			return nil
		}

		if err := e.repo.Users().ClearForgottenPasswordTx(ctx, tx, user.ID, code); err != nil {
			return wrapRepoErr(err, "failed to invalidate expired reset code")
		}

		expired = true

		e.recordActivity(ctx, ActivityEventCodeExpired, user.ID.String(), map[string]any{
			"window": window.String(),
		})

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check password reset code")
	}

	if expired {
		return nil, ErrCodeExpired
	}

	return user, nil
}

// ResetPassword stores a new password hash and clears the outstanding
// forgotten password code and its timestamp in one statement.
func (e *Engine) ResetPassword(ctx context.Context, userID uuid.UUID, newPassword string) error {
	hash, err := e.hasher.HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := e.repo.Users().ResetPasswordTx(ctx, tx, userID, hash); err != nil {
			if goerrors.IsNotFound(err) {
				return ErrUserNotFound
			}
			return wrapRepoErr(err, "failed to update user password")
		}
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	e.recordActivity(ctx, ActivityEventPasswordResetSuccess, userID.String(), nil)

	return nil
}
