package membership

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IssueRememberToken generates and stores a fresh remember code,
// superseding any previous one. Holding a single active remember token
// per user means logging in again invalidates prior remembered
// sessions; that is a deliberate security property.
func (e *Engine) IssueRememberToken(ctx context.Context, userID uuid.UUID) (string, error) {
	code, err := e.tokens.Generate()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate remember token")
	}

	if _, err := e.repo.Users().SetRememberCode(ctx, userID, code); err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrUserNotFound
		}
		return "", wrapRepoErr(err, "failed to store remember token")
	}

	return code, nil
}

// LoginRememberedUser resolves the user holding the exact remember
// token and marks the caller's session as authenticated. The token is
// validated as-is and deliberately not rotated on use; callers that
// want rotation call IssueRememberToken after a successful login.
func (e *Engine) LoginRememberedUser(ctx context.Context, session SessionPort, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	session = normalizeSession(session)
	user := &User{}

	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = e.repo.Users().GetByRememberCodeTx(ctx, tx, token)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrInvalidToken
			}
			return wrapRepoErr(err, "failed to resolve remember token")
		}

		if err := e.repo.Users().TrackSuccessfulLoginTx(ctx, tx, user); err != nil {
			return wrapRepoErr(err, "failed to track remembered login")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to login remembered user")
	}

	if serr := session.SetAuthenticated(user.ID.String()); serr != nil {
		return nil, goerrors.Wrap(serr, goerrors.CategoryOperation, "session port rejected remembered login")
	}

	e.recordActivity(ctx, ActivityEventRememberLogin, user.ID.String(), nil)

	return user, nil
}
