package membership

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// LoginResult is returned by Login. RememberToken is empty unless the
// caller asked to be remembered.
type LoginResult struct {
	User          *User
	RememberToken string
}

// Login verifies a password credential and establishes the caller's
// session. Unknown identities, wrong passwords, and inactive accounts
// all fail with ErrInvalidCredentials so the response does not leak
// which of them was the case. When remember is true a fresh remember
// token is issued, superseding any previous one.
func (e *Engine) Login(ctx context.Context, session SessionPort, identity, password string, remember bool) (*LoginResult, error) {
	session = normalizeSession(session)

	user, err := e.repo.Users().GetByIdentifier(ctx, identity)
	if err != nil {
		if goerrors.IsNotFound(err) {
			e.recordActivity(ctx, ActivityEventLoginFailure, "", map[string]any{
				"identity": identity,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, wrapRepoErr(err, "failed to retrieve user during login")
	}

	if !user.Active {
		e.recordActivity(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{
			"identity": identity,
			"inactive": true,
		})
		return nil, ErrInvalidCredentials
	}

	if err := e.hasher.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		e.recordActivity(ctx, ActivityEventLoginFailure, user.ID.String(), map[string]any{
			"identity": identity,
		})
		return nil, ErrInvalidCredentials
	}

	result := &LoginResult{User: user}

	err = e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := e.repo.Users().TrackSuccessfulLoginTx(ctx, tx, user); err != nil {
			return wrapRepoErr(err, "failed to track login")
		}

		if !remember {
			return nil
		}

		code, err := e.tokens.Generate()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate remember token")
		}

		if _, err := e.repo.Users().SetRememberCodeTx(ctx, tx, user.ID, code); err != nil {
			return wrapRepoErr(err, "failed to store remember token")
		}

		result.RememberToken = code
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "login transaction failed")
	}

	if serr := session.RegenerateID(); serr != nil {
		e.logger.Error("Login failed to regenerate session id: %v", serr)
	}

	if serr := session.SetAuthenticated(user.ID.String()); serr != nil {
		return nil, goerrors.Wrap(serr, goerrors.CategoryOperation, "session port rejected login")
	}

	e.recordActivity(ctx, ActivityEventLoginSuccess, user.ID.String(), map[string]any{
		"identity": identity,
		"remember": remember,
	})

	return result, nil
}
