package membership

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries everything Register needs to create an
// account. Identity is the login handle and is immutable afterwards.
type RegisterUserMessage struct {
	Identity  string      `json:"identity"`
	Password  string      `json:"password"`
	Email     string      `json:"email"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     string      `json:"phone"`
	GroupIDs  []uuid.UUID `json:"group_ids"`
}

func (e RegisterUserMessage) Type() string { return "membership.user.register" }

// Validate checks the message before any store access.
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Identity, validation.Required, validation.Length(1, 254)),
		validation.Field(&e.Password, validation.Required),
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

// RegistrationResult is returned by Register. Activation is nil unless
// the engine requires email activation, in which case the caller hands
// it to a NotificationPort.
type RegistrationResult struct {
	UserID     uuid.UUID
	Activation *ActivationDetails
}

// Register creates a user. When activation is required the user is
// deactivated and an activation code issued inside the same transaction
// as the insert, so the caller never observes a partially activated
// state: a failure in either step rolls the whole registration back.
func (e *Engine) Register(ctx context.Context, event RegisterUserMessage) (*RegistrationResult, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration request")
	}

	user := &User{}
	result := &RegistrationResult{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := e.repo.Users().GetByIdentifierTx(ctx, tx, event.Identity); err == nil {
			return ErrDuplicateIdentity
		} else if !goerrors.IsNotFound(err) {
			return wrapRepoErr(err, "failed to check for existing identity")
		}

		hash, err := e.hasher.HashPassword(event.Password)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}

		user.Identity = event.Identity
		user.PasswordHash = hash
		user.Email = event.Email
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Phone = normalizePhone(event.Phone)
		user.Active = true

		if e.config.GetUseHashID() {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = e.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		for _, groupID := range event.GroupIDs {
			if err := e.repo.Groups().AddMemberTx(ctx, tx, groupID, user.ID); err != nil {
				return wrapRepoErr(err, "could not attach user to group")
			}
		}

		result.UserID = user.ID

		if !e.config.GetActivationRequired() {
			return nil
		}

		code, err := e.tokens.Generate()
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate activation code")
		}

		if _, err := e.repo.Users().DeactivateTx(ctx, tx, user.ID, code); err != nil {
			return wrapRepoErr(err, "failed to deactivate user pending activation")
		}

		result.Activation = &ActivationDetails{
			Identity: user.Identity,
			UserID:   user.ID.String(),
			Email:    user.Email,
			Code:     code,
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	e.recordActivity(ctx, ActivityEventUserRegistered, result.UserID.String(), map[string]any{
		"identity":            event.Identity,
		"activation_required": result.Activation != nil,
	})

	return result, nil
}

// Activate consumes an activation code. The code is single use: the
// guarded update that flips the active flag also nulls the code, so a
// second call with the same code fails with ErrInvalidCode.
func (e *Engine) Activate(ctx context.Context, userID uuid.UUID, code string) error {
	if code == "" {
		return ErrInvalidCode
	}

	_, err := e.repo.Users().Activate(ctx, userID, code)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrInvalidCode
		}
		return wrapRepoErr(err, "failed to activate user")
	}

	e.recordActivity(ctx, ActivityEventUserActivated, userID.String(), nil)

	return nil
}

// Deactivate flags the account inactive and issues a fresh activation
// code, putting the user back through the activation flow.
func (e *Engine) Deactivate(ctx context.Context, userID uuid.UUID) (*ActivationDetails, error) {
	code, err := e.tokens.Generate()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate activation code")
	}

	user, err := e.repo.Users().Deactivate(ctx, userID, code)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, wrapRepoErr(err, "failed to deactivate user")
	}

	e.recordActivity(ctx, ActivityEventUserDeactivated, userID.String(), nil)

	return &ActivationDetails{
		Identity: user.Identity,
		UserID:   user.ID.String(),
		Email:    user.Email,
		Code:     code,
	}, nil
}

// normalizePhone stores phone numbers as E164 when they parse; user
// input that phonenumbers cannot make sense of is kept verbatim rather
// than failing registration.
func normalizePhone(phone string) string {
	if phone == "" {
		return ""
	}

	num, err := phonenumbers.Parse(phone, "US")
	if err != nil {
		return phone
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
