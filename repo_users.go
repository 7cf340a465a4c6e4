package membership

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Guarded single statement updates. Every conditional write on security
// codes matches on the current code value so read-check-write sequences
// stay atomic per user row under concurrent callers.

var ActivateUserSQL = `UPDATE "users" AS "usr"
SET
	"active" = TRUE,
	"activation_code" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."id" = ?
AND "usr"."activation_code" = ?
RETURNING *;`

var DeactivateUserSQL = `UPDATE "users" AS "usr"
SET
	"active" = FALSE,
	"activation_code" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."id" = ?
RETURNING *;`

var SetForgottenPasswordSQL = `UPDATE "users" AS "usr"
SET
	"forgotten_password_code" = ?,
	"forgotten_password_set_at" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."id" = ?
RETURNING *;`

var ClearForgottenPasswordSQL = `UPDATE "users" AS "usr"
SET
	"forgotten_password_code" = NULL,
	"forgotten_password_set_at" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."id" = ?
AND "usr"."forgotten_password_code" = ?
RETURNING *;`

var SetRememberCodeSQL = `UPDATE "users" AS "usr"
SET
	"remember_code" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."id" = ?
RETURNING *;`

var ClearRememberCodeSQL = `UPDATE "users" AS "usr"
SET
	"remember_code" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."id" = ?
RETURNING *;`

var ResetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"forgotten_password_code" = NULL,
	"forgotten_password_set_at" = NULL
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."id" = ?
RETURNING *;`

type Users interface {
	repository.Repository[*User]

	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	GetByForgottenPasswordCode(ctx context.Context, code string) (*User, error)
	GetByForgottenPasswordCodeTx(ctx context.Context, tx bun.IDB, code string) (*User, error)
	GetByRememberCode(ctx context.Context, code string) (*User, error)
	GetByRememberCodeTx(ctx context.Context, tx bun.IDB, code string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	Activate(ctx context.Context, id uuid.UUID, code string) (*User, error)
	ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID, activationCode string) (*User, error)
	DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, activationCode string) (*User, error)

	SetForgottenPassword(ctx context.Context, id uuid.UUID, code string, at time.Time) (*User, error)
	SetForgottenPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, at time.Time) (*User, error)
	ClearForgottenPassword(ctx context.Context, id uuid.UUID, code string) error
	ClearForgottenPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) error

	SetRememberCode(ctx context.Context, id uuid.UUID, code string) (*User, error)
	SetRememberCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) (*User, error)
	ClearRememberCode(ctx context.Context, id uuid.UUID) error
	ClearRememberCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "identity"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.getByColumnTx(ctx, tx, "identity", strings.TrimSpace(identifier), criteria...)
}

func (a *users) GetByForgottenPasswordCode(ctx context.Context, code string) (*User, error) {
	return a.GetByForgottenPasswordCodeTx(ctx, a.db, code)
}

func (a *users) GetByForgottenPasswordCodeTx(ctx context.Context, tx bun.IDB, code string) (*User, error) {
	return a.getByColumnTx(ctx, tx, "forgotten_password_code", code)
}

func (a *users) GetByRememberCode(ctx context.Context, code string) (*User, error) {
	return a.GetByRememberCodeTx(ctx, a.db, code)
}

func (a *users) GetByRememberCodeTx(ctx context.Context, tx bun.IDB, code string) (*User, error) {
	return a.getByColumnTx(ctx, tx, "remember_code", code)
}

func (a *users) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string, criteria ...repository.SelectCriteria) (*User, error) {
	if value == "" {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"column": column,
			})
	}

	record := &User{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"column": column,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Activate(ctx context.Context, id uuid.UUID, code string) (*User, error) {
	return a.ActivateTx(ctx, a.db, id, code)
}

func (a *users) ActivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) (*User, error) {
	return a.guardedUpdateTx(ctx, tx, ActivateUserSQL, id.String(), code)
}

func (a *users) Deactivate(ctx context.Context, id uuid.UUID, activationCode string) (*User, error) {
	return a.DeactivateTx(ctx, a.db, id, activationCode)
}

func (a *users) DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, activationCode string) (*User, error) {
	return a.guardedUpdateTx(ctx, tx, DeactivateUserSQL, activationCode, id.String())
}

func (a *users) SetForgottenPassword(ctx context.Context, id uuid.UUID, code string, at time.Time) (*User, error) {
	return a.SetForgottenPasswordTx(ctx, a.db, id, code, at)
}

func (a *users) SetForgottenPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, at time.Time) (*User, error) {
	return a.guardedUpdateTx(ctx, tx, SetForgottenPasswordSQL, code, at, id.String())
}

// ClearForgottenPasswordTx nulls the code and its timestamp together,
// but only while the row still holds the given code. A concurrent call
// that already consumed or superseded the code makes this a no-op.
func (a *users) ClearForgottenPassword(ctx context.Context, id uuid.UUID, code string) error {
	return a.ClearForgottenPasswordTx(ctx, a.db, id, code)
}

func (a *users) ClearForgottenPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) error {
	_, err := a.Repository.RawTx(ctx, tx, ClearForgottenPasswordSQL, id.String(), code)
	if err != nil && repository.IsRecordNotFound(err) {
		return nil
	}
	return err
}

func (a *users) SetRememberCode(ctx context.Context, id uuid.UUID, code string) (*User, error) {
	return a.SetRememberCodeTx(ctx, a.db, id, code)
}

func (a *users) SetRememberCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string) (*User, error) {
	return a.guardedUpdateTx(ctx, tx, SetRememberCodeSQL, code, id.String())
}

func (a *users) ClearRememberCode(ctx context.Context, id uuid.UUID) error {
	return a.ClearRememberCodeTx(ctx, a.db, id)
}

func (a *users) ClearRememberCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := a.Repository.RawTx(ctx, tx, ClearRememberCodeSQL, id.String())
	if err != nil && repository.IsRecordNotFound(err) {
		return nil
	}
	return err
}

func (a *users) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ResetPasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ResetUserPasswordSQL, passwordHash, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	lastLoginAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"last_login_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, lastLoginAt, user.ID).Exec(ctx)

	return err
}

func (a *users) guardedUpdateTx(ctx context.Context, tx bun.IDB, sql string, args ...any) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, sql, args...)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"update": "no row matched guard",
			})
	}

	return res[0], nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Identity = strings.TrimSpace(record.Identity)
}
