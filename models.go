package membership

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record. Identity is the login handle (username
// or email depending on the deployment) and is immutable after creation.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Identity     string    `bun:"identity,notnull,unique" json:"identity,omitempty"`
	Email        string    `bun:"email,notnull" json:"email,omitempty"`
	FirstName    string    `bun:"first_name" json:"first_name,omitempty"`
	LastName     string    `bun:"last_name" json:"last_name,omitempty"`
	Phone        string    `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Active       bool      `bun:"active" json:"active"`

	// Security codes. Each is single use for its purpose: consumed or
	// superseded codes are nulled, never matched again.
	ActivationCode         *string    `bun:"activation_code,nullzero" json:"-"`
	ForgottenPasswordCode  *string    `bun:"forgotten_password_code,nullzero" json:"-"`
	ForgottenPasswordSetAt *time.Time `bun:"forgotten_password_set_at,nullzero" json:"-"`
	RememberCode           *string    `bun:"remember_code,nullzero" json:"-"`

	LastLoginAt *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt   *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	Groups []*Group `bun:"m2m:users_groups,join:User=Group" json:"groups,omitempty"`
}

// HasPendingReset reports whether the user holds an outstanding
// forgotten password code. Code and timestamp travel together.
func (u *User) HasPendingReset() bool {
	return u.ForgottenPasswordCode != nil && u.ForgottenPasswordSetAt != nil
}

// Group is a named role bucket. Membership confers whatever privilege
// the application attaches to the group; the admin group is just a
// configured group ID.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:grp"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name        string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Description string     `bun:"description" json:"description,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// GroupMembership is the users<->groups join row.
type GroupMembership struct {
	bun.BaseModel `bun:"table:users_groups,alias:ug"`

	UserID  uuid.UUID `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	User    *User     `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	GroupID uuid.UUID `bun:"group_id,pk,type:uuid" json:"group_id,omitempty"`
	Group   *Group    `bun:"rel:belongs-to,join:group_id=id" json:"group,omitempty"`
}

// RegisterModels wires the m2m join so bun can resolve User.Groups.
// Call once per bun.DB before using the repositories.
func RegisterModels(db *bun.DB) {
	db.RegisterModel((*GroupMembership)(nil))
}
