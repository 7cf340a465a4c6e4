package membership

import (
	"time"

	"github.com/google/uuid"
)

// Config holds engine options
type Config interface {
	// GetActivationRequired gates registration behind email activation.
	GetActivationRequired() bool
	// GetForgottenPasswordExpiration bounds reset code lifetime. Zero or
	// negative disables expiry.
	GetForgottenPasswordExpiration() time.Duration
	// GetAdminGroup is the group whose membership makes IsAdmin true.
	GetAdminGroup() uuid.UUID
	// GetRememberCookieName is the cookie the caller stores remember
	// tokens in; Logout removes it.
	GetRememberCookieName() string
	// GetUseHashID derives user IDs deterministically from the email.
	GetUseHashID() bool
}

// SimpleConfig is a plain struct Config implementation.
type SimpleConfig struct {
	ActivationRequired          bool
	ForgottenPasswordExpiration time.Duration
	AdminGroup                  uuid.UUID
	RememberCookieName          string
	UseHashID                   bool
}

var _ Config = SimpleConfig{}

func (c SimpleConfig) GetActivationRequired() bool {
	return c.ActivationRequired
}

func (c SimpleConfig) GetForgottenPasswordExpiration() time.Duration {
	return c.ForgottenPasswordExpiration
}

func (c SimpleConfig) GetAdminGroup() uuid.UUID {
	return c.AdminGroup
}

func (c SimpleConfig) GetRememberCookieName() string {
	if c.RememberCookieName == "" {
		return DefaultRememberCookieName
	}
	return c.RememberCookieName
}

func (c SimpleConfig) GetUseHashID() bool {
	return c.UseHashID
}

// DefaultRememberCookieName matches the cookie the fiber adapter writes.
const DefaultRememberCookieName = "remember_code"
