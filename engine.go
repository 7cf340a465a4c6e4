package membership

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Engine orchestrates the credential lifecycle: registration,
// activation, forgotten password flow, remember me login, and group
// checks. It is stateless between calls; all durable state lives in the
// RepositoryManager, which is the serialization point for concurrent
// operations on the same user.
type Engine struct {
	repo     RepositoryManager
	config   Config
	hasher   PasswordHasher
	tokens   TokenGenerator
	logger   Logger
	activity ActivitySink
}

// NewEngine returns an Engine backed by repo and configured by config.
func NewEngine(repo RepositoryManager, config Config) *Engine {
	return &Engine{
		repo:     repo,
		config:   config,
		hasher:   BcryptHasher{},
		tokens:   RandomTokenGenerator{},
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (e *Engine) WithLogger(logger Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithPasswordHasher overrides the bcrypt default, e.g. to change cost.
func (e *Engine) WithPasswordHasher(hasher PasswordHasher) *Engine {
	if hasher != nil {
		e.hasher = hasher
	}
	return e
}

// WithTokenGenerator overrides code generation. Implementations must be
// cryptographically secure.
func (e *Engine) WithTokenGenerator(tokens TokenGenerator) *Engine {
	if tokens != nil {
		e.tokens = tokens
	}
	return e
}

// WithActivitySink configures an ActivitySink for emitting audit events.
func (e *Engine) WithActivitySink(sink ActivitySink) *Engine {
	e.activity = normalizeActivitySink(sink)
	return e
}

// Logout clears the user's forgotten password and remember codes,
// removes identity keys from the session, deletes the remember cookie,
// and destroys and regenerates the session identifier. Port failures
// are logged, not returned; only store failures propagate.
func (e *Engine) Logout(ctx context.Context, session SessionPort, cookies CookiePort, identity string) error {
	session = normalizeSession(session)
	cookies = normalizeCookies(cookies)

	err := e.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := e.repo.Users().GetByIdentifierTx(ctx, tx, identity)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return nil
			}
			return wrapRepoErr(err, "failed to resolve user during logout")
		}

		// Codes are keyed by user ID, never by the identity string, so a
		// concurrent identity mutation cannot strand a stale token.
		if user.ForgottenPasswordCode != nil {
			if err := e.repo.Users().ClearForgottenPasswordTx(ctx, tx, user.ID, *user.ForgottenPasswordCode); err != nil {
				return wrapRepoErr(err, "failed to clear forgotten password code during logout")
			}
		}

		if err := e.repo.Users().ClearRememberCodeTx(ctx, tx, user.ID); err != nil {
			return wrapRepoErr(err, "failed to clear remember code during logout")
		}

		e.recordActivity(ctx, ActivityEventLogout, user.ID.String(), map[string]any{
			"identity": identity,
		})

		return nil
	})

	if err != nil {
		return err
	}

	if rerr := session.Remove("identity", "id", "user_id"); rerr != nil {
		e.logger.Error("Logout failed to remove session keys: %v", rerr)
	}

	cookies.Delete(e.config.GetRememberCookieName())

	if derr := session.Destroy(); derr != nil {
		e.logger.Error("Logout failed to destroy session: %v", derr)
	}

	if rerr := session.RegenerateID(); rerr != nil {
		e.logger.Error("Logout failed to regenerate session id: %v", rerr)
	}

	return nil
}

// IsInGroup reports whether the user belongs to the group. Pure read;
// unknown users are simply not members.
func (e *Engine) IsInGroup(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	ok, err := e.repo.Groups().IsMember(ctx, groupID, userID)
	if err != nil {
		return false, wrapRepoErr(err, "failed to check group membership")
	}
	return ok, nil
}

// IsAdmin reports whether the user belongs to the configured admin group.
func (e *Engine) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	return e.IsInGroup(ctx, e.config.GetAdminGroup(), userID)
}

func (e *Engine) recordActivity(ctx context.Context, eventType ActivityEventType, userID string, metadata map[string]any) {
	event := ActivityEvent{
		EventType: eventType,
		Actor: ActorRef{
			ID:   userID,
			Type: "user",
		},
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(e.activity).Record(ctx, event); err != nil {
		e.logger.Error("activity sink error for %s: %v", eventType, err)
	}
}
