package membership

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// FiberSessionConfig configures the cookie backed session adapter.
type FiberSessionConfig struct {
	// CookieName holds the signed session token. Defaults to "session".
	CookieName string
	SigningKey []byte
	// TTL bounds the session token lifetime. Defaults to 24h.
	TTL    time.Duration
	Issuer string
}

func (c FiberSessionConfig) cookieName() string {
	if c.CookieName == "" {
		return "session"
	}
	return c.CookieName
}

func (c FiberSessionConfig) ttl() time.Duration {
	if c.TTL <= 0 {
		return 24 * time.Hour
	}
	return c.TTL
}

// FiberSession implements SessionPort on top of a fiber request context.
// Session state is an HS256 signed token in a cookie; RegenerateID
// re-mints the token with a fresh jti so a fixed pre-login identifier
// never survives authentication.
type FiberSession struct {
	ctx    *fiber.Ctx
	cfg    FiberSessionConfig
	logger Logger
}

var _ SessionPort = (*FiberSession)(nil)

// NewFiberSession wraps a single request context. Create one per
// request and discard it afterwards.
func NewFiberSession(ctx *fiber.Ctx, cfg FiberSessionConfig) *FiberSession {
	return &FiberSession{
		ctx:    ctx,
		cfg:    cfg,
		logger: defLogger{},
	}
}

func (s *FiberSession) WithLogger(logger Logger) *FiberSession {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// UserID returns the authenticated user from the session cookie, or
// empty when the session is anonymous or the token does not verify.
func (s *FiberSession) UserID() string {
	claims, err := s.current()
	if err != nil {
		return ""
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

func (s *FiberSession) SetAuthenticated(userID string) error {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(s.cfg.ttl())),
		"jti": uuid.NewString(),
		"dat": map[string]any{
			"user_id": userID,
		},
	}

	if s.cfg.Issuer != "" {
		claims["iss"] = s.cfg.Issuer
	}

	return s.write(claims)
}

func (s *FiberSession) Destroy() error {
	s.ctx.Cookie(&fiber.Cookie{
		Name:     s.cfg.cookieName(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
	return nil
}

func (s *FiberSession) RegenerateID() error {
	claims, err := s.current()
	if err != nil {
		// Anonymous session: nothing to carry over.
		return nil
	}

	claims["jti"] = uuid.NewString()
	claims["iat"] = jwt.NewNumericDate(time.Now())

	return s.write(claims)
}

func (s *FiberSession) Remove(keys ...string) error {
	claims, err := s.current()
	if err != nil {
		return nil
	}

	dat, ok := claims["dat"].(map[string]any)
	if !ok {
		return nil
	}

	for _, key := range keys {
		delete(dat, key)
	}
	claims["dat"] = dat

	return s.write(claims)
}

func (s *FiberSession) current() (jwt.MapClaims, error) {
	raw := s.ctx.Cookies(s.cfg.cookieName())
	if raw == "" {
		return nil, goerrors.New("no session cookie present", goerrors.CategoryAuth)
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.cfg.SigningKey, nil
	})

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "unable to decode session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, goerrors.New("unable to map session claims", goerrors.CategoryAuth)
	}

	return claims, nil
}

func (s *FiberSession) write(claims jwt.MapClaims) error {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.cfg.SigningKey)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	s.ctx.Cookie(&fiber.Cookie{
		Name:     s.cfg.cookieName(),
		Value:    signed,
		Expires:  time.Now().Add(s.cfg.ttl()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	return nil
}
