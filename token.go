package membership

import (
	"crypto/rand"
	"encoding/base64"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenBytes is the entropy for generated codes. 32 bytes keeps
// codes effectively collision free within any realistic user table.
const DefaultTokenBytes = 32

// TokenGenerator produces the opaque, URL safe codes used for
// activation, forgotten password, and remember me flows. Implementations
// must use a cryptographically secure source; predictable codes defeat
// the reset and remember me model entirely.
type TokenGenerator interface {
	Generate() (string, error)
}

// RandomTokenGenerator reads from crypto/rand and encodes with raw URL
// base64 so codes can travel in links and cookies unescaped.
type RandomTokenGenerator struct {
	// Bytes of entropy per token. Zero means DefaultTokenBytes.
	Bytes int
}

var _ TokenGenerator = RandomTokenGenerator{}

func (g RandomTokenGenerator) Generate() (string, error) {
	size := g.Bytes
	if size <= 0 {
		size = DefaultTokenBytes
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes for token")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TokenGeneratorFunc adapts a function to the TokenGenerator interface.
type TokenGeneratorFunc func() (string, error)

func (f TokenGeneratorFunc) Generate() (string, error) {
	return f()
}
