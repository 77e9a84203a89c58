package commands

import (
	"net/http"
	"time"

	"github.com/wolfeidau/cybaware/internal/auth"
)

type Globals struct {
	Dev     bool
	Version string
}

// TokenFlags configure the bearer token codec. Every instance serving the same users must
// share them.
type TokenFlags struct {
	SigningKey string        `help:"HS256 signing key, at least 32 bytes" env:"CYBAWARE_TOKEN_SIGNING_KEY" required:""`
	Issuer     string        `help:"token issuer" default:"cybaware" env:"CYBAWARE_TOKEN_ISSUER"`
	Audience   string        `help:"token audience" default:"cybaware-api" env:"CYBAWARE_TOKEN_AUDIENCE"`
	TTL        time.Duration `help:"default token lifetime" default:"60m" env:"CYBAWARE_TOKEN_TTL"`
	Leeway     time.Duration `help:"allowed clock skew" default:"10s" env:"CYBAWARE_TOKEN_LEEWAY"`
}

func (f TokenFlags) codec() (*auth.TokenCodec, error) {
	return auth.NewTokenCodec(auth.TokenConfig{
		SigningKey: []byte(f.SigningKey),
		Issuer:     f.Issuer,
		Audience:   f.Audience,
		TTL:        f.TTL,
		Leeway:     f.Leeway,
	})
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}
