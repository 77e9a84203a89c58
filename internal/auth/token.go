package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification errors. Callers that only care about "invalid" can test for any of
// them; ErrTokenExpired is the one worth telling the client about.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenClaimsMismatch   = errors.New("token issuer or audience mismatch")
	ErrTokenNotYetValid      = errors.New("token not yet valid")
)

// Claims are the verified contents of a token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// IssueOption configures a single Issue call.
type IssueOption func(*issueOptions)

type issueOptions struct {
	ttl *time.Duration
}

// WithTTL overrides the configured lifetime. Zero issues a token that expires immediately.
func WithTTL(ttl time.Duration) IssueOption {
	return func(o *issueOptions) {
		o.ttl = &ttl
	}
}

// TokenCodec issues and verifies HS256 identity tokens. It holds no mutable state and is
// safe for concurrent use.
type TokenCodec struct {
	cfg    TokenConfig
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec validates cfg and returns a codec bound to its signing key.
func NewTokenCodec(cfg TokenConfig, opts ...CodecOption) (*TokenCodec, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &TokenCodec{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)

	return c, nil
}

// TTL is the lifetime of tokens issued without WithTTL.
func (c *TokenCodec) TTL() time.Duration { return c.cfg.TTL }

// Issue signs a token whose subject is principalID.
func (c *TokenCodec) Issue(principalID int64, opts ...IssueOption) (string, error) {
	o := issueOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	ttl := c.cfg.TTL
	if o.ttl != nil {
		ttl = *o.ttl
	}
	if ttl < 0 {
		return "", fmt.Errorf("token ttl must not be negative")
	}

	now := c.now()
	claims := &jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(principalID, 10),
		Issuer:    c.cfg.Issuer,
		Audience:  jwt.ClaimStrings{c.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature, issuer, audience and time claims of token.
// The returned error wraps one of the ErrToken* sentinels together with the parser error.
func (c *TokenCodec) Verify(token string) (*Claims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.cfg.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", classifyTokenError(err), err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenMalformed)
	}

	return &Claims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// classifyTokenError maps a jwt parser error to a TokenCodec sentinel. Signature problems
// are reported before claim problems because the parser only checks claims on tokens whose
// signature verified.
func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrTokenNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenClaimsMismatch
	default:
		return ErrTokenMalformed
	}
}

// tokenErrorCode is the metric and log label for a Verify error.
func tokenErrorCode(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenClaimsMismatch):
		return "claims_mismatch"
	case errors.Is(err, ErrTokenNotYetValid):
		return "not_yet_valid"
	default:
		return "malformed"
	}
}
