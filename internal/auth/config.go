package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinSigningKeyLength is the shortest accepted HMAC signing key, in bytes.
const MinSigningKeyLength = 32

// TokenConfig configures the TokenCodec. It is built once at startup and never changed.
type TokenConfig struct {
	// SigningKey is the HS256 secret shared by every instance.
	SigningKey []byte

	// Issuer and Audience are written to, and required on, every token.
	Issuer   string
	Audience string

	// TTL is the default token lifetime.
	// Default: 60 minutes
	TTL time.Duration

	// Leeway is the clock skew allowed when checking exp, nbf and iat.
	// Default: 10 seconds
	Leeway time.Duration
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *TokenConfig) ApplyDefaults() {
	if c.TTL == 0 {
		c.TTL = 60 * time.Minute
	}
	if c.Leeway == 0 {
		c.Leeway = 10 * time.Second
	}
}

// Validate checks that the configuration is valid.
func (c *TokenConfig) Validate() error {
	if len(c.SigningKey) < MinSigningKeyLength {
		return fmt.Errorf("token signing key must be at least %d bytes", MinSigningKeyLength)
	}
	if c.Issuer == "" {
		return errors.New("token issuer is required")
	}
	if c.Audience == "" {
		return errors.New("token audience is required")
	}
	if c.TTL < 0 || c.Leeway < 0 {
		return errors.New("token ttl and leeway must not be negative")
	}
	return nil
}

// TenantConfig configures the TenantResolver.
type TenantConfig struct {
	// BaseDomain is the apex domain organizations are served under, e.g. "cybaware.nl".
	// Empty disables subdomain resolution.
	BaseDomain string
}

// ApplyDefaults normalises BaseDomain.
func (c *TenantConfig) ApplyDefaults() {
	c.BaseDomain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(c.BaseDomain)), ".")
	c.BaseDomain = strings.TrimPrefix(c.BaseDomain, ".")
}

// Validate checks that the configuration is valid.
func (c *TenantConfig) Validate() error {
	if strings.ContainsAny(c.BaseDomain, ":/ ") {
		return fmt.Errorf("base domain %q must be a bare host name", c.BaseDomain)
	}
	return nil
}
