package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/cybaware/internal/models"
	"github.com/wolfeidau/cybaware/internal/store"
	"github.com/wolfeidau/cybaware/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Authentication errors. ErrInvalidToken wraps the TokenCodec error, so
// errors.Is(err, ErrTokenExpired) still works on it.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator turns a presented credential into an active user.
type Authenticator struct {
	codec  *TokenCodec
	users  store.UserStore
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator wires the token codec, user store and password hasher.
func NewAuthenticator(codec *TokenCodec, users store.UserStore, hasher PasswordHasher) (*Authenticator, error) {
	if codec == nil || users == nil || hasher == nil {
		return nil, errors.New("authenticator requires a token codec, user store and password hasher")
	}
	return &Authenticator{codec: codec, users: users, hasher: hasher}, nil
}

// Codec returns the token codec used for bearer tokens.
func (a *Authenticator) Codec() *TokenCodec { return a.codec }

// AuthenticateToken verifies token and loads its subject. Unknown and inactive users are
// both reported as ErrUnauthorized.
func (a *Authenticator) AuthenticateToken(ctx context.Context, token string) (*models.User, error) {
	logger := zerolog.Ctx(ctx)

	claims, err := a.codec.Verify(token)
	recordTokenVerification(ctx, err)
	if err != nil {
		logger.Debug().Err(err).Msg("bearer token rejected")
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		logger.Debug().Str("subject", claims.Subject).Msg("bearer token subject is not a user id")
		return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}

	user, err := a.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			logger.Debug().Int64("user_id", userID).Msg("token subject does not exist")
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.Active {
		logger.Debug().Int64("user_id", userID).Msg("token subject is inactive")
		return nil, ErrUnauthorized
	}

	return user, nil
}

// AuthenticatePassword checks an email and password pair. The email is matched exactly.
// Unknown email, wrong password and inactive user all return ErrInvalidCredentials, and
// an unknown email still pays for one hash comparison.
func (a *Authenticator) AuthenticatePassword(ctx context.Context, email, password string) (*models.User, error) {
	logger := zerolog.Ctx(ctx)

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
		a.hasher.Verify(password, a.dummy())
		recordLogin(ctx, "unknown_user")
		logger.Debug().Msg("login for unknown email")
		return nil, ErrInvalidCredentials
	}

	if !a.hasher.Verify(password, user.PasswordHash) {
		recordLogin(ctx, "bad_password")
		logger.Debug().Int64("user_id", user.UserID).Msg("login with wrong password")
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		recordLogin(ctx, "inactive")
		logger.Debug().Int64("user_id", user.UserID).Msg("login for inactive user")
		return nil, ErrInvalidCredentials
	}

	recordLogin(ctx, "ok")
	return user, nil
}

// IssueToken issues a bearer token for an authenticated user.
func (a *Authenticator) IssueToken(ctx context.Context, user *models.User) (string, error) {
	token, err := a.codec.Issue(user.UserID)
	if err != nil {
		return "", err
	}
	telemetry.GetMetrics().TokensIssuedTotal.Add(ctx, 1)
	return token, nil
}

// dummy returns a hash produced by the configured hasher, computed on first use.
func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		hash, err := a.hasher.Hash("cybaware-timing-equaliser")
		if err == nil {
			a.dummyHash = hash
		}
	})
	return a.dummyHash
}

func recordTokenVerification(ctx context.Context, err error) {
	telemetry.GetMetrics().TokenVerificationsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", tokenErrorCode(err))))
}

func recordLogin(ctx context.Context, result string) {
	telemetry.GetMetrics().LoginAttemptsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("result", result)))
}
