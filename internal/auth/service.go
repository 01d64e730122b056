// Package auth authenticates the single configured librarian account and
// issues session tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/platform/crypto"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrMisconfigured = errors.New("auth requires a username, a password or password hash, and a secret key")
)

// Config describes the account. Password may be plain text; it is hashed
// once at construction and never kept.
type Config struct {
	Username     string
	Password     string
	PasswordHash string
	SecretKey    string
	SessionTTL   time.Duration
}

// Revocations records logged-out token IDs until they expire.
type Revocations interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	username     string
	passwordHash string
	secret       string
	ttl          time.Duration
	revocations  Revocations
	log          *zap.Logger
}

// NewService builds the service. A nil revocations store keeps logouts in
// memory only.
func NewService(cfg Config, revocations Revocations, log *zap.Logger) (*Service, error) {
	if cfg.Username == "" || cfg.SecretKey == "" || (cfg.Password == "" && cfg.PasswordHash == "") {
		return nil, ErrMisconfigured
	}
	hash := cfg.PasswordHash
	if hash == "" {
		var err error
		if hash, err = crypto.HashPassword(cfg.Password); err != nil {
			return nil, fmt.Errorf("hash configured password: %w", err)
		}
	} else if !crypto.IsBcryptHash(hash) {
		return nil, fmt.Errorf("%w: password hash is not bcrypt", ErrMisconfigured)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if revocations == nil {
		revocations = newMemoryRevocations()
	}
	return &Service{
		username:     cfg.Username,
		passwordHash: hash,
		secret:       cfg.SecretKey,
		ttl:          ttl,
		revocations:  revocations,
		log:          log,
	}, nil
}

// Session is an issued token.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passOK := crypto.VerifyPassword(s.passwordHash, password)
	if !userOK || !passOK {
		s.log.Warn("Login failed", zap.String("username", username))
		return nil, ErrUnauthorized
	}

	token, _, err := crypto.GenerateToken(s.secret, s.username, s.ttl)
	if err != nil {
		return nil, err
	}
	s.log.Info("Login succeeded", zap.String("username", username))
	return &Session{Token: token, Username: s.username, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

// VerifyToken returns the username a valid, unrevoked token was issued to.
func (s *Service) VerifyToken(ctx context.Context, token string) (string, error) {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return "", ErrUnauthorized
	}
	if claims.Sub != s.username {
		return "", ErrUnauthorized
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return "", ErrUnauthorized
	}
	return claims.Sub, nil
}

// Logout revokes token until it would have expired anyway. Invalid tokens
// are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := crypto.ParseToken(s.secret, token)
	if err != nil {
		return nil
	}
	expiresAt := time.Now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, expiresAt); err != nil {
		s.log.Error("Failed to revoke session", zap.Error(err))
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

type memoryRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time // jti -> token expiry
}

func newMemoryRevocations() *memoryRevocations {
	return &memoryRevocations{revoked: make(map[string]time.Time)}
}

func (m *memoryRevocations) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, exp := range m.revoked {
		if now.After(exp) {
			delete(m.revoked, id)
		}
	}
	m.revoked[jti] = expiresAt
	return nil
}

func (m *memoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.revoked[jti]
	return ok && time.Now().Before(exp), nil
}
