package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pawsen/library-org/internal/platform/crypto"
)

const testSecret = "test-secret-key-for-auth"

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{
		Username:   "librarian",
		Password:   "Passw0rd!",
		SecretKey:  testSecret,
		SessionTTL: time.Hour,
	}, nil, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestNewService_Misconfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no username", Config{Password: "x", SecretKey: "s"}},
		{"no secret", Config{Username: "u", Password: "x"}},
		{"no password", Config{Username: "u", SecretKey: "s"}},
		{"hash not bcrypt", Config{Username: "u", PasswordHash: "plain", SecretKey: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.cfg, nil, zap.NewNop())
			assert.ErrorIs(t, err, ErrMisconfigured)
		})
	}
}

func TestNewService_AcceptsHash(t *testing.T) {
	hash, err := crypto.HashPassword("Passw0rd!")
	require.NoError(t, err)

	svc, err := NewService(Config{Username: "u", PasswordHash: hash, SecretKey: testSecret}, nil, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "u", "Passw0rd!")
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Login(ctx, "librarian", "Passw0rd!")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "librarian", sess.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	_, err = svc.Login(ctx, "librarian", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, "someone", "Passw0rd!")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyToken(t *testing.T) {
	svc := newTestService(t)

	sess, err := svc.Login(context.Background(), "librarian", "Passw0rd!")
	require.NoError(t, err)

	user, err := svc.VerifyToken(context.Background(), sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "librarian", user)

	_, err = svc.VerifyToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrUnauthorized)

	other, _, err := crypto.GenerateToken(testSecret, "intruder", time.Hour)
	require.NoError(t, err)
	_, err = svc.VerifyToken(context.Background(), other)
	assert.ErrorIs(t, err, ErrUnauthorized, "token for another subject")
}

func TestLogout_RevokesToken(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, "librarian", "Passw0rd!")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "librarian", "Passw0rd!")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, first.Token))

	_, err = svc.VerifyToken(context.Background(), first.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.VerifyToken(context.Background(), second.Token)
	assert.NoError(t, err, "other sessions stay valid")

	assert.NoError(t, svc.Logout(ctx, "not-a-token"))
}
