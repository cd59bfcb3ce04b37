package orchestrator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/config"
)

func TestNewServicesMemory(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	sm, err := NewServices(ctx, config.Config{
		StoreBackend:      config.BackendMemory,
		LimiterBackend:    config.BackendSQLite,
		LimiterSQLitePath: filepath.Join(t.TempDir(), "attempts.db"),
		JWTSecret:         "test-secret",
		AdminEmail:        "admin@example.org",
		AdminPasswordHash: string(hash),
	})
	require.NoError(t, err)
	defer sm.Close()

	id, err := sm.Catalog.AddItem(ctx, catalog.Item{Name: "Hattusa", IsDisabled: catalog.Bool(false)})
	require.NoError(t, err)
	_, err = sm.Catalog.GetItem(ctx, id)
	require.NoError(t, err)

	session, err := sm.Auth.SignIn(ctx, "admin@example.org", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	require.NoError(t, sm.Limiter.RecordFailedLogin(ctx))
	assert.NotNil(t, sm.Limiter.Info(ctx))
}

func TestNewServicesWithoutAdmin(t *testing.T) {
	sm, err := NewServices(context.Background(), config.Config{})
	require.NoError(t, err)
	defer sm.Close()

	_, err = sm.Auth.SignIn(context.Background(), "anyone@example.org", "pw")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestNewServicesRejectsUnknownBackends(t *testing.T) {
	_, err := NewServices(context.Background(), config.Config{StoreBackend: "postgres"})
	assert.ErrorContains(t, err, "STORE_BACKEND")

	_, err = NewServices(context.Background(), config.Config{LimiterBackend: "etcd"})
	assert.ErrorContains(t, err, "LIMITER_BACKEND")
}

func TestNewServicesParsesTrustedProxies(t *testing.T) {
	sm, err := NewServices(context.Background(), config.Config{TrustedProxies: []string{"10.0.0.0/8"}})
	require.NoError(t, err)
	defer sm.Close()
	assert.True(t, sm.Proxies.Trusts("10.1.2.3"))

	_, err = NewServices(context.Background(), config.Config{TrustedProxies: []string{"proxy.internal"}})
	assert.ErrorContains(t, err, "TRUSTED_PROXIES")
}

func TestSignalHandlerContextCancel(t *testing.T) {
	ctx, cancel := NewSignalHandler().Context(context.Background())
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
