package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/admin"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/config"
	"stealthcompany.com/archaeoseeker/internal/couchbase"
	"stealthcompany.com/archaeoseeker/internal/docstore"
	"stealthcompany.com/archaeoseeker/internal/loginlimit"
)

// Store combines the document store and its lock
type Store interface {
	docstore.Store
	docstore.Locker
}

// Services are the shared components built from the configuration
type Services struct {
	Config    config.Config
	Store     Store
	Catalog   *catalog.Service
	Dashboard *admin.Dashboard
	Limiter   *loginlimit.Limiter
	Proxies   loginlimit.TrustedProxies
	Auth      *auth.Service

	closers []func() error
}

// NewServices connects the configured backends. Close releases them.
func NewServices(ctx context.Context, cfg config.Config) (*Services, error) {
	sm := &Services{Config: cfg}

	proxies, err := loginlimit.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	sm.Proxies = proxies

	if err := sm.openStore(); err != nil {
		sm.Close()
		return nil, err
	}
	storage, err := sm.openLimiterStorage(ctx)
	if err != nil {
		sm.Close()
		return nil, err
	}
	authenticator, err := newAuthenticator(cfg)
	if err != nil {
		sm.Close()
		return nil, err
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn().Msg("JWT_SECRET not set, using a random secret; sessions end on restart")
		secret = uuid.NewString() + uuid.NewString()
	}

	sm.Catalog = catalog.NewService(sm.Store)
	sm.Dashboard = admin.NewDashboard(sm.Catalog, sm.Store)
	sm.Limiter = loginlimit.New(storage)
	sm.Auth = auth.NewService(authenticator, auth.NewTokenManager(secret, auth.TokenExpiry))

	log.Info().
		Str("store", cfg.StoreBackend).
		Str("limiter", cfg.LimiterBackend).
		Bool("keycloak", cfg.Keycloak.URL != "").
		Int("trusted_proxies", len(proxies)).
		Msg("Services initialized")
	return sm, nil
}

func (sm *Services) openStore() error {
	switch sm.Config.StoreBackend {
	case config.BackendMemory, "":
		log.Warn().Msg("Using in-memory document store; data is lost on exit")
		sm.Store = docstore.NewMemory()
	case config.BackendCouchbase:
		client, err := couchbase.NewClient(sm.Config.Couchbase)
		if err != nil {
			return fmt.Errorf("failed to connect to Couchbase: %w", err)
		}
		sm.Store = client
		sm.closers = append(sm.closers, client.Close)
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", sm.Config.StoreBackend)
	}
	return nil
}

func (sm *Services) openLimiterStorage(ctx context.Context) (loginlimit.Storage, error) {
	switch sm.Config.LimiterBackend {
	case config.BackendMemory, "":
		return loginlimit.NewMemoryStorage(), nil
	case config.BackendSQLite:
		storage, err := loginlimit.OpenSQLite(sm.Config.LimiterSQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open limiter database: %w", err)
		}
		sm.closers = append(sm.closers, storage.Close)
		return storage, nil
	case config.BackendRedis:
		storage, err := loginlimit.NewRedisStorage(ctx, sm.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		sm.closers = append(sm.closers, storage.Close)
		return storage, nil
	default:
		return nil, fmt.Errorf("unknown LIMITER_BACKEND %q", sm.Config.LimiterBackend)
	}
}

func newAuthenticator(cfg config.Config) (auth.Authenticator, error) {
	if cfg.Keycloak.URL != "" {
		return auth.NewKeycloakAuthenticator(cfg.Keycloak.URL, cfg.Keycloak.Realm, cfg.Keycloak.ClientID, cfg.Keycloak.ClientSecret)
	}
	if cfg.AdminEmail == "" && cfg.AdminPasswordHash == "" {
		log.Warn().Msg("No administrator configured; admin sign-in is disabled")
		return noAdmin{}, nil
	}
	return auth.NewLocalAuthenticator(cfg.AdminEmail, cfg.AdminPasswordHash)
}

// noAdmin rejects every sign-in
type noAdmin struct{}

func (noAdmin) SignIn(ctx context.Context, email, password string) (*auth.User, error) {
	return nil, auth.ErrInvalidCredentials
}

// Close releases the backends in reverse order of opening
func (sm *Services) Close() error {
	var errs []error
	for i := len(sm.closers) - 1; i >= 0; i-- {
		if err := sm.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	sm.closers = nil
	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Msg("Failed to close services")
		return err
	}
	return nil
}
