package browse

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"stealthcompany.com/archaeoseeker/internal/auth"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/metrics"
)

// AttemptLogin runs signIn under the attempt limiter. The attempt is
// reserved before signIn runs, so parallel attempts from one client cannot
// all slip past the limit. Failures come back as *catalog.UserError; the
// lockout message wins over the bad credentials one, and a locked out client
// never reaches signIn.
func AttemptLogin(ctx context.Context, limiter Limiter, signIn func(ctx context.Context) error) error {
	remaining, allowed := limiter.ReserveAttempt(ctx)
	if !allowed {
		metrics.RecordLoginAttempt("locked")
		return catalog.NewUserError(MsgLockedOut, auth.ErrLockedOut)
	}

	if err := signIn(ctx); err != nil {
		log.Warn().Err(err).Int("remaining", remaining).Msg("Admin sign-in failed")
		if remaining == 0 {
			metrics.RecordLoginAttempt("locked")
			return catalog.NewUserError(MsgLockedOut, errors.Join(auth.ErrLockedOut, err))
		}
		metrics.RecordLoginAttempt("failed")
		return catalog.NewUserError(MsgBadCredentials, err)
	}

	if err := limiter.ResetLoginAttempts(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to reset login attempts")
	}
	metrics.RecordLoginAttempt("success")
	return nil
}
