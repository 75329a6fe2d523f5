package initializers

import (
	"time"

	"chat-friendly/internals/config"
	"chat-friendly/internals/models"

	"go.uber.org/zap"
)

// StartJanitor periodically purges rows the auth flows no longer need:
// denylist entries whose tokens have expired naturally, and unverified
// accounts whose verification window has lapsed, freeing the email for a
// fresh signup.
func StartJanitor(logger *zap.Logger) {
	cleanupInterval := config.GetEnvAsInt("CLEANUP_INTERVAL_MINUTES", 30, true)
	ticker := time.NewTicker(time.Duration(cleanupInterval) * time.Minute)

	go func() {
		for range ticker.C {
			now := time.Now()

			// Unscoped() performs a hard delete, bypassing GORM's soft
			// delete so the tables don't grow indefinitely.
			revoked := DB.Unscoped().
				Where("expires_at < ?", now).
				Delete(&models.RevokedToken{})

			stale := DB.Unscoped().
				Where("is_verified = ? AND verification_expires_at < ?", false, now).
				Delete(&models.User{})

			if revoked.RowsAffected > 0 || stale.RowsAffected > 0 {
				logger.Info("janitor sweep",
					zap.Int64("revoked_tokens", revoked.RowsAffected),
					zap.Int64("stale_users", stale.RowsAffected))
			}
		}
	}()
}
