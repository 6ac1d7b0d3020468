package jobs

import (
	"context"
	"log/slog"
	"time"
)

const defaultTokenCleanupInterval = time.Hour

// ExpiredTokenCleaner deletes refresh tokens past their expiry
type ExpiredTokenCleaner interface {
	CleanupExpired(ctx context.Context) error
}

// TokenCleanup periodically purges expired refresh tokens
type TokenCleanup struct {
	*periodic
	tokens ExpiredTokenCleaner
}

// NewTokenCleanup creates a new token cleanup job
func NewTokenCleanup(tokens ExpiredTokenCleaner, interval time.Duration, logger *slog.Logger) *TokenCleanup {
	if interval <= 0 {
		interval = defaultTokenCleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	j := &TokenCleanup{tokens: tokens}
	j.periodic = &periodic{
		name:     "token_cleanup",
		interval: interval,
		timeout:  time.Minute,
		task:     j.RunOnce,
		logger:   logger,
	}
	return j
}

// RunOnce deletes expired tokens once
func (j *TokenCleanup) RunOnce(ctx context.Context) error {
	return j.tokens.CleanupExpired(ctx)
}
