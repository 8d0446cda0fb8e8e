package job

import (
	"context"
	"log/slog"
	"time"
)

const cleanupTimeout = 30 * time.Second

// RefreshTokenCleaner deletes refresh tokens that can no longer be used.
type RefreshTokenCleaner interface {
	CleanupRefreshTokens(ctx context.Context) (int64, error)
}

// RefreshTokenCleanupJob periodically drops expired and revoked refresh tokens.
type RefreshTokenCleanupJob struct {
	cleaner RefreshTokenCleaner
	log     *slog.Logger
}

func NewRefreshTokenCleanupJob(cleaner RefreshTokenCleaner, log *slog.Logger) *RefreshTokenCleanupJob {
	return &RefreshTokenCleanupJob{cleaner: cleaner, log: log}
}

func (j *RefreshTokenCleanupJob) Run() {
	const op = "job.RefreshTokenCleanup"

	log := j.log.With(slog.String("op", op))

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	n, err := j.cleaner.CleanupRefreshTokens(ctx)
	if err != nil {
		log.Error("failed to clean up refresh tokens", slog.Any("error", err))
		return
	}

	if n > 0 {
		log.Info("refresh tokens removed", slog.Int64("count", n))
	}
}
