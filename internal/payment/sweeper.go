package payment

import (
	"context"
	"log/slog"
	"time"
)

const sweepReasonExpired = "expired"

// Sweeper cancels pending payments past their instrument-specific deadline.
// It is the only enforcement of the expiry window; nothing blocks waiting
// for it.
type Sweeper struct {
	repo      RepositoryAPI
	service   ServiceAPI
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewSweeper(repo RepositoryAPI, service ServiceAPI, interval time.Duration, batchSize int, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		repo:      repo,
		service:   service,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("expiry sweeper started",
		"interval", s.interval,
		"batch_size", s.batchSize)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep pass failed", "error", err)
			}
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		}
	}
}

// SweepOnce cancels every expired pending record it can and reports how
// many it processed. One record failing does not stop the pass, and failed
// records are not retried until the next pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpiredPending(time.Now().UTC(), s.batchSize)
	if err != nil {
		return 0, err
	}

	if len(expired) == 0 {
		return 0, nil
	}

	processed := 0
	for _, p := range expired {
		if err := s.service.Cancel(ctx, p.ID, sweepReasonExpired); err != nil {
			// Typically a race: the payment got approved or cancelled
			// between the scan and this call.
			s.logger.Warn("failed to cancel expired payment",
				"payment_id", p.ID,
				"error", err)
			continue
		}
		processed++
	}

	s.logger.Info("sweep pass complete",
		"expired_found", len(expired),
		"cancelled", processed)

	return processed, nil
}
