package expiry

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// batchLimit caps how many processes a single sweep finalizes.
const batchLimit = 500

// Expirer finalizes overdue screening processes and reports how many it
// closed. Satisfied by the screening service.
type Expirer interface {
	ExpireOverdue(ctx context.Context, batchLimit int) (int, error)
}

// Sweeper periodically expires overdue screening processes in the
// background.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	logger   zerolog.Logger
}

func NewSweeper(expirer Expirer, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		logger:   logger.With().Str("component", "expiry_sweeper").Logger(),
	}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")

	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.expirer.ExpireOverdue(ctx, batchLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if n > 0 {
		s.logger.Info().Int("expired", n).Msg("processes expired")
	}
}
