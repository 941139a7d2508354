package worker

// stale_events_cron.go
// Background goroutine that reports webhook events left unprocessed (failed
// with a consistency fault, or stuck) so they can be reconciled by hand.
// It never re-applies them; providers redeliver on their own schedule.

import (
	"context"
	"time"

	"payhub/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	staleTickInterval = time.Minute
	staleBatchSize    = 50
	staleAfter        = 10 * time.Minute
)

// StaleEventsCronConfig holds the dependencies of the sweeper.
type StaleEventsCronConfig struct {
	Events repository.WebhookEventRepository
	// Now defaults to time.Now.
	Now func() time.Time
}

// StartStaleEventsCron launches the sweeper; it stops with ctx.
func StartStaleEventsCron(ctx context.Context, cfg StaleEventsCronConfig) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	go func() {
		ticker := time.NewTicker(staleTickInterval)
		defer ticker.Stop()

		log.Info().Msg("stale_events_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("stale_events_cron: shutting down")
				return
			case <-ticker.C:
				ReportStaleEvents(ctx, cfg)
			}
		}
	}()
}

// ReportStaleEvents logs unprocessed events older than staleAfter and returns how many it found.
func ReportStaleEvents(ctx context.Context, cfg StaleEventsCronConfig) int {
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	events, err := cfg.Events.ListUnprocessed(ctx, staleBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("stale_events_cron: failed to query unprocessed events")
		return 0
	}

	cutoff := now().Add(-staleAfter)
	stale := 0
	for i := range events {
		e := &events[i]
		if e.CreatedAt.After(cutoff) {
			continue
		}
		stale++
		log.Warn().
			Uint64("event_id", e.ID).
			Str("provider", e.Provider).
			Str("event_type", e.EventType).
			Str("transaction_id", e.TransactionID).
			Str("error", e.ProcessingError).
			Time("received_at", e.CreatedAt).
			Msg("stale_events_cron: webhook event still unprocessed")
	}
	return stale
}
