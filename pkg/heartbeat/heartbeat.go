// Package heartbeat runs the periodic retention sweep over the message
// store, driven by a cron expression.
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tinyland-inc/wingmate/pkg/logger"
)

// cleaner is the slice of the store the sweeper needs.
type cleaner interface {
	CleanupOlderThan(cutoff time.Time) (int64, error)
}

// Sweeper deletes stored messages older than the retention period on a
// cron schedule.
type Sweeper struct {
	store     cleaner
	cron      string
	retention time.Duration
}

// NewSweeper validates the cron expression and builds the sweeper. An
// empty expression means daily at 04:00.
func NewSweeper(store cleaner, cronExpr string, retentionDays int) (*Sweeper, error) {
	if cronExpr == "" {
		cronExpr = "0 4 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid heartbeat cron expression: %s", cronExpr)
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	return &Sweeper{
		store:     store,
		cron:      cronExpr,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}, nil
}

// Run blocks until ctx is cancelled, sleeping until each next cron tick
// and sweeping once per tick.
func (s *Sweeper) Run(ctx context.Context) {
	logger.InfoCF("heartbeat", "Retention sweeper running", map[string]any{
		"cron":      s.cron,
		"retention": s.retention.String(),
	})

	for {
		next, err := gronx.NextTickAfter(s.cron, time.Now(), false)
		if err != nil {
			logger.ErrorCF("heartbeat", "Failed to compute next tick", map[string]any{"error": err.Error()})
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-time.After(time.Until(next)):
			s.SweepOnce()
		case <-ctx.Done():
			logger.InfoC("heartbeat", "Retention sweeper stopping")
			return
		}
	}
}

// SweepOnce deletes everything older than the retention period.
func (s *Sweeper) SweepOnce() {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.store.CleanupOlderThan(cutoff)
	if err != nil {
		logger.ErrorCF("heartbeat", "Retention sweep failed", map[string]any{"error": err.Error()})
		return
	}
	if n > 0 {
		logger.InfoCF("heartbeat", "Retention sweep removed messages", map[string]any{"count": n})
	}
}
