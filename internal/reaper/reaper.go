// Package reaper expires checkout batches that never completed
// payment.  PENDING rows older than the configured TTL are flipped to
// ABANDONED so reporting queries and support tooling see an honest
// picture; a late webhook for an abandoned batch still reconciles it,
// the reaper never touches PAID rows.
package reaper

import (
	"context"
	"log"
	"time"
)

// Expirer is the slice of the checkout service the reaper calls.
type Expirer interface {
	ExpireAbandoned(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Reaper periodically expires stale PENDING batches.
type Reaper struct {
	expirer  Expirer
	interval time.Duration
	ttl      time.Duration
}

// New returns a Reaper that runs every interval and expires batches
// older than ttl.
func New(expirer Expirer, interval, ttl time.Duration) *Reaper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Reaper{expirer: expirer, interval: interval, ttl: ttl}
}

// Run loops until ctx is cancelled.  One pass runs immediately so a
// restart does not delay overdue cleanup by a full interval.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	n, err := r.expirer.ExpireAbandoned(ctx, r.ttl)
	if err != nil {
		log.Printf("reaper: sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("reaper: marked %d pending ticket(s) as abandoned", n)
	}
}
