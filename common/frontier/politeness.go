package frontier

import (
	"context"
	"strconv"
	"time"

	"github.com/LexiconIndonesia/frontier-http-service/common/store"
)

// Politeness enforces a minimum interval between dispatches to the same
// domain. Last-access timestamps live in a store hash so that independent
// worker processes observe the same cooldown.
type Politeness struct {
	store store.Store
	key   string
	delay time.Duration
}

// NewPoliteness creates a tracker writing to the given hash key.
func NewPoliteness(s store.Store, key string, delay time.Duration) *Politeness {
	return &Politeness{
		store: s,
		key:   key,
		delay: delay,
	}
}

// Delay returns the configured minimum interval.
func (p *Politeness) Delay() time.Duration {
	return p.delay
}

// CanCrawl reports whether the domain may be dispatched now. A domain with
// no recorded access is always eligible.
func (p *Politeness) CanCrawl(ctx context.Context, domain string) (bool, error) {
	if p.delay <= 0 || domain == "" {
		return true, nil
	}

	value, ok, err := p.store.HGet(ctx, p.key, domain)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}

	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		// Unreadable record counts as no record
		return true, nil
	}

	last := time.Unix(0, nanos)
	return time.Since(last) >= p.delay, nil
}

// RecordAccess stores the dispatch time for the domain.
func (p *Politeness) RecordAccess(ctx context.Context, domain string, at time.Time) error {
	if domain == "" {
		return nil
	}
	return p.store.HSet(ctx, p.key, domain, strconv.FormatInt(at.UnixNano(), 10))
}
