// Package frontier implements a shared, durable crawl frontier: a priority
// queue of candidate URLs with deduplication, per-domain politeness and
// bounded retry, backed by a key/value + sorted-set store.
package frontier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/LexiconIndonesia/frontier-http-service/common/store"
)

var (
	// ErrMissingName is returned when a frontier is created without a namespace
	ErrMissingName = errors.New("frontier name is required")
	// ErrMissingStore is returned when a frontier is created without a backing store
	ErrMissingStore = errors.New("backing store is required")
)

// Lifecycle event names published through the Notifier.
const (
	EventQueued     = "queued"
	EventDispatched = "dispatched"
	EventCompleted  = "completed"
	EventFailed     = "failed"
	EventSkipped    = "skipped"
	EventRetried    = "retried"
	EventReclaimed  = "reclaimed"
)

// Notifier receives frontier lifecycle events. Implementations must not
// block; publish failures are logged and never affect frontier state.
type Notifier interface {
	PublishEvent(ctx context.Context, crawler, event string, payload any) error
}

// priorityBand keeps priority dominant over age in queue scores. Unix
// timestamps stay below it for the next ~270 years, so any CRITICAL entry
// sorts before any HIGH entry regardless of when either was discovered.
const priorityBand = 1e9

// retryDelayStep scales the linear re-queue backoff by attempt number.
const retryDelayStep = 5 * time.Minute

// Config holds the construction parameters of a frontier.
type Config struct {
	// Name namespaces every store key, one logical queue per crawl target
	Name string
	// PolitenessDelay is the minimum interval between dispatches to one domain
	PolitenessDelay time.Duration
	// MaxDepth rejects entries discovered too many hops from a seed
	MaxDepth int
	// MaxRetries bounds automatic re-queueing of failed fetches
	MaxRetries int
	// Notifier optionally publishes lifecycle events, may be nil
	Notifier Notifier
}

// DefaultFrontierConfig returns the standard parameters for a crawl target.
func DefaultFrontierConfig(name string) Config {
	return Config{
		Name:            name,
		PolitenessDelay: time.Second,
		MaxDepth:        3,
		MaxRetries:      3,
	}
}

// Frontier is the orchestrator composing the queue, dedup set, politeness
// tracker and the active/completed/failed ledgers. It holds no state of its
// own beyond configuration; every public method is one or more store round
// trips, so a frontier may be shared by any number of workers.
type Frontier struct {
	store      store.Store
	cfg        Config
	politeness *Politeness

	queueKey     string
	seenKey      string
	activeKey    string
	completedKey string
	failedKey    string
	domainsKey   string
}

// New creates a frontier for the named crawl target. Use
// DefaultFrontierConfig as the base configuration.
func New(s store.Store, cfg Config) (*Frontier, error) {
	if s == nil {
		return nil, ErrMissingStore
	}
	if cfg.Name == "" {
		return nil, ErrMissingName
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	prefix := "frontier:" + cfg.Name
	f := &Frontier{
		store:        s,
		cfg:          cfg,
		queueKey:     prefix + ":queue",
		seenKey:      prefix + ":seen",
		activeKey:    prefix + ":active",
		completedKey: prefix + ":completed",
		failedKey:    prefix + ":failed",
		domainsKey:   prefix + ":domains",
	}
	f.politeness = NewPoliteness(s, f.domainsKey, cfg.PolitenessDelay)
	return f, nil
}

// Name returns the crawl target namespace.
func (f *Frontier) Name() string {
	return f.cfg.Name
}

// AddOptions carries the optional parameters of AddURL.
type AddOptions struct {
	Priority Priority
	Depth    int
	Referer  string
	Metadata map[string]any
}

// score places an entry in the queue: priority dominates, discovery time
// breaks ties FIFO within a tier.
func score(p Priority, at time.Time) float64 {
	return float64(p)*priorityBand + float64(at.Unix())
}

// requeueScore sorts an entry behind its original tier and defers it by
// delay, so politeness skips and retries cannot starve the queue.
func requeueScore(p Priority, at time.Time, delay time.Duration) float64 {
	return float64(p+1)*priorityBand + float64(at.Unix()) + delay.Seconds()
}

// AddURL offers a candidate URL to the frontier. It returns true only when
// the entry was actually inserted: URLs beyond MaxDepth and URLs already
// seen in this crawl are rejected with false, not an error.
func (f *Frontier) AddURL(ctx context.Context, rawURL string, opts AddOptions) (bool, error) {
	if rawURL == "" {
		return false, nil
	}
	if opts.Depth > f.cfg.MaxDepth {
		return false, nil
	}

	fp := Fingerprint(rawURL)

	// The set-add result is the dedup decision, atomic even across
	// concurrent producers racing on the same URL.
	added, err := f.store.SAdd(ctx, f.seenKey, fp)
	if err != nil {
		return false, fmt.Errorf("dedup check for %s: %w", rawURL, err)
	}
	if !added {
		return false, nil
	}

	now := time.Now()
	entry := &Entry{
		URL:          rawURL,
		Fingerprint:  fp,
		Priority:     opts.Priority,
		Status:       StatusQueued,
		DiscoveredAt: now,
		ScheduledAt:  &now,
		Depth:        opts.Depth,
		Referer:      opts.Referer,
		Metadata:     opts.Metadata,
		MaxRetries:   f.cfg.MaxRetries,
	}

	data, err := entry.marshal()
	if err != nil {
		return false, err
	}
	if err := f.store.ZAdd(ctx, f.queueKey, score(entry.Priority, now), data); err != nil {
		return false, fmt.Errorf("enqueue %s: %w", rawURL, err)
	}

	f.notify(ctx, EventQueued, entry)
	return true, nil
}

// AddURLs applies AddURL to each URL and returns how many were inserted.
func (f *Frontier) AddURLs(ctx context.Context, urls []string, opts AddOptions) (int, error) {
	count := 0
	for _, u := range urls {
		added, err := f.AddURL(ctx, u, opts)
		if err != nil {
			return count, err
		}
		if added {
			count++
		}
	}
	return count, nil
}

// GetNext returns the next eligible entry, or nil when no work is currently
// available. Entries on cooling domains are re-queued behind their tier and
// the scan continues, so one slow domain does not block the rest. A nil
// result is not "crawl finished": entries may be mid-retry-delay, check
// Stats before concluding completion.
func (f *Frontier) GetNext(ctx context.Context, respectPoliteness bool) (*Entry, error) {
	// Fingerprints already skipped in this call. Seeing one again means a
	// full pass found nothing eligible.
	skipped := make(map[string]struct{})

	for {
		member, ok, err := f.store.ZPopMin(ctx, f.queueKey)
		if err != nil {
			return nil, fmt.Errorf("pop queue: %w", err)
		}
		if !ok {
			return nil, nil
		}

		entry, err := unmarshalEntry(member)
		if err != nil {
			log.Warn().Str("frontier", f.cfg.Name).Err(err).Msg("Dropping undecodable queue member")
			continue
		}

		domain := entry.Domain()
		if respectPoliteness {
			eligible, err := f.politeness.CanCrawl(ctx, domain)
			if err != nil {
				return nil, err
			}
			if !eligible {
				exhausted := false
				if _, seen := skipped[entry.Fingerprint]; seen {
					exhausted = true
				}
				skipped[entry.Fingerprint] = struct{}{}
				if err := f.requeue(ctx, entry, f.politeness.Delay()); err != nil {
					return nil, err
				}
				if exhausted {
					return nil, nil
				}
				continue
			}
		}

		now := time.Now()
		entry.Status = StatusCrawling
		entry.StartedAt = &now

		data, err := entry.marshal()
		if err != nil {
			return nil, err
		}
		if err := f.store.HSet(ctx, f.activeKey, entry.Fingerprint, data); err != nil {
			return nil, fmt.Errorf("record active %s: %w", entry.URL, err)
		}
		if err := f.politeness.RecordAccess(ctx, domain, now); err != nil {
			return nil, err
		}

		f.notify(ctx, EventDispatched, entry)
		return entry, nil
	}
}

// GetNextBatch calls GetNext up to size times, stopping early once the
// frontier reports no eligible work.
func (f *Frontier) GetNextBatch(ctx context.Context, size int, respectPoliteness bool) ([]*Entry, error) {
	entries := make([]*Entry, 0, size)
	for i := 0; i < size; i++ {
		entry, err := f.GetNext(ctx, respectPoliteness)
		if err != nil {
			return entries, err
		}
		if entry == nil {
			break
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// requeue pushes an entry back behind its original priority tier.
func (f *Frontier) requeue(ctx context.Context, entry *Entry, delay time.Duration) error {
	entry.Status = StatusQueued
	entry.StartedAt = nil

	data, err := entry.marshal()
	if err != nil {
		return err
	}
	return f.store.ZAdd(ctx, f.queueKey, requeueScore(entry.Priority, time.Now(), delay), data)
}

// MarkCompleted reports the outcome of a fetch. Success moves the entry to
// the completed ledger. Failure re-queues it with linear backoff until the
// retry budget is exhausted, then files it as terminally failed. The return
// value echoes the success flag.
func (f *Frontier) MarkCompleted(ctx context.Context, rawURL string, success bool, metadata map[string]any) (bool, error) {
	fp := Fingerprint(rawURL)

	entry, err := f.takeActive(ctx, fp, rawURL)
	if err != nil {
		return success, err
	}

	if success {
		now := time.Now()
		entry.Status = StatusCompleted
		entry.CompletedAt = &now
		entry.MergeMetadata(metadata)
		if err := f.putLedger(ctx, f.completedKey, entry); err != nil {
			return success, err
		}
		f.notify(ctx, EventCompleted, entry)
		return success, nil
	}

	entry.RetryCount++
	if entry.RetryCount < entry.MaxRetries {
		delay := time.Duration(entry.RetryCount) * retryDelayStep
		if err := f.requeue(ctx, entry, delay); err != nil {
			return success, err
		}
		log.Debug().
			Str("frontier", f.cfg.Name).
			Str("url", entry.URL).
			Int("retryCount", entry.RetryCount).
			Dur("delay", delay).
			Msg("Re-queued failed URL")
		f.notify(ctx, EventRetried, entry)
		return success, nil
	}

	now := time.Now()
	entry.Status = StatusFailed
	entry.CompletedAt = &now
	entry.MergeMetadata(metadata)
	if err := f.putLedger(ctx, f.failedKey, entry); err != nil {
		return success, err
	}
	log.Warn().
		Str("frontier", f.cfg.Name).
		Str("url", entry.URL).
		Int("retryCount", entry.RetryCount).
		Msg("URL failed permanently")
	f.notify(ctx, EventFailed, entry)
	return success, nil
}

// SkipURL files the URL under the completed ledger without counting it as a
// failure. Skips are never retried.
func (f *Frontier) SkipURL(ctx context.Context, rawURL, reason string) error {
	fp := Fingerprint(rawURL)

	entry, err := f.takeActive(ctx, fp, rawURL)
	if err != nil {
		return err
	}

	now := time.Now()
	entry.Status = StatusSkipped
	entry.CompletedAt = &now
	if reason != "" {
		entry.MergeMetadata(map[string]any{"skip_reason": reason})
	}
	if err := f.putLedger(ctx, f.completedKey, entry); err != nil {
		return err
	}
	f.notify(ctx, EventSkipped, entry)
	return nil
}

// takeActive removes the entry from the active ledger. When the record is
// missing or unreadable, a worker restart may have lost it; a minimal entry
// is synthesized so the outcome can still be filed.
func (f *Frontier) takeActive(ctx context.Context, fp, rawURL string) (*Entry, error) {
	raw, ok, err := f.store.HGet(ctx, f.activeKey, fp)
	if err != nil {
		return nil, fmt.Errorf("lookup active %s: %w", rawURL, err)
	}

	var entry *Entry
	if ok {
		entry, err = unmarshalEntry(raw)
		if err != nil {
			log.Warn().Str("frontier", f.cfg.Name).Str("url", rawURL).Err(err).Msg("Corrupt active ledger record")
			entry = nil
		}
	}
	if entry == nil {
		entry = &Entry{
			URL:          rawURL,
			Fingerprint:  fp,
			Priority:     PriorityNormal,
			Status:       StatusCrawling,
			DiscoveredAt: time.Now(),
			MaxRetries:   f.cfg.MaxRetries,
		}
	}

	if err := f.store.HDel(ctx, f.activeKey, fp); err != nil {
		return nil, err
	}
	return entry, nil
}

func (f *Frontier) putLedger(ctx context.Context, key string, entry *Entry) error {
	data, err := entry.marshal()
	if err != nil {
		return err
	}
	return f.store.HSet(ctx, key, entry.Fingerprint, data)
}

// Stats is a point-in-time size of each frontier structure.
type Stats struct {
	Queued    int64 `json:"queued"`
	Seen      int64 `json:"seen"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Stats reports the current sizes of the five structures.
func (f *Frontier) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error

	if s.Queued, err = f.store.ZCard(ctx, f.queueKey); err != nil {
		return s, err
	}
	if s.Seen, err = f.store.SCard(ctx, f.seenKey); err != nil {
		return s, err
	}
	if s.Active, err = f.store.HLen(ctx, f.activeKey); err != nil {
		return s, err
	}
	if s.Completed, err = f.store.HLen(ctx, f.completedKey); err != nil {
		return s, err
	}
	s.Failed, err = f.store.HLen(ctx, f.failedKey)
	return s, err
}

// Progress summarizes crawl completion derived from Stats.
type Progress struct {
	ProgressPercent float64 `json:"progress_percent"`
	Total           int64   `json:"total"`
	Completed       int64   `json:"completed"`
	Failed          int64   `json:"failed"`
	Remaining       int64   `json:"remaining"`
}

// Progress reports how far the crawl has come. Total counts every URL ever
// enqueued; terminal failures count toward completion.
func (f *Frontier) Progress(ctx context.Context) (Progress, error) {
	stats, err := f.Stats(ctx)
	if err != nil {
		return Progress{}, err
	}

	done := stats.Completed + stats.Failed
	p := Progress{
		Total:     stats.Seen,
		Completed: stats.Completed,
		Failed:    stats.Failed,
		Remaining: stats.Seen - done,
	}
	if stats.Seen > 0 {
		p.ProgressPercent = float64(done) / float64(stats.Seen) * 100
	}
	return p, nil
}

// FailedURLs returns up to limit terminally failed entries.
func (f *Frontier) FailedURLs(ctx context.Context, limit int) ([]*Entry, error) {
	records, err := f.store.HGetAll(ctx, f.failedKey)
	if err != nil {
		return nil, err
	}

	entries := make([]*Entry, 0, len(records))
	for _, raw := range records {
		if limit > 0 && len(entries) >= limit {
			break
		}
		entry, err := unmarshalEntry(raw)
		if err != nil {
			log.Warn().Str("frontier", f.cfg.Name).Err(err).Msg("Corrupt failed ledger record")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RetryFailed gives failed URLs a fresh retry budget. Entries whose
// RetryCount is below maxRetries (or all of them when maxRetries is nil)
// leave the failed ledger AND the dedup set, then go through AddURL again.
// This is the only path by which a fingerprint re-enters the dedup set.
func (f *Frontier) RetryFailed(ctx context.Context, maxRetries *int) (int, error) {
	records, err := f.store.HGetAll(ctx, f.failedKey)
	if err != nil {
		return 0, err
	}

	count := 0
	for fp, raw := range records {
		entry, err := unmarshalEntry(raw)
		if err != nil {
			log.Warn().Str("frontier", f.cfg.Name).Err(err).Msg("Corrupt failed ledger record")
			continue
		}
		if maxRetries != nil && entry.RetryCount >= *maxRetries {
			continue
		}

		if err := f.store.HDel(ctx, f.failedKey, fp); err != nil {
			return count, err
		}
		if err := f.store.SRem(ctx, f.seenKey, fp); err != nil {
			return count, err
		}

		added, err := f.AddURL(ctx, entry.URL, AddOptions{
			Priority: entry.Priority,
			Depth:    entry.Depth,
			Referer:  entry.Referer,
			Metadata: entry.Metadata,
		})
		if err != nil {
			return count, err
		}
		if added {
			count++
		}
	}
	return count, nil
}

// ReclaimStale re-queues active-ledger entries whose worker has apparently
// died: dispatched longer than olderThan ago with no outcome reported. The
// sweep is operator-triggered, the frontier never runs it on its own.
func (f *Frontier) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	records, err := f.store.HGetAll(ctx, f.activeKey)
	if err != nil {
		return 0, err
	}

	count := 0
	now := time.Now()
	for fp, raw := range records {
		entry, err := unmarshalEntry(raw)
		if err != nil {
			log.Warn().Str("frontier", f.cfg.Name).Err(err).Msg("Corrupt active ledger record")
			continue
		}
		if entry.StartedAt == nil || now.Sub(*entry.StartedAt) < olderThan {
			continue
		}

		if err := f.store.HDel(ctx, f.activeKey, fp); err != nil {
			return count, err
		}
		if err := f.requeue(ctx, entry, 0); err != nil {
			return count, err
		}
		f.notify(ctx, EventReclaimed, entry)
		count++
	}
	return count, nil
}

// Clear empties all frontier structures, resetting the crawl target.
func (f *Frontier) Clear(ctx context.Context) error {
	return f.store.Del(ctx,
		f.queueKey,
		f.seenKey,
		f.activeKey,
		f.completedKey,
		f.failedKey,
		f.domainsKey,
	)
}

func (f *Frontier) notify(ctx context.Context, event string, entry *Entry) {
	if f.cfg.Notifier == nil {
		return
	}
	if err := f.cfg.Notifier.PublishEvent(ctx, f.cfg.Name, event, entry); err != nil {
		log.Warn().
			Str("frontier", f.cfg.Name).
			Str("event", event).
			Err(err).
			Msg("Failed to publish frontier event")
	}
}
