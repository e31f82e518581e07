// Package crawl runs the worker side of a crawl: pulling batches from the
// frontier, executing a caller-supplied fetch, and reporting outcomes back.
// Fetching itself stays outside this module; the dispatcher only schedules.
package crawl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/LexiconIndonesia/frontier-http-service/common/frontier"
	"github.com/LexiconIndonesia/frontier-http-service/common/work"
)

// Result is what a fetch reports back for one URL.
type Result struct {
	// Success marks the fetch as done; false triggers the retry path
	Success bool
	// Skip files the URL as skipped instead of completed or failed
	Skip bool
	// SkipReason is recorded in the entry metadata when Skip is set
	SkipReason string
	// Links are absolute candidate URLs discovered on the page,
	// re-enqueued one hop deeper with this URL as referer
	Links []string
	// Metadata is merged into the entry before it is filed
	Metadata map[string]any
}

// FetchFunc fetches one dispatched entry. Errors count as retryable
// failures.
type FetchFunc func(ctx context.Context, entry *frontier.Entry) (Result, error)

// DispatcherConfig tunes the dispatch loop.
type DispatcherConfig struct {
	Workers      int
	BatchSize    int
	FetchTimeout time.Duration
	// IdleWait is how long to sleep when the queue is empty but entries
	// are still active or mid-retry-delay
	IdleWait time.Duration
}

// DefaultDispatcherConfig returns the standard dispatch parameters.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:      5,
		BatchSize:    10,
		FetchTimeout: 30 * time.Second,
		IdleWait:     2 * time.Second,
	}
}

type outcome struct {
	url        string
	discovered int
}

// Dispatcher drives crawl workers against one frontier.
type Dispatcher struct {
	id       string
	frontier *frontier.Frontier
	fetch    FetchFunc
	cfg      DispatcherConfig
}

// NewDispatcher creates a dispatcher for the given frontier and fetch.
func NewDispatcher(f *frontier.Frontier, fetch FetchFunc, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.Workers
	}
	if cfg.IdleWait <= 0 {
		cfg.IdleWait = 2 * time.Second
	}
	return &Dispatcher{
		id:       uuid.New().String(),
		frontier: f,
		fetch:    fetch,
		cfg:      cfg,
	}
}

// Run dispatches until the frontier has no queued or active work left, or
// the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	pool, err := work.NewPool[outcome](work.PoolConfig{
		NumWorkers:      d.cfg.Workers,
		TaskChannelSize: d.cfg.BatchSize,
		TaskTimeout:     d.cfg.FetchTimeout,
	})
	if err != nil {
		return err
	}

	pool.Start(ctx, d.id)
	defer pool.Stop()

	// Drain results; reporting already happened inside each task
	go func() {
		for result := range pool.Results() {
			if !result.IsSuccess() {
				log.Debug().
					Str("dispatcherID", d.id).
					Str("taskID", result.TaskID).
					Err(result.Error).
					Msg("Fetch task failed")
			}
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := d.frontier.GetNextBatch(ctx, d.cfg.BatchSize, true)
		if err != nil {
			return err
		}

		if len(batch) == 0 {
			stats, err := d.frontier.Stats(ctx)
			if err != nil {
				return err
			}
			if stats.Queued == 0 && stats.Active == 0 {
				log.Info().
					Str("dispatcherID", d.id).
					Str("frontier", d.frontier.Name()).
					Int64("completed", stats.Completed).
					Int64("failed", stats.Failed).
					Msg("Crawl finished")
				return nil
			}
			// Work exists but nothing is eligible right now
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.IdleWait):
			}
			continue
		}

		for _, entry := range batch {
			entry := entry
			task, err := work.NewTask(func(taskCtx context.Context) (outcome, error) {
				return d.process(taskCtx, entry)
			})
			if err != nil {
				return err
			}
			if err := pool.AddTask(ctx, task); err != nil {
				return err
			}
		}
	}
}

// process runs one fetch and reports its outcome to the frontier.
func (d *Dispatcher) process(ctx context.Context, entry *frontier.Entry) (outcome, error) {
	result, fetchErr := d.fetch(ctx, entry)
	if fetchErr != nil {
		if _, err := d.frontier.MarkCompleted(ctx, entry.URL, false, map[string]any{
			"error": fetchErr.Error(),
		}); err != nil {
			return outcome{url: entry.URL}, err
		}
		return outcome{url: entry.URL}, fetchErr
	}

	if result.Skip {
		if err := d.frontier.SkipURL(ctx, entry.URL, result.SkipReason); err != nil {
			return outcome{url: entry.URL}, err
		}
		return outcome{url: entry.URL}, nil
	}

	discovered := 0
	if result.Success && len(result.Links) > 0 {
		added, err := d.frontier.AddURLs(ctx, result.Links, frontier.AddOptions{
			Priority: frontier.PriorityNormal,
			Depth:    entry.Depth + 1,
			Referer:  entry.URL,
		})
		if err != nil {
			return outcome{url: entry.URL}, err
		}
		discovered = added
	}

	if _, err := d.frontier.MarkCompleted(ctx, entry.URL, result.Success, result.Metadata); err != nil {
		return outcome{url: entry.URL}, err
	}
	return outcome{url: entry.URL, discovered: discovered}, nil
}
