package frontier

import (
	"context"
	"testing"
	"time"

	"github.com/LexiconIndonesia/frontier-http-service/common/store"
)

func newTestFrontier(t *testing.T, cfg Config) *Frontier {
	t.Helper()
	if cfg.Name == "" {
		cfg.Name = "test"
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = 3
	}
	f, err := New(store.NewMemoryStore(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func mustAdd(t *testing.T, f *Frontier, url string, opts AddOptions) {
	t.Helper()
	added, err := f.AddURL(context.Background(), url, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Fatalf("Expected %s to be added", url)
	}
}

func TestAddURLDedup(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	added, err := f.AddURL(ctx, "https://example.com/p1", AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Error("Expected first add to succeed")
	}

	for i := 0; i < 3; i++ {
		added, err = f.AddURL(ctx, "https://example.com/p1", AddOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if added {
			t.Error("Expected duplicate add to be rejected")
		}
	}

	stats, err := f.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Queued != 1 {
		t.Errorf("Expected 1 queued, got %d", stats.Queued)
	}
	if stats.Seen != 1 {
		t.Errorf("Expected 1 seen, got %d", stats.Seen)
	}
}

func TestAddURLDepthLimit(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{MaxDepth: 3})

	added, err := f.AddURL(ctx, "https://x/y", AddOptions{Depth: 5})
	if err != nil {
		t.Fatal(err)
	}
	if added {
		t.Error("Expected entry beyond max depth to be rejected")
	}

	stats, err := f.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Seen != 0 {
		t.Errorf("Expected rejection to leave no trace, seen=%d", stats.Seen)
	}
}

func TestAddURLs(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	urls := []string{
		"https://example.com/a",
		"https://example.com/b",
		"https://example.com/a", // duplicate
	}
	count, err := f.AddURLs(ctx, urls, AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 added, got %d", count)
	}
}

func TestGetNextPriorityOrder(t *testing.T) {
	ctx := context.Background()

	// Both insertion orders must yield the critical entry first
	orders := [][]struct {
		url      string
		priority Priority
	}{
		{{"https://a.example/low", PriorityLow}, {"https://b.example/crit", PriorityCritical}},
		{{"https://b.example/crit", PriorityCritical}, {"https://a.example/low", PriorityLow}},
	}

	for _, order := range orders {
		f := newTestFrontier(t, Config{})
		for _, item := range order {
			mustAdd(t, f, item.url, AddOptions{Priority: item.priority})
		}

		entry, err := f.GetNext(ctx, true)
		if err != nil {
			t.Fatal(err)
		}
		if entry == nil || entry.Priority != PriorityCritical {
			t.Errorf("Expected critical entry first, got %+v", entry)
		}
	}
}

func TestGetNextFIFOWithinTier(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	mustAdd(t, f, "https://a.example/u1", AddOptions{Priority: PriorityNormal})
	mustAdd(t, f, "https://b.example/u2", AddOptions{Priority: PriorityNormal})

	first, err := f.GetNext(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.GetNext(ctx, true)
	if err != nil {
		t.Fatal(err)
	}

	if first == nil || first.URL != "https://a.example/u1" {
		t.Errorf("Expected u1 first, got %+v", first)
	}
	if second == nil || second.URL != "https://b.example/u2" {
		t.Errorf("Expected u2 second, got %+v", second)
	}
}

func TestGetNextEmpty(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	entry, err := f.GetNext(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Errorf("Expected nil on empty queue, got %+v", entry)
	}
}

func TestGetNextMarksCrawling(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	mustAdd(t, f, "https://example.com/p", AddOptions{})

	entry, err := f.GetNext(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Status != StatusCrawling {
		t.Errorf("Expected crawling status, got %s", entry.Status)
	}
	if entry.StartedAt == nil {
		t.Error("Expected started_at to be set")
	}

	stats, _ := f.Stats(ctx)
	if stats.Queued != 0 || stats.Active != 1 {
		t.Errorf("Expected queued=0 active=1, got %+v", stats)
	}
}

func TestGetNextPoliteness(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{PolitenessDelay: 5 * time.Second})

	mustAdd(t, f, "https://a.example/p1", AddOptions{})
	mustAdd(t, f, "https://a.example/p2", AddOptions{})
	mustAdd(t, f, "https://b.example/p3", AddOptions{})

	first, err := f.GetNext(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if first == nil || first.Domain() != "a.example" {
		t.Fatalf("Expected an a.example entry first, got %+v", first)
	}

	// a.example is cooling; the scan must skip straight to b.example
	second, err := f.GetNext(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if second == nil || second.Domain() != "b.example" {
		t.Errorf("Expected b.example while a.example cools, got %+v", second)
	}

	// Only the cooling entry remains: no work available
	third, err := f.GetNext(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if third != nil {
		t.Errorf("Expected nil while the only domain cools, got %+v", third)
	}

	// The skipped entry must still be queued, not lost
	stats, _ := f.Stats(ctx)
	if stats.Queued != 1 {
		t.Errorf("Expected cooling entry re-queued, queued=%d", stats.Queued)
	}
}

func TestGetNextIgnoresPolitenessWhenAsked(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{PolitenessDelay: time.Hour})

	mustAdd(t, f, "https://a.example/p1", AddOptions{})
	mustAdd(t, f, "https://a.example/p2", AddOptions{})

	for i := 0; i < 2; i++ {
		entry, err := f.GetNext(ctx, false)
		if err != nil {
			t.Fatal(err)
		}
		if entry == nil {
			t.Fatalf("Expected entry %d despite cooldown", i)
		}
	}
}

func TestGetNextBatchScenario(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{PolitenessDelay: 0})

	mustAdd(t, f, "https://a.example/p1", AddOptions{Priority: PriorityHigh})
	mustAdd(t, f, "https://a.example/p2", AddOptions{Priority: PriorityNormal})
	mustAdd(t, f, "https://b.example/p3", AddOptions{Priority: PriorityNormal})

	batch, err := f.GetNextBatch(ctx, 3, true)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"https://a.example/p1", "https://a.example/p2", "https://b.example/p3"}
	if len(batch) != len(want) {
		t.Fatalf("Expected %d entries, got %d", len(want), len(batch))
	}
	for i, entry := range batch {
		if entry.URL != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], entry.URL)
		}
	}
}

func TestGetNextBatchStopsEarly(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	mustAdd(t, f, "https://example.com/only", AddOptions{})

	batch, err := f.GetNextBatch(ctx, 10, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 {
		t.Errorf("Expected short batch of 1, got %d", len(batch))
	}
}

func TestMarkCompletedSuccess(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	mustAdd(t, f, "https://example.com/p", AddOptions{})
	if _, err := f.GetNext(ctx, true); err != nil {
		t.Fatal(err)
	}

	ok, err := f.MarkCompleted(ctx, "https://example.com/p", true, map[string]any{"bytes": 1024})
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Expected success flag to be echoed")
	}

	stats, _ := f.Stats(ctx)
	if stats.Active != 0 || stats.Completed != 1 {
		t.Errorf("Expected active=0 completed=1, got %+v", stats)
	}
}

func TestMarkCompletedRetryThenExhaustion(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{MaxRetries: 3})

	mustAdd(t, f, "https://example.com/flaky", AddOptions{})

	// Fail max_retries times; the first two re-queue, the last is terminal
	for attempt := 1; attempt <= 3; attempt++ {
		entry, err := f.GetNext(ctx, false)
		if err != nil {
			t.Fatal(err)
		}
		if entry == nil {
			t.Fatalf("Attempt %d: expected entry to be dispatchable", attempt)
		}

		echoed, err := f.MarkCompleted(ctx, entry.URL, false, nil)
		if err != nil {
			t.Fatal(err)
		}
		if echoed {
			t.Error("Expected failure flag to be echoed")
		}

		stats, _ := f.Stats(ctx)
		if attempt < 3 {
			if stats.Queued != 1 || stats.Failed != 0 {
				t.Errorf("Attempt %d: expected re-queue, got %+v", attempt, stats)
			}
		} else {
			if stats.Queued != 0 || stats.Failed != 1 {
				t.Errorf("Attempt %d: expected terminal failure, got %+v", attempt, stats)
			}
		}
	}

	// Exhausted entries never come back out
	entry, err := f.GetNext(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if entry != nil {
		t.Errorf("Expected failed entry to stay out of the queue, got %+v", entry)
	}

	failed, err := f.FailedURLs(ctx, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].RetryCount != 3 {
		t.Errorf("Unexpected failed ledger: %+v", failed)
	}
	if failed[0].CompletedAt == nil {
		t.Error("Expected terminal entry to have completed_at set")
	}
}

func TestMarkCompletedUnknownURL(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	// A worker may report after losing its active record; the frontier
	// synthesizes an entry instead of failing
	ok, err := f.MarkCompleted(ctx, "https://example.com/ghost", true, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Expected success flag echo")
	}

	stats, _ := f.Stats(ctx)
	if stats.Completed != 1 {
		t.Errorf("Expected synthesized entry filed as completed, got %+v", stats)
	}
}

func TestSkipURL(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	mustAdd(t, f, "https://example.com/p", AddOptions{})
	if _, err := f.GetNext(ctx, true); err != nil {
		t.Fatal(err)
	}

	if err := f.SkipURL(ctx, "https://example.com/p", "robots disallow"); err != nil {
		t.Fatal(err)
	}

	stats, _ := f.Stats(ctx)
	if stats.Active != 0 || stats.Completed != 1 || stats.Failed != 0 {
		t.Errorf("Expected skip filed under completed, got %+v", stats)
	}
}

func TestProgress(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	// Empty frontier: zero progress, not a division error
	progress, err := f.Progress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if progress.ProgressPercent != 0 || progress.Total != 0 {
		t.Errorf("Expected zero progress on empty frontier, got %+v", progress)
	}

	mustAdd(t, f, "https://example.com/a", AddOptions{})
	mustAdd(t, f, "https://example.com/b", AddOptions{})

	if _, err := f.GetNext(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.MarkCompleted(ctx, "https://example.com/a", true, nil); err != nil {
		t.Fatal(err)
	}

	progress, err = f.Progress(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if progress.Total != 2 || progress.Completed != 1 || progress.Remaining != 1 {
		t.Errorf("Unexpected progress: %+v", progress)
	}
	if progress.ProgressPercent != 50 {
		t.Errorf("Expected 50%%, got %f", progress.ProgressPercent)
	}
}

func TestRetryFailed(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{MaxRetries: 1})

	mustAdd(t, f, "https://example.com/p", AddOptions{Priority: PriorityHigh, Depth: 1})

	if _, err := f.GetNext(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := f.MarkCompleted(ctx, "https://example.com/p", false, nil); err != nil {
		t.Fatal(err)
	}

	stats, _ := f.Stats(ctx)
	if stats.Failed != 1 {
		t.Fatalf("Expected 1 failed, got %+v", stats)
	}

	// Duplicate adds are still rejected while the fingerprint is seen
	added, _ := f.AddURL(ctx, "https://example.com/p", AddOptions{})
	if added {
		t.Error("Expected failed URL to still be deduplicated")
	}

	count, err := f.RetryFailed(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 retried, got %d", count)
	}

	stats, _ = f.Stats(ctx)
	if stats.Failed != 0 || stats.Queued != 1 {
		t.Errorf("Expected entry back in queue, got %+v", stats)
	}

	// The re-admitted entry keeps its priority and depth with a fresh budget
	entry, err := f.GetNext(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Priority != PriorityHigh || entry.Depth != 1 {
		t.Errorf("Expected priority/depth preserved, got %+v", entry)
	}
	if entry.RetryCount != 0 {
		t.Errorf("Expected fresh retry budget, got %d", entry.RetryCount)
	}
}

func TestRetryFailedWithThreshold(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{MaxRetries: 2})

	mustAdd(t, f, "https://example.com/p", AddOptions{})
	for i := 0; i < 2; i++ {
		if _, err := f.GetNext(ctx, false); err != nil {
			t.Fatal(err)
		}
		if _, err := f.MarkCompleted(ctx, "https://example.com/p", false, nil); err != nil {
			t.Fatal(err)
		}
	}

	// The entry failed with retry_count == 2; a threshold of 2 excludes it
	threshold := 2
	count, err := f.RetryFailed(ctx, &threshold)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected no retries below threshold, got %d", count)
	}

	threshold = 5
	count, err = f.RetryFailed(ctx, &threshold)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 retry under higher threshold, got %d", count)
	}
}

func TestReclaimStale(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	mustAdd(t, f, "https://example.com/p", AddOptions{})
	if _, err := f.GetNext(ctx, true); err != nil {
		t.Fatal(err)
	}

	// Entry was just dispatched; a one hour threshold leaves it alone
	count, err := f.ReclaimStale(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected no reclaim of fresh entries, got %d", count)
	}

	// A zero threshold treats everything in-flight as stale
	count, err = f.ReclaimStale(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 reclaimed, got %d", count)
	}

	stats, _ := f.Stats(ctx)
	if stats.Active != 0 || stats.Queued != 1 {
		t.Errorf("Expected reclaimed entry back in queue, got %+v", stats)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	f := newTestFrontier(t, Config{})

	mustAdd(t, f, "https://example.com/a", AddOptions{})
	mustAdd(t, f, "https://example.com/b", AddOptions{})
	if _, err := f.GetNext(ctx, true); err != nil {
		t.Fatal(err)
	}

	if err := f.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	stats, _ := f.Stats(ctx)
	if stats.Queued != 0 || stats.Seen != 0 || stats.Active != 0 {
		t.Errorf("Expected empty frontier after clear, got %+v", stats)
	}

	// Cleared URLs can be enqueued again
	added, err := f.AddURL(ctx, "https://example.com/a", AddOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !added {
		t.Error("Expected URL to be addable after clear")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Config{Name: "x"}); err == nil {
		t.Error("Expected error for nil store")
	}
	if _, err := New(store.NewMemoryStore(), Config{}); err == nil {
		t.Error("Expected error for missing name")
	}
}
