package frontier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Snapshot is the on-disk representation of a full frontier state.
type Snapshot struct {
	ScraperName string   `json:"scraper_name"`
	ExportedAt  string   `json:"exported_at"`
	Stats       Stats    `json:"stats"`
	Queued      []*Entry `json:"queued"`
	Active      []*Entry `json:"active"`
	Completed   []*Entry `json:"completed"`
	Failed      []*Entry `json:"failed"`
}

// ExportState serializes the full frontier contents to a JSON snapshot file.
// The queue is read without draining it.
func (f *Frontier) ExportState(ctx context.Context, path string) error {
	snapshot := Snapshot{
		ScraperName: f.cfg.Name,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	var err error
	if snapshot.Stats, err = f.Stats(ctx); err != nil {
		return fmt.Errorf("export stats: %w", err)
	}

	members, err := f.store.ZMembers(ctx, f.queueKey)
	if err != nil {
		return fmt.Errorf("export queue: %w", err)
	}
	snapshot.Queued = decodeAll(members)

	for _, ledger := range []struct {
		key string
		dst *[]*Entry
	}{
		{f.activeKey, &snapshot.Active},
		{f.completedKey, &snapshot.Completed},
		{f.failedKey, &snapshot.Failed},
	} {
		records, err := f.store.HGetAll(ctx, ledger.key)
		if err != nil {
			return fmt.Errorf("export ledger %s: %w", ledger.key, err)
		}
		values := make([]string, 0, len(records))
		for _, raw := range records {
			values = append(values, raw)
		}
		*ledger.dst = decodeAll(values)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ImportState replaces the full frontier state with a snapshot file. The
// frontier is cleared first: import is a full replace, never a merge.
func (f *Frontier) ImportState(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	if err := f.Clear(ctx); err != nil {
		return err
	}

	for _, entry := range snapshot.Queued {
		raw, err := entry.marshal()
		if err != nil {
			return err
		}
		at := entry.DiscoveredAt
		if entry.ScheduledAt != nil {
			at = *entry.ScheduledAt
		}
		if err := f.store.ZAdd(ctx, f.queueKey, score(entry.Priority, at), raw); err != nil {
			return err
		}
		if _, err := f.store.SAdd(ctx, f.seenKey, entry.Fingerprint); err != nil {
			return err
		}
	}

	for _, ledger := range []struct {
		key     string
		entries []*Entry
	}{
		{f.activeKey, snapshot.Active},
		{f.completedKey, snapshot.Completed},
		{f.failedKey, snapshot.Failed},
	} {
		for _, entry := range ledger.entries {
			raw, err := entry.marshal()
			if err != nil {
				return err
			}
			if err := f.store.HSet(ctx, ledger.key, entry.Fingerprint, raw); err != nil {
				return err
			}
			if _, err := f.store.SAdd(ctx, f.seenKey, entry.Fingerprint); err != nil {
				return err
			}
		}
	}

	return nil
}

func decodeAll(values []string) []*Entry {
	entries := make([]*Entry, 0, len(values))
	for _, raw := range values {
		entry, err := unmarshalEntry(raw)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}
