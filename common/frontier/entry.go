package frontier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"time"
)

// Priority orders entries in the queue. Lower values are served first.
type Priority int

const (
	// PriorityCritical is served before everything else
	PriorityCritical Priority = 0
	// PriorityHigh is for important pages like listing roots
	PriorityHigh Priority = 1
	// PriorityNormal is the default for discovered pages
	PriorityNormal Priority = 2
	// PriorityLow is for pages that can wait
	PriorityLow Priority = 3
	// PriorityOptional is crawled only when nothing else is pending
	PriorityOptional Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityOptional:
		return "optional"
	}
	return "unknown"
}

// Status represents the lifecycle state of an entry
type Status string

const (
	StatusPending   Status = "pending"
	StatusQueued    Status = "queued"
	StatusCrawling  Status = "crawling"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsTerminal returns true when no further automatic transition occurs.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Entry describes one candidate URL and its crawl lifecycle state.
type Entry struct {
	URL          string         `json:"url"`
	Fingerprint  string         `json:"fingerprint"`
	Priority     Priority       `json:"priority"`
	Status       Status         `json:"status"`
	DiscoveredAt time.Time      `json:"discovered_at"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Depth        int            `json:"depth"`
	Referer      string         `json:"referer,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	RetryCount   int            `json:"retry_count"`
	MaxRetries   int            `json:"max_retries"`
}

// Fingerprint returns the stable identity key for a URL. Map and set keys
// always use this, never the raw URL string.
func Fingerprint(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

// Domain returns the host component of the entry URL, used as the
// politeness unit. Empty when the URL does not parse.
func (e *Entry) Domain() string {
	u, err := url.Parse(e.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// MergeMetadata overlays the given fields onto the entry metadata.
func (e *Entry) MergeMetadata(metadata map[string]any) {
	if len(metadata) == 0 {
		return
	}
	if e.Metadata == nil {
		e.Metadata = make(map[string]any, len(metadata))
	}
	for k, v := range metadata {
		e.Metadata[k] = v
	}
}

func (e *Entry) marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalEntry(data string) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, err
	}
	return &e, nil
}
