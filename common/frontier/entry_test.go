package frontier

import "testing"

func TestFingerprint(t *testing.T) {
	fp1 := Fingerprint("https://example.com/page")
	fp2 := Fingerprint("https://example.com/page")
	fp3 := Fingerprint("https://example.com/other")

	if fp1 != fp2 {
		t.Error("Expected identical URLs to share a fingerprint")
	}
	if fp1 == fp3 {
		t.Error("Expected different URLs to have different fingerprints")
	}
	if len(fp1) != 64 {
		t.Errorf("Expected sha256 hex length 64, got %d", len(fp1))
	}
}

func TestEntryDomain(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain host", "https://example.com/page", "example.com"},
		{"host with port", "http://example.com:8080/x", "example.com:8080"},
		{"subdomain", "https://shop.example.com/item/1", "shop.example.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{URL: tt.url}
			if got := e.Domain(); got != tt.want {
				t.Errorf("Domain() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusFailed, StatusSkipped}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("Expected %s to be terminal", s)
		}
	}

	nonTerminal := []Status{StatusPending, StatusQueued, StatusCrawling}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("Expected %s not to be terminal", s)
		}
	}
}

func TestMergeMetadata(t *testing.T) {
	e := Entry{}
	e.MergeMetadata(map[string]any{"a": 1})
	e.MergeMetadata(map[string]any{"a": 2, "b": "x"})
	e.MergeMetadata(nil)

	if e.Metadata["a"] != 2 {
		t.Errorf("Expected overlay to win, got %v", e.Metadata["a"])
	}
	if e.Metadata["b"] != "x" {
		t.Errorf("Expected b to be kept, got %v", e.Metadata["b"])
	}
}

func TestEntryRoundTrip(t *testing.T) {
	e := &Entry{
		URL:         "https://example.com/p",
		Fingerprint: Fingerprint("https://example.com/p"),
		Priority:    PriorityHigh,
		Status:      StatusQueued,
		Depth:       2,
		Referer:     "https://example.com",
		Metadata:    map[string]any{"hint": "listing"},
		MaxRetries:  3,
	}

	data, err := e.marshal()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := unmarshalEntry(data)
	if err != nil {
		t.Fatal(err)
	}

	if decoded.URL != e.URL || decoded.Priority != e.Priority || decoded.Depth != e.Depth {
		t.Errorf("Round trip mismatch: %+v", decoded)
	}
	if decoded.Metadata["hint"] != "listing" {
		t.Errorf("Metadata lost in round trip: %v", decoded.Metadata)
	}
}
