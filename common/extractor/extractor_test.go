package extractor

import (
	"sort"
	"testing"
)

const listingPage = `<html><body>
<a href="/product/1">First</a>
<a href="https://shop.example.com/product/2">Second</a>
<a href="/product/1">First again</a>
<a href="/about#team">About</a>
<a href="?page=2">Next page</a>
<a href="#top">Top</a>
<a href="javascript:void(0)">Menu</a>
<a href="mailto:sales@example.com">Contact</a>
<a href="ftp://files.example.com/catalog">Catalog</a>
<a href="">Empty</a>
</body></html>`

func sorted(links []string) []string {
	out := append([]string(nil), links...)
	sort.Strings(out)
	return out
}

func TestLinks(t *testing.T) {
	links, err := Links(listingPage, "https://shop.example.com/catalog", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{
		"https://shop.example.com/about",
		"https://shop.example.com/catalog?page=2",
		"https://shop.example.com/product/1",
		"https://shop.example.com/product/2",
	}
	got := sorted(links)
	if len(got) != len(want) {
		t.Fatalf("Expected %d links, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Link %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLinksWithPatterns(t *testing.T) {
	links, err := Links(listingPage, "https://shop.example.com/catalog", []string{"/about"})
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0] != "https://shop.example.com/about" {
		t.Errorf("Expected only the about link, got %v", links)
	}
}

func TestLinksInvalidBase(t *testing.T) {
	if _, err := Links(listingPage, "://not-a-url", nil); err == nil {
		t.Error("Expected error for invalid base URL")
	}
}

func TestLinksEmptyPage(t *testing.T) {
	links, err := Links("<html><body><p>nothing here</p></body></html>", "https://example.com", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Errorf("Expected no links, got %v", links)
	}
}

func TestPaginationLinks(t *testing.T) {
	links, err := PaginationLinks(listingPage, "https://shop.example.com/catalog")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || links[0] != "https://shop.example.com/catalog?page=2" {
		t.Errorf("Expected the pagination link, got %v", links)
	}
}

func TestProductLinks(t *testing.T) {
	links, err := ProductLinks(listingPage, "https://shop.example.com/catalog", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 2 {
		t.Errorf("Expected 2 product links, got %v", links)
	}

	custom, err := ProductLinks(listingPage, "https://shop.example.com/catalog", []string{"page="})
	if err != nil {
		t.Fatal(err)
	}
	if len(custom) != 1 || custom[0] != "https://shop.example.com/catalog?page=2" {
		t.Errorf("Expected custom patterns to override, got %v", custom)
	}
}
