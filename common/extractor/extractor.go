// Package extractor turns fetched pages into candidate URLs for the
// frontier. It is stateless: parsing and filtering only, no fetching.
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
)

// Built-in pattern lists for the convenience wrappers.
var (
	paginationPatterns = []string{"page=", "/page/", "offset=", "p="}
	productPatterns    = []string{"/product/", "/item/", "/detail/"}
)

// Links parses anchor hrefs from the page, resolves them against baseURL and
// returns absolute URLs. When patterns is non-empty, only URLs containing at
// least one pattern as a substring are kept. The result is deduplicated and
// its order is unspecified.
func Links(html, baseURL string, patterns []string) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %s: %w", baseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""

		absolute := resolved.String()
		if len(patterns) > 0 && !matchesAny(absolute, patterns) {
			return
		}
		links = append(links, absolute)
	})

	return lo.Uniq(links), nil
}

// PaginationLinks extracts links that look like pagination controls.
func PaginationLinks(html, baseURL string) ([]string, error) {
	return Links(html, baseURL, paginationPatterns)
}

// ProductLinks extracts links that look like item detail pages. Custom
// patterns override the built-in list.
func ProductLinks(html, baseURL string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = productPatterns
	}
	return Links(html, baseURL, patterns)
}

func matchesAny(link string, patterns []string) bool {
	return lo.SomeBy(patterns, func(p string) bool {
		return strings.Contains(link, p)
	})
}
