package discovery

import (
	"fmt"
	"strings"
)

// ImagePathMarker appears in the source URL of every page image served by
// the reader's API.
const ImagePathMarker = "/api/v1/manga/"

// DefaultContentRoot is the content root used when a site line omits it.
const DefaultContentRoot = "#root"

// Site describes where a reader site keeps its page images.
type Site struct {
	// URLPattern selects the site; a page matches when its URL contains it
	URLPattern string `json:"urlPattern"`

	// ImageContainerSelectors match the elements that hold page images
	ImageContainerSelectors []string `json:"imageContainerSelectors"`

	// OverflowFixSelector matches an element whose overflow clips overlays
	OverflowFixSelector string `json:"overflowFixSelector,omitempty"`

	// ContentRootSelector matches the element whose children are replaced on
	// navigation
	ContentRootSelector string `json:"contentRootSelector,omitempty"`
}

// DefaultSites returns the layouts of a locally hosted reader.
func DefaultSites() []Site {
	return []Site{{
		URLPattern: "127.0.0.1",
		ImageContainerSelectors: []string{
			"div.muiltr-masn8",
			"div.muiltr-79elbk",
			"div.muiltr-u43rde",
			"div.muiltr-1r1or1s",
			"div.muiltr-18sieki",
			"div.muiltr-cns6dc",
			".MuiBox-root.muiltr-1noqzsz",
			".MuiBox-root.muiltr-1tapw32",
		},
		OverflowFixSelector: ".MuiBox-root.muiltr-13djdhf",
		ContentRootSelector: DefaultContentRoot,
	}}
}

// MatchSite returns the first site whose pattern occurs in pageURL.
func MatchSite(sites []Site, pageURL string) (Site, bool) {
	for _, s := range sites {
		if s.URLPattern != "" && strings.Contains(pageURL, s.URLPattern) {
			return s, true
		}
	}
	return Site{}, false
}

// IsPageImage reports whether src is served by the reader's page API.
func IsPageImage(src string) bool {
	return strings.Contains(src, ImagePathMarker)
}

// ParseSites reads one site per line in the form
//
//	URL pattern; overflow fix; container; container...; content root
//
// Blank lines are skipped.
func ParseSites(text string) ([]Site, error) {
	var sites []Site
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ";")
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		if parts[0] == "" {
			return nil, fmt.Errorf("discovery: line %d: missing URL pattern", i+1)
		}

		s := Site{URLPattern: parts[0], ContentRootSelector: DefaultContentRoot}
		if len(parts) > 1 {
			s.OverflowFixSelector = parts[1]
		}
		if len(parts) > 2 {
			if root := parts[len(parts)-1]; root != "" {
				s.ContentRootSelector = root
			}
			for _, sel := range parts[2 : len(parts)-1] {
				if sel != "" {
					s.ImageContainerSelectors = append(s.ImageContainerSelectors, sel)
				}
			}
		}
		for _, sel := range s.ImageContainerSelectors {
			if _, err := ParseSelector(sel); err != nil {
				return nil, fmt.Errorf("discovery: line %d: %w", i+1, err)
			}
		}
		sites = append(sites, s)
	}
	return sites, nil
}

// FormatSites writes sites in the form ParseSites reads.
func FormatSites(sites []Site) string {
	lines := make([]string, 0, len(sites))
	for _, s := range sites {
		parts := append([]string{s.URLPattern, s.OverflowFixSelector}, s.ImageContainerSelectors...)
		parts = append(parts, s.ContentRootSelector)
		lines = append(lines, strings.Join(parts, "; "))
	}
	return strings.Join(lines, "\n")
}
