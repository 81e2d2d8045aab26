package discovery

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/tsawler/ocroverlay/model"
	"github.com/tsawler/ocroverlay/surface"
)

// ErrNoSite is returned when no site configuration matches a page URL.
var ErrNoSite = errors.New("discovery: no site configuration matches page")

var chapterLinkSelector = MustParseSelector(`a[href*="/manga/"][href*="/chapter/"]`)

// Page is the result of scanning one snapshot of a reader page.
type Page struct {
	// URL is the page address
	URL string

	// Images are the eligible page images in document order
	Images []surface.Image

	// Containers identify the matched image containers in document order
	Containers []string

	// ChapterLinks are absolute chapter URLs, without duplicates
	ChapterLinks []string
}

// Scanner finds page images in HTML snapshots of one site.
type Scanner struct {
	site       Site
	containers []*Selector
	root       *Selector
}

// NewScanner compiles a site's selectors.
func NewScanner(site Site) (*Scanner, error) {
	if len(site.ImageContainerSelectors) == 0 {
		return nil, fmt.Errorf("discovery: site %q has no image container selectors", site.URLPattern)
	}
	s := &Scanner{site: site}
	for _, raw := range site.ImageContainerSelectors {
		sel, err := ParseSelector(raw)
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		s.containers = append(s.containers, sel)
	}
	if site.ContentRootSelector != "" {
		root, err := ParseSelector(site.ContentRootSelector)
		if err != nil {
			return nil, fmt.Errorf("discovery: %w", err)
		}
		s.root = root
	}
	return s, nil
}

// Site returns the scanner's site.
func (s *Scanner) Site() Site {
	return s.site
}

// Scan finds the page images in the HTML read from r. Relative sources are
// resolved against pageURL.
func Scan(r io.Reader, pageURL string, sites []Site) (*Page, error) {
	site, ok := MatchSite(sites, pageURL)
	if !ok {
		return nil, ErrNoSite
	}
	s, err := NewScanner(site)
	if err != nil {
		return nil, err
	}
	return s.Scan(r, pageURL)
}

// Scan parses one snapshot.
func (s *Scanner) Scan(r io.Reader, pageURL string) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("discovery: invalid page URL: %w", err)
	}

	root := doc
	if s.root != nil {
		if n := s.root.FindFirst(doc); n != nil {
			root = n
		}
	}

	p := &Page{URL: pageURL}
	seen := make(map[string]int)
	counts := make(map[string]int)
	for _, c := range s.outermostContainers(root) {
		key := describe(c)
		counts[key]++
		p.Containers = append(p.Containers, key+"@"+strconv.Itoa(counts[key]))

		for _, img := range findImages(c) {
			src := resolve(base, getAttr(img, "src"))
			if !IsPageImage(src) {
				continue
			}
			seen[src]++
			id := src
			if n := seen[src]; n > 1 {
				id = src + "#" + strconv.Itoa(n)
			}
			p.Images = append(p.Images, surface.Image{ID: id, Src: src, Natural: naturalSize(img)})
		}
	}

	links := make(map[string]bool)
	for _, a := range chapterLinkSelector.FindAll(root) {
		href := resolve(base, getAttr(a, "href"))
		if href != "" && !links[href] {
			links[href] = true
			p.ChapterLinks = append(p.ChapterLinks, href)
		}
	}
	return p, nil
}

// outermostContainers returns matching containers that are not nested in
// another match.
func (s *Scanner) outermostContainers(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if s.isContainer(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func (s *Scanner) isContainer(n *html.Node) bool {
	for _, sel := range s.containers {
		if sel.Match(n) {
			return true
		}
	}
	return false
}

func findImages(n *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" && getAttr(n, "src") != "" {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// naturalSize reads width and height attributes. Images without both are
// treated as not loaded yet.
func naturalSize(img *html.Node) model.Size {
	w, errW := strconv.ParseFloat(getAttr(img, "width"), 64)
	h, errH := strconv.ParseFloat(getAttr(img, "height"), 64)
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return model.Size{}
	}
	return model.Size{Width: w, Height: h}
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// describe renders an element as tag#id.class1.class2.
func describe(n *html.Node) string {
	var b strings.Builder
	b.WriteString(n.Data)
	if id := getAttr(n, "id"); id != "" {
		b.WriteString("#" + id)
	}
	for _, c := range strings.Fields(getAttr(n, "class")) {
		b.WriteString("." + c)
	}
	return b.String()
}
