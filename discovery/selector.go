package discovery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Selector is a compiled CSS selector group, such as "div.page img" or
// "#root > div, .strip". Combinators, attribute operators and structural
// pseudo-classes are supported. Pseudo-elements are rejected since they
// never match an element.
type Selector struct {
	raw   string
	group cascadia.SelectorGroup
}

// ParseSelector compiles a selector group.
func ParseSelector(s string) (*Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty selector")
	}
	group, err := cascadia.ParseGroup(s)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", s, err)
	}
	for _, sel := range group {
		if pe := sel.PseudoElement(); pe != "" {
			return nil, fmt.Errorf("selector %q: pseudo-element ::%s never matches an element", s, pe)
		}
	}
	return &Selector{raw: s, group: group}, nil
}

// MustParseSelector is like ParseSelector but panics on error.
func MustParseSelector(s string) *Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// String returns the selector source.
func (s *Selector) String() string {
	return s.raw
}

// Match reports whether n is an element matching any selector of the group.
func (s *Selector) Match(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return s.group.Match(n)
}

// FindAll returns every element under root, root included, that matches,
// in document order.
func (s *Selector) FindAll(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	var out []*html.Node
	if s.Match(root) {
		out = append(out, root)
	}
	return append(out, cascadia.QueryAll(root, s.group)...)
}

// FindFirst returns the first element under root, root included, that
// matches.
func (s *Selector) FindFirst(root *html.Node) *html.Node {
	if root == nil {
		return nil
	}
	if s.Match(root) {
		return root
	}
	return cascadia.Query(root, s.group)
}

// getAttr returns the value of an attribute on a node, or empty string if not found.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
