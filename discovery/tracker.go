package discovery

import (
	"sort"

	"github.com/tsawler/ocroverlay/surface"
)

// EventKind classifies a tracker event.
type EventKind int

const (
	// EventDiscovered reports a new image, or one that has since loaded.
	EventDiscovered EventKind = iota
	// EventRemoved reports an image that left the page.
	EventRemoved
	// EventNavigated reports that the page was replaced.
	EventNavigated
)

// String returns the event name.
func (k EventKind) String() string {
	switch k {
	case EventDiscovered:
		return "discovered"
	case EventRemoved:
		return "removed"
	case EventNavigated:
		return "navigated"
	default:
		return "unknown"
	}
}

// Event is one change between snapshots.
type Event struct {
	Kind  EventKind
	Image surface.Image
}

// Sink receives tracker events. lifecycle.Controller implements it.
type Sink interface {
	ImageDiscovered(img surface.Image)
	ImageRemoved(imageID string)
	NavigationOccurred()
}

// Tracker turns successive page snapshots into events. The page counts as
// navigated when its URL changes or a container seen before disappears.
type Tracker struct {
	started    bool
	url        string
	containers map[string]bool
	images     map[string]surface.Image
}

// NewTracker creates a tracker with no history.
func NewTracker() *Tracker {
	return &Tracker{
		containers: make(map[string]bool),
		images:     make(map[string]surface.Image),
	}
}

// Update compares p with the previous snapshot. A navigation event, when
// present, comes first and is followed by discovery of everything on the
// new page.
func (t *Tracker) Update(p *Page) []Event {
	var events []Event

	current := make(map[string]bool, len(p.Containers))
	for _, c := range p.Containers {
		current[c] = true
	}

	if t.started && t.navigated(p.URL, current) {
		events = append(events, Event{Kind: EventNavigated})
		t.images = make(map[string]surface.Image)
	} else {
		present := make(map[string]bool, len(p.Images))
		for _, img := range p.Images {
			present[img.ID] = true
		}
		var removed []string
		for id := range t.images {
			if !present[id] {
				removed = append(removed, id)
			}
		}
		sort.Strings(removed)
		for _, id := range removed {
			events = append(events, Event{Kind: EventRemoved, Image: t.images[id]})
			delete(t.images, id)
		}
	}

	for _, img := range p.Images {
		prev, known := t.images[img.ID]
		if !known || (!prev.Loaded() && img.Loaded()) {
			events = append(events, Event{Kind: EventDiscovered, Image: img})
		}
		t.images[img.ID] = img
	}

	t.started = true
	t.url = p.URL
	t.containers = current
	return events
}

// Images returns the tracked image IDs in sorted order.
func (t *Tracker) Images() []string {
	ids := make([]string, 0, len(t.images))
	for id := range t.images {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Tracker) navigated(url string, current map[string]bool) bool {
	if url != t.url {
		return true
	}
	for c := range t.containers {
		if !current[c] {
			return true
		}
	}
	return false
}

// Dispatch delivers events to s in order.
func Dispatch(events []Event, s Sink) {
	for _, e := range events {
		switch e.Kind {
		case EventDiscovered:
			s.ImageDiscovered(e.Image)
		case EventRemoved:
			s.ImageRemoved(e.Image.ID)
		case EventNavigated:
			s.NavigationOccurred()
		}
	}
}
