package model

// Dataset is the ordered sequence of regions belonging to one image.
// Entries are addressed by ID; positions are not stable across edits.
type Dataset []Region

// Index returns the position of the region with the given ID, or -1.
func (d Dataset) Index(id string) int {
	for i := range d {
		if d[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the region with the given ID.
func (d Dataset) Get(id string) (Region, bool) {
	if i := d.Index(id); i >= 0 {
		return d[i], true
	}
	return Region{}, false
}

// Remove returns a dataset without the given IDs. Unknown IDs are ignored.
func (d Dataset) Remove(ids ...string) Dataset {
	if len(ids) == 0 {
		return d
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make(Dataset, 0, len(d))
	for _, r := range d {
		if !drop[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// Clone returns an independent copy.
func (d Dataset) Clone() Dataset {
	if d == nil {
		return nil
	}
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

// IDs returns the entry IDs in order.
func (d Dataset) IDs() []string {
	ids := make([]string, len(d))
	for i, r := range d {
		ids[i] = r.ID
	}
	return ids
}
