package cluster

// unionFind is a disjoint-set forest with path compression and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// find returns the root of i, compressing the path on the way up.
func (uf *unionFind) find(i int) int {
	root := i
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[i] != root {
		next := uf.parent[i]
		uf.parent[i] = root
		i = next
	}
	return root
}

// union joins the sets containing i and j. It reports whether they were
// previously disjoint.
func (uf *unionFind) union(i, j int) bool {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return false
	}
	switch {
	case uf.rank[ri] > uf.rank[rj]:
		uf.parent[rj] = ri
	case uf.rank[ri] < uf.rank[rj]:
		uf.parent[ri] = rj
	default:
		uf.parent[rj] = ri
		uf.rank[ri]++
	}
	return true
}

// components returns the member indices of every set, each in ascending
// order, with sets ordered by their smallest member.
func (uf *unionFind) components() [][]int {
	byRoot := make(map[int]int)
	var groups [][]int
	for i := range uf.parent {
		root := uf.find(i)
		idx, ok := byRoot[root]
		if !ok {
			idx = len(groups)
			byRoot[root] = idx
			groups = append(groups, nil)
		}
		groups[idx] = append(groups[idx], i)
	}
	return groups
}
