package reference

import (
	"sort"

	"github.com/ludo-technologies/cloneval/domain"
)

// unionFind is a disjoint-set forest over fragment handles with path
// compression and union by rank. Handles are added lazily so a stratum with
// few edges stays small.
type unionFind struct {
	parent map[domain.FragmentHandle]domain.FragmentHandle
	rank   map[domain.FragmentHandle]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[domain.FragmentHandle]domain.FragmentHandle),
		rank:   make(map[domain.FragmentHandle]int),
	}
}

func (u *unionFind) find(x domain.FragmentHandle) domain.FragmentHandle {
	p, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if p != x {
		root := u.find(p)
		u.parent[x] = root
		return root
	}
	return x
}

func (u *unionFind) union(a, b domain.FragmentHandle) {
	ra := u.find(a)
	rb := u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		u.parent[ra] = rb
	} else if u.rank[ra] > u.rank[rb] {
		u.parent[rb] = ra
	} else {
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// components returns every set of two or more handles, members sorted and
// sets ordered by their smallest member.
func (u *unionFind) components() [][]domain.FragmentHandle {
	comp := make(map[domain.FragmentHandle][]domain.FragmentHandle)
	for h := range u.parent {
		r := u.find(h)
		comp[r] = append(comp[r], h)
	}

	out := make([][]domain.FragmentHandle, 0, len(comp))
	for _, members := range comp {
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
