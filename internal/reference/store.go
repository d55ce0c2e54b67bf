package reference

import (
	"iter"
	"sort"

	"github.com/ludo-technologies/cloneval/domain"
)

// MemoryStore is an in-memory FragmentStore over a fixed set of locations.
type MemoryStore struct {
	ids  []domain.FragmentID
	locs map[domain.FragmentID]domain.FragmentLocation
}

// NewMemoryStore indexes locations by their canonical identifier.
// Duplicate locations are stored once.
func NewMemoryStore(locations []domain.FragmentLocation) *MemoryStore {
	s := &MemoryStore{
		ids:  make([]domain.FragmentID, 0, len(locations)),
		locs: make(map[domain.FragmentID]domain.FragmentLocation, len(locations)),
	}
	for _, loc := range locations {
		loc.Path = domain.NormalizePath(loc.Path)
		id := loc.ID()
		if _, ok := s.locs[id]; ok {
			continue
		}
		s.locs[id] = loc
		s.ids = append(s.ids, id)
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s
}

// Fragment implements domain.FragmentStore
func (s *MemoryStore) Fragment(id domain.FragmentID) (domain.FragmentLocation, error) {
	if loc, ok := s.locs[id]; ok {
		return loc, nil
	}
	return domain.FragmentLocation{}, domain.NewInvalidInputError("unknown fragment identifier: "+string(id), nil)
}

// AllIdentifiers implements domain.FragmentStore
func (s *MemoryStore) AllIdentifiers() iter.Seq[domain.FragmentID] {
	return func(yield func(domain.FragmentID) bool) {
		for _, id := range s.ids {
			if !yield(id) {
				return
			}
		}
	}
}

// Len returns the number of fragments
func (s *MemoryStore) Len() int {
	return len(s.ids)
}
