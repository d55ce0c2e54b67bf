// Package reference implements the clone reference model: the partial ground
// truth of judged fragment pairs and the clone classes derived from it.
//
// A Model is immutable after Build and safe for concurrent readers.
package reference

import (
	"sort"

	"github.com/ludo-technologies/cloneval/domain"
)

type entry struct {
	judgment domain.Judgment
	typ      domain.SimilarityType
}

// Model is the in-memory reference. Fragments live in an arena indexed by
// handle; pairs and classes refer to fragments by handle only.
type Model struct {
	fragments []domain.Fragment
	byID      map[domain.FragmentID]domain.FragmentHandle
	byPath    map[string][]domain.FragmentHandle

	pairs map[domain.PairKey]entry

	classes    map[domain.SimilarityType][]domain.CloneClass
	classOf    map[domain.SimilarityType]map[domain.FragmentHandle]int
	population map[domain.SimilarityType]int64
}

var _ domain.ReferenceModel = (*Model)(nil)

// Judge returns the judgment of an unordered pair. Explicit confirmed
// declarations win; otherwise two fragments in the same class of some type
// are confirmed-true at that type.
func (m *Model) Judge(key domain.PairKey) (domain.Judgment, domain.SimilarityType) {
	if key.A > key.B {
		key.A, key.B = key.B, key.A
	}
	e, declared := m.pairs[key]
	if declared && e.judgment.IsConfirmed() {
		return e.judgment, e.typ
	}
	for _, t := range domain.SimilarityTypes {
		idx := m.classOf[t]
		ca, okA := idx[key.A]
		cb, okB := idx[key.B]
		if okA && okB && ca == cb {
			return domain.JudgmentTrue, t
		}
	}
	if declared {
		return domain.JudgmentUnknown, e.typ
	}
	return domain.JudgmentUnknown, domain.Unclassified
}

// ClassesOf returns the clone classes of a stratum. The slice is shared and
// must not be modified.
func (m *Model) ClassesOf(t domain.SimilarityType) []domain.CloneClass {
	return m.classes[t]
}

// Population returns the number of known clone pairs in a stratum.
func (m *Model) Population(t domain.SimilarityType) int64 {
	return m.population[t]
}

// Fragment returns the fragment stored under h, or nil.
func (m *Model) Fragment(h domain.FragmentHandle) *domain.Fragment {
	if h < 0 || int(h) >= len(m.fragments) {
		return nil
	}
	return &m.fragments[h]
}

// Lookup returns the handle of an identifier.
func (m *Model) Lookup(id domain.FragmentID) (domain.FragmentHandle, bool) {
	if h, ok := m.byID[id]; ok {
		return h, true
	}
	loc, err := domain.ParseFragmentID(id)
	if err != nil {
		return 0, false
	}
	h, ok := m.byID[loc.ID()]
	return h, ok
}

// Len returns the number of fragments in the arena
func (m *Model) Len() int {
	return len(m.fragments)
}

// DeclaredPairs returns the number of distinct declared pairs
func (m *Model) DeclaredPairs() int {
	return len(m.pairs)
}

// Summary describes the loaded reference.
func (m *Model) Summary() *domain.ReferenceSummary {
	judgments := map[string]int{
		domain.JudgmentTrue.String():    0,
		domain.JudgmentFalse.String():   0,
		domain.JudgmentUnknown.String(): 0,
	}
	for _, e := range m.pairs {
		judgments[e.judgment.String()]++
	}

	strata := make([]domain.StratumSummary, 0, len(domain.SimilarityTypes))
	for _, t := range domain.SimilarityTypes {
		s := domain.StratumSummary{
			Type:       t,
			Classes:    len(m.classes[t]),
			Fragments:  len(m.classOf[t]),
			KnownPairs: m.population[t],
		}
		for i := range m.classes[t] {
			if size := m.classes[t][i].Size(); size > s.LargestClass {
				s.LargestClass = size
			}
		}
		strata = append(strata, s)
	}

	return &domain.ReferenceSummary{
		Fragments:     len(m.fragments),
		DeclaredPairs: len(m.pairs),
		Judgments:     judgments,
		Strata:        strata,
	}
}

// Resolve maps tool coordinates to a fragment. An exact identifier match
// wins; otherwise the fragment of the same file whose start and end lines
// are both within tolerance and closest in total drift is chosen, ties going
// to the lower handle.
func (m *Model) Resolve(loc domain.FragmentLocation, tolerance int) (domain.FragmentHandle, bool) {
	loc.Path = domain.NormalizePath(loc.Path)
	if h, ok := m.byID[loc.ID()]; ok {
		return h, true
	}
	if tolerance <= 0 {
		return 0, false
	}

	candidates := m.byPath[loc.Path]
	best := domain.FragmentHandle(-1)
	bestDrift := 0
	for _, h := range candidates {
		f := &m.fragments[h]
		ds := absInt(f.StartLine - loc.StartLine)
		de := absInt(f.EndLine - loc.EndLine)
		if ds > tolerance || de > tolerance {
			continue
		}
		if drift := ds + de; best < 0 || drift < bestDrift {
			best, bestDrift = h, drift
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// indexPaths groups handles by file, ordered by handle.
func (m *Model) indexPaths() {
	m.byPath = make(map[string][]domain.FragmentHandle)
	for i := range m.fragments {
		f := &m.fragments[i]
		m.byPath[f.Path] = append(m.byPath[f.Path], f.Handle)
	}
	for _, hs := range m.byPath {
		sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	}
}
