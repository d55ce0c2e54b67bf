package reference

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ludo-technologies/cloneval/domain"
)

// Build loads every fragment of the store into the arena and resolves the
// declarations into judged pairs and clone classes. Any invalid declaration
// fails the whole load with a MalformedReferenceError listing the offending
// entries.
func Build(store domain.FragmentStore, decls []domain.ReferenceDeclaration) (*Model, error) {
	if store == nil {
		return nil, domain.NewInvalidInputError("fragment store is required", nil)
	}

	m, err := loadFragments(store)
	if err != nil {
		return nil, err
	}

	var problems problemList
	m.pairs = make(map[domain.PairKey]entry, len(decls))
	for i, d := range decls {
		line := d.Line
		if line == 0 {
			line = i + 1
		}
		key, e, err := m.resolveDeclaration(d)
		if err != nil {
			problems.add(line, err)
			continue
		}
		if prev, ok := m.pairs[key]; ok {
			if prev != e {
				problems.add(line, fmt.Errorf("conflicting declaration for %s, %s: %s/%s vs %s/%s",
					d.First, d.Second, prev.typ, prev.judgment, e.typ, e.judgment))
			}
			continue
		}
		m.pairs[key] = e
	}

	m.buildClasses()

	negatives := make([]domain.PairKey, 0)
	for key, e := range m.pairs {
		if e.judgment == domain.JudgmentFalse {
			negatives = append(negatives, key)
		}
	}
	sort.Slice(negatives, func(i, j int) bool { return negatives[i].Less(negatives[j]) })
	for _, key := range negatives {
		if t, same := m.sharedClass(key); same {
			problems.add(0, fmt.Errorf("pair %s, %s is confirmed-false but both fragments are in one %s clone class",
				m.fragments[key.A].ID, m.fragments[key.B].ID, t))
		}
	}

	if err := problems.err(); err != nil {
		return nil, err
	}
	return m, nil
}

func loadFragments(store domain.FragmentStore) (*Model, error) {
	type located struct {
		raw domain.FragmentID
		loc domain.FragmentLocation
	}
	var all []located
	for id := range store.AllIdentifiers() {
		loc, err := store.Fragment(id)
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("fragment %s", id), err)
		}
		loc.Path = domain.NormalizePath(loc.Path)
		if err := loc.Validate(); err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("fragment %s", id), err)
		}
		all = append(all, located{raw: id, loc: loc})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].loc.ID() < all[j].loc.ID() })

	m := &Model{
		fragments: make([]domain.Fragment, 0, len(all)),
		byID:      make(map[domain.FragmentID]domain.FragmentHandle, len(all)),
	}
	for _, a := range all {
		canonical := a.loc.ID()
		h, ok := m.byID[canonical]
		if !ok {
			h = domain.FragmentHandle(len(m.fragments))
			m.fragments = append(m.fragments, domain.Fragment{
				Handle:    h,
				ID:        canonical,
				Path:      a.loc.Path,
				StartLine: a.loc.StartLine,
				EndLine:   a.loc.EndLine,
				Project:   projectOf(a.loc.Path),
			})
			m.byID[canonical] = h
		}
		m.byID[a.raw] = h
	}
	m.indexPaths()
	return m, nil
}

func projectOf(p string) string {
	p = strings.TrimPrefix(p, "/")
	if i := strings.Index(p, "/"); i > 0 {
		return p[:i]
	}
	return ""
}

func (m *Model) resolveDeclaration(d domain.ReferenceDeclaration) (domain.PairKey, entry, error) {
	a, err := m.lookupDeclared(d.First)
	if err != nil {
		return domain.PairKey{}, entry{}, err
	}
	b, err := m.lookupDeclared(d.Second)
	if err != nil {
		return domain.PairKey{}, entry{}, err
	}
	key, ok := domain.NewPairKey(a, b)
	if !ok {
		return domain.PairKey{}, entry{}, fmt.Errorf("self pair %s", d.First)
	}

	if strings.TrimSpace(d.Judgment) == "" {
		return domain.PairKey{}, entry{}, fmt.Errorf("missing judgment for %s, %s", d.First, d.Second)
	}
	judgment, err := domain.ParseJudgment(d.Judgment)
	if err != nil {
		return domain.PairKey{}, entry{}, err
	}
	typ := domain.Unclassified
	if strings.TrimSpace(d.Type) != "" {
		if typ, err = domain.ParseSimilarityType(d.Type); err != nil {
			return domain.PairKey{}, entry{}, err
		}
	}
	if judgment == domain.JudgmentTrue && !typ.IsStratum() {
		return domain.PairKey{}, entry{}, fmt.Errorf("confirmed-true pair %s, %s needs a similarity type", d.First, d.Second)
	}
	return key, entry{judgment: judgment, typ: typ}, nil
}

func (m *Model) lookupDeclared(id domain.FragmentID) (domain.FragmentHandle, error) {
	if h, ok := m.byID[id]; ok {
		return h, nil
	}
	loc, err := domain.ParseFragmentID(id)
	if err != nil {
		return 0, err
	}
	if h, ok := m.byID[loc.ID()]; ok {
		return h, nil
	}
	return 0, fmt.Errorf("unknown fragment identifier %s", id)
}

// buildClasses derives clone classes as connected components of the
// confirmed-true edges of each type.
func (m *Model) buildClasses() {
	sets := make(map[domain.SimilarityType]*unionFind)
	for key, e := range m.pairs {
		if e.judgment != domain.JudgmentTrue {
			continue
		}
		uf, ok := sets[e.typ]
		if !ok {
			uf = newUnionFind()
			sets[e.typ] = uf
		}
		uf.union(key.A, key.B)
	}

	m.classes = make(map[domain.SimilarityType][]domain.CloneClass, len(sets))
	m.classOf = make(map[domain.SimilarityType]map[domain.FragmentHandle]int, len(sets))
	m.population = make(map[domain.SimilarityType]int64, len(sets))
	for _, t := range domain.SimilarityTypes {
		uf, ok := sets[t]
		if !ok {
			continue
		}
		comps := uf.components()
		classes := make([]domain.CloneClass, len(comps))
		index := make(map[domain.FragmentHandle]int)
		var pop int64
		for i, members := range comps {
			classes[i] = domain.CloneClass{ID: i + 1, Type: t, Members: members}
			pop += classes[i].PairCount()
			for _, h := range members {
				index[h] = i
			}
		}
		m.classes[t] = classes
		m.classOf[t] = index
		m.population[t] = pop
	}
}

// sharedClass reports the first type whose clone classes hold both fragments
// of key. A confirmed-false pair may not sit inside a class of any type.
func (m *Model) sharedClass(key domain.PairKey) (domain.SimilarityType, bool) {
	for _, st := range domain.SimilarityTypes {
		idx := m.classOf[st]
		ca, okA := idx[key.A]
		cb, okB := idx[key.B]
		if okA && okB && ca == cb {
			return st, true
		}
	}
	return domain.Unclassified, false
}

type problemList struct {
	errs  []error
	total int
}

func (p *problemList) add(line int, err error) {
	p.total++
	if len(p.errs) >= domain.MaxReportedReferenceErrors {
		return
	}
	if line > 0 {
		err = fmt.Errorf("entry %d: %w", line, err)
	}
	p.errs = append(p.errs, err)
}

func (p *problemList) err() error {
	if p.total == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d invalid reference entries", p.total)
	if p.total > len(p.errs) {
		msg += fmt.Sprintf(" (first %d shown)", len(p.errs))
	}
	return domain.NewMalformedReferenceError(msg, errors.Join(p.errs...))
}
