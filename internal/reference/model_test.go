package reference

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/cloneval/domain"
)

func testStore(n int) *MemoryStore {
	locs := make([]domain.FragmentLocation, n)
	for i := range locs {
		locs[i] = domain.FragmentLocation{
			Path:      fmt.Sprintf("proj%d/src/F%02d.java", i%2, i),
			StartLine: 10,
			EndLine:   30,
		}
	}
	return NewMemoryStore(locs)
}

func fid(i int) domain.FragmentID {
	return domain.FragmentID(fmt.Sprintf("proj%d/src/F%02d.java:10-30", i%2, i))
}

func decl(a, b int, typ, judgment string) domain.ReferenceDeclaration {
	return domain.ReferenceDeclaration{First: fid(a), Second: fid(b), Type: typ, Judgment: judgment}
}

func mustBuild(t *testing.T, store domain.FragmentStore, decls ...domain.ReferenceDeclaration) *Model {
	t.Helper()
	m, err := Build(store, decls)
	require.NoError(t, err)
	return m
}

func key(t *testing.T, m *Model, a, b int) domain.PairKey {
	t.Helper()
	ha, ok := m.Lookup(fid(a))
	require.True(t, ok)
	hb, ok := m.Lookup(fid(b))
	require.True(t, ok)
	k, ok := domain.NewPairKey(ha, hb)
	require.True(t, ok)
	return k
}

func TestBuild_ClassesAreConnectedComponents(t *testing.T) {
	m := mustBuild(t, testStore(8),
		decl(0, 1, "T1", "true"),
		decl(1, 2, "T1", "true"),
		decl(4, 5, "T1", "true"),
		decl(0, 3, "T2", "true"),
		decl(6, 7, "T2", "false"),
	)

	t1 := m.ClassesOf(domain.Type1)
	require.Len(t, t1, 2)
	assert.Equal(t, 3, t1[0].Size())
	assert.Equal(t, 2, t1[1].Size())
	assert.Equal(t, int64(3+1), m.Population(domain.Type1))

	t2 := m.ClassesOf(domain.Type2)
	require.Len(t, t2, 1)
	assert.Equal(t, int64(1), m.Population(domain.Type2))

	assert.Empty(t, m.ClassesOf(domain.WeaklyType3Type4))
	assert.Equal(t, int64(0), m.Population(domain.WeaklyType3Type4))

	for _, c := range t1 {
		for i := 1; i < len(c.Members); i++ {
			assert.Less(t, c.Members[i-1], c.Members[i])
		}
	}
}

func TestBuild_InsertionOrderIndependent(t *testing.T) {
	decls := []domain.ReferenceDeclaration{
		decl(0, 1, "T1", "true"),
		decl(2, 3, "T1", "true"),
		decl(1, 4, "T1", "true"),
		decl(5, 6, "ST3", "true"),
		decl(6, 7, "ST3", "true"),
		decl(3, 7, "MT3", "false"),
	}
	base := mustBuild(t, testStore(8), decls...)

	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10; i++ {
		shuffled := append([]domain.ReferenceDeclaration(nil), decls...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		m := mustBuild(t, testStore(8), shuffled...)
		for _, st := range domain.SimilarityTypes {
			assert.Equal(t, base.ClassesOf(st), m.ClassesOf(st))
		}
	}
}

func TestJudge_SymmetricAndTransitive(t *testing.T) {
	m := mustBuild(t, testStore(6),
		decl(0, 1, "T2", "true"),
		decl(1, 2, "T2", "true"),
		decl(3, 4, "VST3", "false"),
		decl(4, 5, "", "unknown"),
	)

	tests := []struct {
		name     string
		a, b     int
		judgment domain.Judgment
		typ      domain.SimilarityType
	}{
		{"declared true", 0, 1, domain.JudgmentTrue, domain.Type2},
		{"implied by class", 0, 2, domain.JudgmentTrue, domain.Type2},
		{"declared false", 3, 4, domain.JudgmentFalse, domain.VeryStronglyType3},
		{"declared unknown", 4, 5, domain.JudgmentUnknown, domain.Unclassified},
		{"undeclared", 0, 5, domain.JudgmentUnknown, domain.Unclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := key(t, m, tt.a, tt.b)
			j, typ := m.Judge(k)
			assert.Equal(t, tt.judgment, j)
			assert.Equal(t, tt.typ, typ)

			swapped := domain.PairKey{A: k.B, B: k.A}
			j2, typ2 := m.Judge(swapped)
			assert.Equal(t, j, j2)
			assert.Equal(t, typ, typ2)
		})
	}
}

func TestJudge_SymmetryOverAllPairs(t *testing.T) {
	m := mustBuild(t, testStore(10),
		decl(0, 1, "T1", "true"),
		decl(2, 1, "T1", "true"),
		decl(3, 4, "MT3", "false"),
		decl(5, 6, "WT3/T4", "true"),
		decl(7, 8, "ST3", "unknown"),
	)
	for a := 0; a < m.Len(); a++ {
		for b := 0; b < m.Len(); b++ {
			if a == b {
				continue
			}
			j1, t1 := m.Judge(domain.PairKey{A: domain.FragmentHandle(a), B: domain.FragmentHandle(b)})
			j2, t2 := m.Judge(domain.PairKey{A: domain.FragmentHandle(b), B: domain.FragmentHandle(a)})
			assert.Equal(t, j1, j2)
			assert.Equal(t, t1, t2)
		}
	}
}

func TestBuild_MalformedReference(t *testing.T) {
	tests := []struct {
		name    string
		decls   []domain.ReferenceDeclaration
		wantMsg string
	}{
		{
			name:    "unknown fragment",
			decls:   []domain.ReferenceDeclaration{{First: fid(0), Second: "nowhere/X.java:1-2", Type: "T1", Judgment: "true"}},
			wantMsg: "unknown fragment identifier",
		},
		{
			name:    "malformed identifier",
			decls:   []domain.ReferenceDeclaration{{First: fid(0), Second: "garbage", Type: "T1", Judgment: "true"}},
			wantMsg: "missing line range",
		},
		{
			name:    "self pair",
			decls:   []domain.ReferenceDeclaration{decl(1, 1, "T1", "true")},
			wantMsg: "self pair",
		},
		{
			name:    "bad type",
			decls:   []domain.ReferenceDeclaration{decl(0, 1, "T9", "true")},
			wantMsg: "unknown similarity type",
		},
		{
			name:    "bad judgment",
			decls:   []domain.ReferenceDeclaration{decl(0, 1, "T1", "perhaps")},
			wantMsg: "unknown judgment",
		},
		{
			name:    "true without type",
			decls:   []domain.ReferenceDeclaration{decl(0, 1, "", "true")},
			wantMsg: "needs a similarity type",
		},
		{
			name:    "conflicting duplicate",
			decls:   []domain.ReferenceDeclaration{decl(0, 1, "T1", "true"), decl(1, 0, "T1", "false")},
			wantMsg: "conflicting declaration",
		},
		{
			name: "transitivity violation",
			decls: []domain.ReferenceDeclaration{
				decl(0, 1, "T1", "true"),
				decl(1, 2, "T1", "true"),
				decl(0, 2, "T1", "false"),
			},
			wantMsg: "confirmed-false",
		},
		{
			name: "false pair inside a class of another type",
			decls: []domain.ReferenceDeclaration{
				decl(0, 1, "T1", "true"),
				decl(1, 2, "T1", "true"),
				decl(0, 2, "T2", "false"),
			},
			wantMsg: "one T1 clone class",
		},
		{
			name: "untyped false pair inside a class",
			decls: []domain.ReferenceDeclaration{
				decl(0, 1, "ST3", "true"),
				decl(1, 2, "ST3", "true"),
				decl(2, 0, "", "false"),
			},
			wantMsg: "confirmed-false",
		},
		{
			name:    "missing judgment",
			decls:   []domain.ReferenceDeclaration{decl(0, 1, "T1", "")},
			wantMsg: "missing judgment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Build(testStore(4), tt.decls)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, domain.HasCode(err, domain.ErrCodeMalformedReference))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestBuild_IdenticalDuplicateIsAccepted(t *testing.T) {
	m := mustBuild(t, testStore(3), decl(0, 1, "T1", "true"), decl(1, 0, "type-1", "yes"))
	assert.Equal(t, 1, m.DeclaredPairs())
}

func TestBuild_ReportsEveryProblem(t *testing.T) {
	decls := make([]domain.ReferenceDeclaration, 0, 30)
	for i := 0; i < 30; i++ {
		decls = append(decls, domain.ReferenceDeclaration{First: fid(0), Second: domain.FragmentID(fmt.Sprintf("missing/%d.java:1-2", i)), Type: "T1", Judgment: "true"})
	}
	_, err := Build(testStore(2), decls)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "30 invalid reference entries")
	assert.Contains(t, err.Error(), "first 20 shown")
}

func TestResolve(t *testing.T) {
	store := NewMemoryStore([]domain.FragmentLocation{
		{Path: "src/A.java", StartLine: 10, EndLine: 20},
		{Path: "src/A.java", StartLine: 30, EndLine: 40},
		{Path: "src/B.java", StartLine: 1, EndLine: 5},
	})
	m := mustBuild(t, store)

	tests := []struct {
		name      string
		loc       domain.FragmentLocation
		tolerance int
		wantID    domain.FragmentID
		wantOK    bool
	}{
		{"exact", domain.FragmentLocation{Path: "src/A.java", StartLine: 10, EndLine: 20}, 0, "src/A.java:10-20", true},
		{"exact with unclean path", domain.FragmentLocation{Path: "./src/A.java", StartLine: 30, EndLine: 40}, 0, "src/A.java:30-40", true},
		{"drift without tolerance", domain.FragmentLocation{Path: "src/A.java", StartLine: 11, EndLine: 20}, 0, "", false},
		{"drift within tolerance", domain.FragmentLocation{Path: "src/A.java", StartLine: 11, EndLine: 21}, 2, "src/A.java:10-20", true},
		{"drift beyond tolerance", domain.FragmentLocation{Path: "src/A.java", StartLine: 14, EndLine: 20}, 2, "", false},
		{"unknown file", domain.FragmentLocation{Path: "src/C.java", StartLine: 1, EndLine: 5}, 5, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := m.Resolve(tt.loc, tt.tolerance)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantID, m.Fragment(h).ID)
			}
		})
	}
}

func TestModel_HandlesFollowIdentifierOrder(t *testing.T) {
	store := NewMemoryStore([]domain.FragmentLocation{
		{Path: "z/Z.java", StartLine: 1, EndLine: 2},
		{Path: "a/A.java", StartLine: 1, EndLine: 2},
	})
	m := mustBuild(t, store)
	assert.Equal(t, domain.FragmentID("a/A.java:1-2"), m.Fragment(0).ID)
	assert.Equal(t, "a", m.Fragment(0).Project)
	assert.Nil(t, m.Fragment(5))
	assert.Nil(t, m.Fragment(-1))
}

func TestModel_Summary(t *testing.T) {
	m := mustBuild(t, testStore(6),
		decl(0, 1, "T1", "true"),
		decl(1, 2, "T1", "true"),
		decl(3, 4, "T1", "false"),
		decl(4, 5, "T2", "unknown"),
	)
	s := m.Summary()
	assert.Equal(t, 6, s.Fragments)
	assert.Equal(t, 4, s.DeclaredPairs)
	assert.Equal(t, 2, s.Judgments["true"])
	assert.Equal(t, 1, s.Judgments["false"])
	assert.Equal(t, 1, s.Judgments["unknown"])
	require.Len(t, s.Strata, len(domain.SimilarityTypes))
	assert.Equal(t, domain.Type1, s.Strata[0].Type)
	assert.Equal(t, 1, s.Strata[0].Classes)
	assert.Equal(t, 3, s.Strata[0].Fragments)
	assert.Equal(t, int64(3), s.Strata[0].KnownPairs)
	assert.Equal(t, 3, s.Strata[0].LargestClass)
}
