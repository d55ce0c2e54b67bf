package domain

import (
	"fmt"
	"path"
	"strconv"
	"strings"
)

// SimilarityType is a stratum of the clone taxonomy, ordered by decreasing
// textual similarity. Unclassified collects reported pairs the reference
// does not type; it never owns clone classes.
type SimilarityType int

const (
	Unclassified SimilarityType = iota
	// Type1 - identical fragments except whitespace, layout and comments
	Type1
	// Type2 - identical structure with renamed identifiers or changed literals
	Type2
	// VeryStronglyType3 - near-miss clones with syntactic similarity in [0.9, 1.0)
	VeryStronglyType3
	// StronglyType3 - near-miss clones with syntactic similarity in [0.7, 0.9)
	StronglyType3
	// ModeratelyType3 - near-miss clones with syntactic similarity in [0.5, 0.7)
	ModeratelyType3
	// WeaklyType3Type4 - little shared text, similar structure or semantics
	WeaklyType3Type4
)

// SimilarityTypes lists the strata that own clone classes, in taxonomy order.
var SimilarityTypes = []SimilarityType{
	Type1, Type2, VeryStronglyType3, StronglyType3, ModeratelyType3, WeaklyType3Type4,
}

var similarityTypeNames = map[SimilarityType]string{
	Unclassified:      "Unclassified",
	Type1:             "T1",
	Type2:             "T2",
	VeryStronglyType3: "VST3",
	StronglyType3:     "ST3",
	ModeratelyType3:   "MT3",
	WeaklyType3Type4:  "WT3/T4",
}

var similarityTypeAliases = map[string]SimilarityType{
	"unclassified": Unclassified,
	"t1":           Type1,
	"type1":        Type1,
	"type-1":       Type1,
	"1":            Type1,
	"t2":           Type2,
	"type2":        Type2,
	"type-2":       Type2,
	"2":            Type2,
	"vst3":         VeryStronglyType3,
	"st3":          StronglyType3,
	"mt3":          ModeratelyType3,
	"wt3":          WeaklyType3Type4,
	"wt3/t4":       WeaklyType3Type4,
	"t4":           WeaklyType3Type4,
	"type4":        WeaklyType3Type4,
	"type-4":       WeaklyType3Type4,
	"4":            WeaklyType3Type4,
}

// String returns the short stratum label
func (t SimilarityType) String() string {
	if name, ok := similarityTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// IsStratum reports whether t is one of the taxonomy strata.
func (t SimilarityType) IsStratum() bool {
	return t >= Type1 && t <= WeaklyType3Type4
}

// MarshalText implements encoding.TextMarshaler
func (t SimilarityType) MarshalText() ([]byte, error) {
	if _, ok := similarityTypeNames[t]; !ok {
		return nil, fmt.Errorf("invalid similarity type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *SimilarityType) UnmarshalText(text []byte) error {
	parsed, err := ParseSimilarityType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseSimilarityType parses a stratum label such as "T1", "type-2" or "WT3/T4".
func ParseSimilarityType(s string) (SimilarityType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := similarityTypeAliases[key]; ok {
		return t, nil
	}
	return Unclassified, fmt.Errorf("unknown similarity type %q", s)
}

// Judgment is the ground-truth status of a pair.
type Judgment int

const (
	JudgmentUnknown Judgment = iota
	JudgmentTrue
	JudgmentFalse
)

// String returns the judgment label
func (j Judgment) String() string {
	switch j {
	case JudgmentTrue:
		return "true"
	case JudgmentFalse:
		return "false"
	default:
		return "unknown"
	}
}

// IsConfirmed reports whether the judgment is true or false.
func (j Judgment) IsConfirmed() bool {
	return j == JudgmentTrue || j == JudgmentFalse
}

// MarshalText implements encoding.TextMarshaler
func (j Judgment) MarshalText() ([]byte, error) {
	return []byte(j.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (j *Judgment) UnmarshalText(text []byte) error {
	parsed, err := ParseJudgment(string(text))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}

// ParseJudgment parses "true", "false", "unknown" and their common spellings.
func ParseJudgment(s string) (Judgment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "confirmed-true", "yes", "1", "tp":
		return JudgmentTrue, nil
	case "false", "confirmed-false", "no", "0", "fp":
		return JudgmentFalse, nil
	case "unknown", "", "?":
		return JudgmentUnknown, nil
	default:
		return JudgmentUnknown, fmt.Errorf("unknown judgment %q", s)
	}
}

// FragmentID is the stable identifier of a fragment: "path:start-end".
type FragmentID string

// FormatFragmentID builds the identifier for a path and inclusive line range.
func FormatFragmentID(p string, startLine, endLine int) FragmentID {
	return FragmentID(fmt.Sprintf("%s:%d-%d", NormalizePath(p), startLine, endLine))
}

// ParseFragmentID splits an identifier into its path and line range.
func ParseFragmentID(id FragmentID) (FragmentLocation, error) {
	s := string(id)
	colon := strings.LastIndex(s, ":")
	if colon <= 0 || colon == len(s)-1 {
		return FragmentLocation{}, fmt.Errorf("fragment id %q: missing line range", s)
	}
	lines := s[colon+1:]
	dash := strings.Index(lines, "-")
	if dash <= 0 {
		return FragmentLocation{}, fmt.Errorf("fragment id %q: malformed line range", s)
	}
	start, err := strconv.Atoi(lines[:dash])
	if err != nil {
		return FragmentLocation{}, fmt.Errorf("fragment id %q: bad start line: %w", s, err)
	}
	end, err := strconv.Atoi(lines[dash+1:])
	if err != nil {
		return FragmentLocation{}, fmt.Errorf("fragment id %q: bad end line: %w", s, err)
	}
	loc := FragmentLocation{Path: NormalizePath(s[:colon]), StartLine: start, EndLine: end}
	if err := loc.Validate(); err != nil {
		return FragmentLocation{}, fmt.Errorf("fragment id %q: %w", s, err)
	}
	return loc, nil
}

// NormalizePath cleans a corpus-relative path and uses forward slashes.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean(p), "./")
}

// FragmentLocation is where a fragment lives in the corpus.
type FragmentLocation struct {
	Path      string `json:"path" yaml:"path"`
	StartLine int    `json:"start_line" yaml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line"`
}

// Validate checks the line range
func (l FragmentLocation) Validate() error {
	if l.Path == "" {
		return fmt.Errorf("empty path")
	}
	if l.StartLine < 1 {
		return fmt.Errorf("start line must be >= 1, got %d", l.StartLine)
	}
	if l.EndLine < l.StartLine {
		return fmt.Errorf("end line %d before start line %d", l.EndLine, l.StartLine)
	}
	return nil
}

// ID returns the identifier of the location
func (l FragmentLocation) ID() FragmentID {
	return FormatFragmentID(l.Path, l.StartLine, l.EndLine)
}

// FragmentHandle indexes the fragment arena of a reference model.
type FragmentHandle int32

// Fragment is an immutable corpus unit.
type Fragment struct {
	Handle    FragmentHandle `json:"handle" yaml:"handle"`
	ID        FragmentID     `json:"id" yaml:"id"`
	Path      string         `json:"path" yaml:"path"`
	StartLine int            `json:"start_line" yaml:"start_line"`
	EndLine   int            `json:"end_line" yaml:"end_line"`
	Project   string         `json:"project" yaml:"project"`
}

// Size returns the fragment's line count
func (f *Fragment) Size() int {
	return f.EndLine - f.StartLine + 1
}

// String returns the fragment identifier
func (f *Fragment) String() string {
	return string(f.ID)
}

// PairKey is an unordered pair of fragment handles with A < B.
type PairKey struct {
	A FragmentHandle
	B FragmentHandle
}

// NewPairKey normalizes two handles into a key. ok is false for a self pair.
func NewPairKey(a, b FragmentHandle) (key PairKey, ok bool) {
	switch {
	case a == b:
		return PairKey{}, false
	case a < b:
		return PairKey{A: a, B: b}, true
	default:
		return PairKey{A: b, B: a}, true
	}
}

// Less orders keys lexicographically
func (k PairKey) Less(o PairKey) bool {
	if k.A != o.A {
		return k.A < o.A
	}
	return k.B < o.B
}

// ClonePair is a judged pair from the ground truth.
type ClonePair struct {
	Key      PairKey        `json:"key" yaml:"key"`
	Type     SimilarityType `json:"type" yaml:"type"`
	Judgment Judgment       `json:"judgment" yaml:"judgment"`
}

// CloneClass is a maximal set of fragments mutually confirmed-true at one type.
type CloneClass struct {
	ID      int              `json:"id" yaml:"id"`
	Type    SimilarityType   `json:"type" yaml:"type"`
	Members []FragmentHandle `json:"members" yaml:"members"`
}

// Size returns the number of fragments in the class
func (c *CloneClass) Size() int {
	return len(c.Members)
}

// PairCount returns k(k-1)/2
func (c *CloneClass) PairCount() int64 {
	k := int64(len(c.Members))
	return k * (k - 1) / 2
}

// Pairs calls fn for every member pair; iteration stops when fn returns false.
func (c *CloneClass) Pairs(fn func(PairKey) bool) {
	for i := 0; i < len(c.Members); i++ {
		for j := i + 1; j < len(c.Members); j++ {
			key, _ := NewPairKey(c.Members[i], c.Members[j])
			if !fn(key) {
				return
			}
		}
	}
}

// ReportedPair is a candidate pair surfaced by a detector.
type ReportedPair struct {
	Key      PairKey `json:"key" yaml:"key"`
	Score    float64 `json:"score,omitempty" yaml:"score,omitempty"`
	HasScore bool    `json:"has_score" yaml:"has_score"`
}

// UnmappedPair is a detector record whose endpoints do not resolve to fragments.
type UnmappedPair struct {
	First  FragmentLocation `json:"first" yaml:"first"`
	Second FragmentLocation `json:"second" yaml:"second"`
	Reason string           `json:"reason" yaml:"reason"`
}
