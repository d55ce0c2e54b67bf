package adapter

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ludo-technologies/cloneval/domain"
)

// FragmentResolver maps detector coordinates to fragment handles.
type FragmentResolver interface {
	Resolve(loc domain.FragmentLocation, tolerance int) (domain.FragmentHandle, bool)
}

type unmappedKey struct {
	first, second domain.FragmentLocation
}

// collector normalizes raw records into deduplicated reported pairs.
type collector struct {
	resolver  FragmentResolver
	tolerance int
	roots     []string
	limit     int
	logger    *slog.Logger

	pairs    map[domain.PairKey]domain.ReportedPair
	unmapped map[unmappedKey]domain.UnmappedPair
	out      domain.ToolOutput
}

func newCollector(resolver FragmentResolver, cfg domain.ToolConfig, logger *slog.Logger) *collector {
	return &collector{
		resolver:  resolver,
		tolerance: cfg.LineTolerance,
		roots:     rootPrefixes(cfg.CorpusRoot),
		limit:     cfg.MaxReportedPairs,
		logger:    logger,
		pairs:     make(map[domain.PairKey]domain.ReportedPair),
		unmapped:  make(map[unmappedKey]domain.UnmappedPair),
	}
}

// rootPrefixes returns the absolute and the cleaned relative form of the
// corpus root, each with a trailing slash.
func rootPrefixes(root string) []string {
	if root == "" {
		return nil
	}
	var prefixes []string
	if abs, err := filepath.Abs(root); err == nil {
		prefixes = append(prefixes, strings.TrimSuffix(filepath.ToSlash(abs), "/")+"/")
	}
	if rel := domain.NormalizePath(root); rel != "." && rel != "/" {
		prefixes = append(prefixes, strings.TrimSuffix(rel, "/")+"/")
	}
	return prefixes
}

// add records one raw record. It fails once the record cap is exceeded.
func (c *collector) add(rec rawRecord) error {
	c.out.RawRecords++
	if c.out.RawRecords > c.limit {
		return domain.NewToolOutputLimitError(c.limit)
	}

	first := c.normalize(rec.First)
	second := c.normalize(rec.Second)
	if first == second {
		c.selfPair(first)
		return nil
	}

	a, okA := c.resolver.Resolve(first, c.tolerance)
	b, okB := c.resolver.Resolve(second, c.tolerance)
	if !okA || !okB {
		c.unresolved(first, second, okA, okB)
		return nil
	}

	key, ok := domain.NewPairKey(a, b)
	if !ok {
		c.selfPair(first)
		return nil
	}
	if prev, dup := c.pairs[key]; dup {
		c.out.DuplicatePairs++
		if rec.HasScore && (!prev.HasScore || rec.Score > prev.Score) {
			prev.Score, prev.HasScore = rec.Score, true
			c.pairs[key] = prev
		}
		return nil
	}
	c.pairs[key] = domain.ReportedPair{Key: key, Score: rec.Score, HasScore: rec.HasScore}
	return nil
}

func (c *collector) normalize(loc domain.FragmentLocation) domain.FragmentLocation {
	p := domain.NormalizePath(filepath.ToSlash(loc.Path))
	for _, root := range c.roots {
		if strings.HasPrefix(p, root) {
			p = strings.TrimPrefix(p, root)
			break
		}
	}
	loc.Path = p
	return loc
}

func (c *collector) selfPair(loc domain.FragmentLocation) {
	c.out.SelfPairs++
	c.logger.Debug("self pair rejected", "fragment", loc.ID())
}

func (c *collector) unresolved(first, second domain.FragmentLocation, okA, okB bool) {
	k := unmappedKey{first: first, second: second}
	if locationLess(second, first) {
		k = unmappedKey{first: second, second: first}
	}
	if _, seen := c.unmapped[k]; seen {
		return
	}
	var err error
	switch {
	case !okA:
		err = domain.NewUnresolvedFragmentError(first.Path, first.StartLine, first.EndLine)
	default:
		err = domain.NewUnresolvedFragmentError(second.Path, second.StartLine, second.EndLine)
	}
	c.unmapped[k] = domain.UnmappedPair{First: k.first, Second: k.second, Reason: err.Error()}
	c.logger.Debug("unmapped pair", "first", first.ID(), "second", second.ID(), "error", err)
}

func locationLess(a, b domain.FragmentLocation) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	if a.StartLine != b.StartLine {
		return a.StartLine < b.StartLine
	}
	return a.EndLine < b.EndLine
}

// result returns the pairs sorted by key and unmapped pairs sorted by location.
func (c *collector) result() *domain.ToolOutput {
	out := c.out
	out.Pairs = make([]domain.ReportedPair, 0, len(c.pairs))
	for _, p := range c.pairs {
		out.Pairs = append(out.Pairs, p)
	}
	sort.Slice(out.Pairs, func(i, j int) bool { return out.Pairs[i].Key.Less(out.Pairs[j].Key) })

	out.Unmapped = make([]domain.UnmappedPair, 0, len(c.unmapped))
	for _, u := range c.unmapped {
		out.Unmapped = append(out.Unmapped, u)
	}
	sort.Slice(out.Unmapped, func(i, j int) bool {
		a, b := out.Unmapped[i], out.Unmapped[j]
		if a.First != b.First {
			return locationLess(a.First, b.First)
		}
		return locationLess(a.Second, b.Second)
	})
	return &out
}
