package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/reference"
)

// CorpusIndexStore is the FragmentStore backed by a corpus index file.
//
// The index is CSV with one fragment per row: path,start,end[,project].
// When project is present it is prepended to path, which matches the
// directory/file layout of BigCloneBench exports. Lines starting with # and
// a header row beginning with "path" are skipped.
type CorpusIndexStore struct {
	store    *reference.MemoryStore
	filtered int
}

var _ domain.FragmentStore = (*CorpusIndexStore)(nil)

// LoadCorpusIndex reads an index file. Fragments whose path matches no
// include pattern (when any are given) or any exclude pattern are left out.
func LoadCorpusIndex(indexPath string, include, exclude []string) (*CorpusIndexStore, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(indexPath, err)
		}
		return nil, domain.NewInvalidInputError("cannot open corpus index", err)
	}
	defer f.Close()

	store, err := ReadCorpusIndex(f, include, exclude)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", indexPath, err)
	}
	return store, nil
}

// ReadCorpusIndex parses an index from r
func ReadCorpusIndex(r io.Reader, include, exclude []string) (*CorpusIndexStore, error) {
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, domain.NewConfigError(fmt.Sprintf("invalid corpus pattern %q", p), nil)
		}
	}

	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		locations []domain.FragmentLocation
		filtered  int
		first     = true
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.NewInvalidInputError("malformed corpus index", err)
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "path") {
				continue
			}
		}

		loc, err := parseIndexRecord(rec)
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("corpus index line %d", line), err)
		}
		if !selected(loc.Path, include, exclude) {
			filtered++
			continue
		}
		locations = append(locations, loc)
	}

	return &CorpusIndexStore{
		store:    reference.NewMemoryStore(locations),
		filtered: filtered,
	}, nil
}

func parseIndexRecord(rec []string) (domain.FragmentLocation, error) {
	if len(rec) != 3 && len(rec) != 4 {
		return domain.FragmentLocation{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(rec))
	}
	p := strings.TrimSpace(rec[0])
	if len(rec) == 4 {
		if project := strings.TrimSpace(rec[3]); project != "" {
			p = path.Join(project, p)
		}
	}
	start, err := strconv.Atoi(strings.TrimSpace(rec[1]))
	if err != nil {
		return domain.FragmentLocation{}, fmt.Errorf("invalid start line: %w", err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(rec[2]))
	if err != nil {
		return domain.FragmentLocation{}, fmt.Errorf("invalid end line: %w", err)
	}
	loc := domain.FragmentLocation{Path: domain.NormalizePath(p), StartLine: start, EndLine: end}
	if err := loc.Validate(); err != nil {
		return domain.FragmentLocation{}, err
	}
	return loc, nil
}

// selected applies include then exclude patterns. Patterns are matched
// against the full path and, for patterns without a slash, the base name.
func selected(p string, include, exclude []string) bool {
	if len(include) > 0 && !matchesAny(p, include) {
		return false
	}
	return !matchesAny(p, exclude)
}

func matchesAny(p string, patterns []string) bool {
	base := path.Base(p)
	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, p); matched {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if matched, _ := doublestar.Match(pattern, base); matched {
				return true
			}
		}
	}
	return false
}

// Fragment implements domain.FragmentStore
func (s *CorpusIndexStore) Fragment(id domain.FragmentID) (domain.FragmentLocation, error) {
	return s.store.Fragment(id)
}

// AllIdentifiers implements domain.FragmentStore
func (s *CorpusIndexStore) AllIdentifiers() iter.Seq[domain.FragmentID] {
	return s.store.AllIdentifiers()
}

// Len returns the number of fragments in the store
func (s *CorpusIndexStore) Len() int {
	return s.store.Len()
}

// Filtered returns how many index rows the include/exclude patterns removed
func (s *CorpusIndexStore) Filtered() int {
	return s.filtered
}
