package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/reference"
)

// None is the oracle used when no external judge is configured.
type None struct{}

// Judge always answers unknown
func (None) Judge(context.Context, *domain.Fragment, *domain.Fragment) (domain.OracleVerdict, error) {
	return domain.OracleVerdict{Judgment: domain.JudgmentUnknown}, nil
}

// FileOracle answers from a pre-recorded judgments file, typically the
// output of an earlier manual review.
type FileOracle struct {
	verdicts map[[2]domain.FragmentID]domain.OracleVerdict
}

// NewFileOracle indexes declarations by unordered identifier pair.
func NewFileOracle(decls []domain.ReferenceDeclaration) (*FileOracle, error) {
	o := &FileOracle{verdicts: make(map[[2]domain.FragmentID]domain.OracleVerdict, len(decls))}
	for i, d := range decls {
		j, err := domain.ParseJudgment(d.Judgment)
		if err != nil {
			return nil, domain.NewConfigError(fmt.Sprintf("oracle entry %d", i+1), err)
		}
		t := domain.Unclassified
		if d.Type != "" {
			if t, err = domain.ParseSimilarityType(d.Type); err != nil {
				return nil, domain.NewConfigError(fmt.Sprintf("oracle entry %d", i+1), err)
			}
		}
		o.verdicts[pairOf(canonical(d.First), canonical(d.Second))] = domain.OracleVerdict{Judgment: j, Type: t}
	}
	return o, nil
}

// LoadFileOracle reads a judgments file in any reference format.
func LoadFileOracle(path string) (*FileOracle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	defer f.Close()
	decls, err := reference.Decode(f, reference.FormatFromPath(path))
	if err != nil {
		return nil, domain.NewConfigError("cannot read oracle file "+path, err)
	}
	return NewFileOracle(decls)
}

// Judge implements domain.Oracle
func (o *FileOracle) Judge(_ context.Context, first, second *domain.Fragment) (domain.OracleVerdict, error) {
	if v, ok := o.verdicts[pairOf(first.ID, second.ID)]; ok {
		return v, nil
	}
	return domain.OracleVerdict{Judgment: domain.JudgmentUnknown}, nil
}

// Len returns the number of recorded verdicts
func (o *FileOracle) Len() int {
	return len(o.verdicts)
}

func canonical(id domain.FragmentID) domain.FragmentID {
	if loc, err := domain.ParseFragmentID(id); err == nil {
		return loc.ID()
	}
	return id
}

func pairOf(a, b domain.FragmentID) [2]domain.FragmentID {
	if b < a {
		a, b = b, a
	}
	return [2]domain.FragmentID{a, b}
}

// New builds the oracle selected by cfg.
func New(cfg domain.OracleConfig, logger *slog.Logger) (domain.Oracle, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch cfg.Kind {
	case domain.OracleNone, "":
		return None{}, nil
	case domain.OracleFile:
		o, err := LoadFileOracle(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("loaded oracle judgments", "path", cfg.Path, "verdicts", o.Len())
		return o, nil
	case domain.OracleCommand:
		o, err := NewCommandOracle(cfg.Command, cfg.TimeoutSeconds, logger)
		if err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, domain.NewConfigError(fmt.Sprintf("unknown oracle kind %q", cfg.Kind), nil)
	}
}
