package service

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/config"
)

// CLI flag names understood by MergeConfig. Only flags recorded as
// explicitly set override the configuration file.
const (
	FlagCorpus        = "corpus"
	FlagCorpusRoot    = "corpus-root"
	FlagInclude       = "include"
	FlagExclude       = "exclude"
	FlagReference     = "reference"
	FlagToolName      = "tool-name"
	FlagWorkingDir    = "working-dir"
	FlagTimeout       = "timeout"
	FlagMaxPairs      = "max-pairs"
	FlagToolFormat    = "tool-format"
	FlagLineTolerance = "line-tolerance"
	FlagSeed          = "seed"
	FlagSampleSize    = "sample-size"
	FlagMinClasses    = "min-classes"
	FlagPartialSample = "partial-sample"
	FlagConfidence    = "confidence"
	FlagInterval      = "interval"
	FlagOracle        = "oracle"
	FlagBudget        = "budget"
	FlagOraclePath    = "oracle-path"
	FlagOracleTimeout = "oracle-timeout"
	FlagWorkers       = "workers"
	FlagDetails       = "details"
	FlagJSON          = "json"
	FlagYAML          = "yaml"
	FlagCSV           = "csv"
	FlagOutput        = "output"
)

// EvaluationConfigurationLoaderImpl implements the EvaluationConfigurationLoader interface
type EvaluationConfigurationLoaderImpl struct {
	loader      *config.TomlConfigLoader
	flagTracker *config.FlagTracker
	startDir    string
}

var _ domain.EvaluationConfigurationLoader = (*EvaluationConfigurationLoaderImpl)(nil)

// NewEvaluationConfigurationLoader creates a loader. explicitFlags holds the
// names of command line flags the user actually set; it may be nil.
func NewEvaluationConfigurationLoader(explicitFlags map[string]bool) *EvaluationConfigurationLoaderImpl {
	return &EvaluationConfigurationLoaderImpl{
		loader:      config.NewTomlConfigLoader(),
		flagTracker: config.NewFlagTrackerWithFlags(explicitFlags),
		startDir:    ".",
	}
}

// WithStartDir sets the directory config discovery starts from
func (l *EvaluationConfigurationLoaderImpl) WithStartDir(dir string) *EvaluationConfigurationLoaderImpl {
	l.startDir = dir
	return l
}

// LoadConfig loads configuration from path, or discovers .cloneval.toml by
// walking up from the start directory when path is empty. Environment
// overrides are applied last. Finding no file is not an error.
func (l *EvaluationConfigurationLoaderImpl) LoadConfig(path string) (*domain.EvaluationRequest, error) {
	req := l.LoadDefaultConfig()

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = l.loader.LoadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(path, err)
		}
	} else {
		cfg, path, err = l.loader.Discover(l.startDir)
		if errors.Is(err, os.ErrNotExist) {
			cfg, err = nil, nil
		}
	}
	if err != nil {
		return nil, domain.NewConfigError("failed to load "+path, err)
	}

	if cfg != nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if err := cfg.ApplyTo(req, filepath.Dir(abs)); err != nil {
			return nil, err
		}
		req.ConfigPath = abs
	}

	if err := config.ApplyEnv(req); err != nil {
		return nil, err
	}
	return req, nil
}

// LoadDefaultConfig returns the built-in defaults
func (l *EvaluationConfigurationLoaderImpl) LoadDefaultConfig() *domain.EvaluationRequest {
	return domain.DefaultEvaluationRequest()
}

// MergeConfig merges CLI flags with configuration file, respecting explicit flags
func (l *EvaluationConfigurationLoaderImpl) MergeConfig(base *domain.EvaluationRequest, override *domain.EvaluationRequest) *domain.EvaluationRequest {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	ft := l.flagTracker
	merged := *base

	merged.CorpusIndexPath = ft.MergeString(merged.CorpusIndexPath, override.CorpusIndexPath, FlagCorpus)
	merged.CorpusRoot = ft.MergeString(merged.CorpusRoot, override.CorpusRoot, FlagCorpusRoot)
	merged.IncludePatterns = ft.MergeStringSlice(merged.IncludePatterns, override.IncludePatterns, FlagInclude)
	merged.ExcludePatterns = ft.MergeStringSlice(merged.ExcludePatterns, override.ExcludePatterns, FlagExclude)
	merged.ReferencePath = ft.MergeString(merged.ReferencePath, override.ReferencePath, FlagReference)

	// The tool command comes from positional arguments, never from a flag
	if len(override.Tool.Command) > 0 {
		merged.Tool.Command = override.Tool.Command
	}
	merged.Tool.Name = ft.MergeString(merged.Tool.Name, override.Tool.Name, FlagToolName)
	merged.Tool.WorkingDir = ft.MergeString(merged.Tool.WorkingDir, override.Tool.WorkingDir, FlagWorkingDir)
	merged.Tool.TimeoutSeconds = ft.MergeInt(merged.Tool.TimeoutSeconds, override.Tool.TimeoutSeconds, FlagTimeout)
	merged.Tool.MaxReportedPairs = ft.MergeInt(merged.Tool.MaxReportedPairs, override.Tool.MaxReportedPairs, FlagMaxPairs)
	merged.Tool.LineTolerance = ft.MergeInt(merged.Tool.LineTolerance, override.Tool.LineTolerance, FlagLineTolerance)
	if ft.WasSet(FlagToolFormat) {
		merged.Tool.OutputFormat = override.Tool.OutputFormat
	}

	merged.Sampling.Seed = ft.MergeUint64Ptr(merged.Sampling.Seed, override.Sampling.Seed, FlagSeed)
	merged.Sampling.SampleSize = ft.MergeInt(merged.Sampling.SampleSize, override.Sampling.SampleSize, FlagSampleSize)
	merged.Sampling.MinClasses = ft.MergeInt(merged.Sampling.MinClasses, override.Sampling.MinClasses, FlagMinClasses)
	merged.Sampling.ConfidenceLevel = ft.MergeFloat64(merged.Sampling.ConfidenceLevel, override.Sampling.ConfidenceLevel, FlagConfidence)
	if ft.WasSet(FlagPartialSample) && override.Sampling.AllowPartialSample != nil {
		merged.Sampling.AllowPartialSample = override.Sampling.AllowPartialSample
	}
	if ft.WasSet(FlagInterval) {
		merged.Sampling.IntervalMethod = override.Sampling.IntervalMethod
	}

	if ft.WasSet(FlagOracle) {
		merged.Oracle.Kind = override.Oracle.Kind
	}
	merged.Oracle.EscalationBudget = ft.MergeIntPtr(merged.Oracle.EscalationBudget, override.Oracle.EscalationBudget, FlagBudget)
	merged.Oracle.Path = ft.MergeString(merged.Oracle.Path, override.Oracle.Path, FlagOraclePath)
	merged.Oracle.TimeoutSeconds = ft.MergeInt(merged.Oracle.TimeoutSeconds, override.Oracle.TimeoutSeconds, FlagOracleTimeout)

	merged.MaxWorkers = ft.MergeInt(merged.MaxWorkers, override.MaxWorkers, FlagWorkers)

	if ft.AnySet(FlagJSON, FlagYAML, FlagCSV) {
		merged.OutputFormat = override.OutputFormat
	}
	merged.OutputPath = ft.MergeString(merged.OutputPath, override.OutputPath, FlagOutput)
	merged.ShowDetails = ft.MergeBool(merged.ShowDetails, override.ShowDetails, FlagDetails)
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}

	return &merged
}
