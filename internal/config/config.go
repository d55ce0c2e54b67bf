package config

import (
	"path/filepath"

	"github.com/ludo-technologies/cloneval/domain"
)

// ConfigFileName is the dedicated configuration file searched for by the loader
const ConfigFileName = ".cloneval.toml"

// Config represents the structure of .cloneval.toml.
// Scalar fields that have a meaningful zero value are pointers so that an
// unset key never overrides a default.
type Config struct {
	Corpus      CorpusConfig      `toml:"corpus"`
	Reference   ReferenceConfig   `toml:"reference"`
	Tool        ToolConfig        `toml:"tool"`
	Sampling    SamplingConfig    `toml:"sampling"`
	Oracle      OracleConfig      `toml:"oracle"`
	Output      OutputConfig      `toml:"output"`
	Performance PerformanceConfig `toml:"performance"`
}

// CorpusConfig represents the [corpus] section
type CorpusConfig struct {
	Index   string   `toml:"index"`
	Root    string   `toml:"root"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// ReferenceConfig represents the [reference] section
type ReferenceConfig struct {
	Path string `toml:"path"`
}

// ToolConfig represents the [tool] section
type ToolConfig struct {
	Name             string   `toml:"name"`
	Command          []string `toml:"command"`
	WorkingDir       string   `toml:"working_dir"`
	TimeoutSeconds   *int     `toml:"timeout_seconds"`
	MaxReportedPairs *int     `toml:"max_reported_pairs"`
	OutputFormat     string   `toml:"output_format"`
	LineTolerance    *int     `toml:"line_tolerance"`
	Env              []string `toml:"env"`
}

// SamplingConfig represents the [sampling] section
type SamplingConfig struct {
	Seed               *uint64  `toml:"seed"`
	SampleSize         *int     `toml:"sample_size"`
	MinClasses         *int     `toml:"min_classes"`
	AllowPartialSample *bool    `toml:"allow_partial_sample"`
	ConfidenceLevel    *float64 `toml:"confidence_level"`
	IntervalMethod     string   `toml:"interval_method"`
}

// OracleConfig represents the [oracle] section
type OracleConfig struct {
	Kind             string   `toml:"kind"`
	EscalationBudget *int     `toml:"escalation_budget"`
	Path             string   `toml:"path"`
	Command          []string `toml:"command"`
	TimeoutSeconds   *int     `toml:"timeout_seconds"`
}

// OutputConfig represents the [output] section
type OutputConfig struct {
	Format  string `toml:"format"`
	Path    string `toml:"path"`
	Details *bool  `toml:"details"`
}

// PerformanceConfig represents the [performance] section
type PerformanceConfig struct {
	MaxWorkers *int `toml:"max_workers"`
}

// ApplyTo copies every set value onto req. Relative file paths are resolved
// against baseDir, normally the directory holding the config file.
func (c *Config) ApplyTo(req *domain.EvaluationRequest, baseDir string) error {
	if c.Corpus.Index != "" {
		req.CorpusIndexPath = resolvePath(baseDir, c.Corpus.Index)
	}
	if c.Corpus.Root != "" {
		req.CorpusRoot = resolvePath(baseDir, c.Corpus.Root)
	}
	if len(c.Corpus.Include) > 0 {
		req.IncludePatterns = c.Corpus.Include
	}
	if len(c.Corpus.Exclude) > 0 {
		req.ExcludePatterns = c.Corpus.Exclude
	}

	if c.Reference.Path != "" {
		req.ReferencePath = resolvePath(baseDir, c.Reference.Path)
	}

	c.applyTool(&req.Tool, baseDir)
	c.applySampling(&req.Sampling)
	c.applyOracle(&req.Oracle, baseDir)

	if c.Output.Format != "" {
		format, err := domain.ParseOutputFormat(c.Output.Format)
		if err != nil {
			return domain.NewConfigError("invalid [output] format", err)
		}
		req.OutputFormat = format
	}
	if c.Output.Path != "" {
		req.OutputPath = resolvePath(baseDir, c.Output.Path)
	}
	if c.Output.Details != nil {
		req.ShowDetails = *c.Output.Details
	}

	if c.Performance.MaxWorkers != nil {
		req.MaxWorkers = *c.Performance.MaxWorkers
	}
	return nil
}

func (c *Config) applyTool(tool *domain.ToolConfig, baseDir string) {
	t := c.Tool
	if t.Name != "" {
		tool.Name = t.Name
	}
	if len(t.Command) > 0 {
		tool.Command = t.Command
	}
	if t.WorkingDir != "" {
		tool.WorkingDir = resolvePath(baseDir, t.WorkingDir)
	}
	if t.TimeoutSeconds != nil {
		tool.TimeoutSeconds = *t.TimeoutSeconds
	}
	if t.MaxReportedPairs != nil {
		tool.MaxReportedPairs = *t.MaxReportedPairs
	}
	if t.OutputFormat != "" {
		tool.OutputFormat = domain.ToolOutputFormat(t.OutputFormat)
	}
	if t.LineTolerance != nil {
		tool.LineTolerance = *t.LineTolerance
	}
	if len(t.Env) > 0 {
		tool.Env = t.Env
	}
}

func (c *Config) applySampling(s *domain.SamplingConfig) {
	cfg := c.Sampling
	if cfg.Seed != nil {
		s.Seed = domain.Uint64Ptr(*cfg.Seed)
	}
	if cfg.SampleSize != nil {
		s.SampleSize = *cfg.SampleSize
	}
	if cfg.MinClasses != nil {
		s.MinClasses = *cfg.MinClasses
	}
	if cfg.AllowPartialSample != nil {
		s.AllowPartialSample = domain.BoolPtr(*cfg.AllowPartialSample)
	}
	if cfg.ConfidenceLevel != nil {
		s.ConfidenceLevel = *cfg.ConfidenceLevel
	}
	if cfg.IntervalMethod != "" {
		s.IntervalMethod = domain.IntervalMethod(cfg.IntervalMethod)
	}
}

func (c *Config) applyOracle(o *domain.OracleConfig, baseDir string) {
	cfg := c.Oracle
	if cfg.Kind != "" {
		o.Kind = domain.OracleKind(cfg.Kind)
	}
	if cfg.EscalationBudget != nil {
		o.EscalationBudget = domain.IntPtr(*cfg.EscalationBudget)
	}
	if cfg.Path != "" {
		o.Path = resolvePath(baseDir, cfg.Path)
	}
	if len(cfg.Command) > 0 {
		o.Command = cfg.Command
	}
	if cfg.TimeoutSeconds != nil {
		o.TimeoutSeconds = *cfg.TimeoutSeconds
	}
}

func resolvePath(baseDir, p string) string {
	if p == "" || baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
