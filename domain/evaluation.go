package domain

import (
	"context"
	"io"
	"iter"
	"time"
)

// FragmentStore is the read-only corpus collaborator.
type FragmentStore interface {
	// Fragment returns the location of a fragment by identifier
	Fragment(id FragmentID) (FragmentLocation, error)

	// AllIdentifiers returns a finite, restartable sequence of identifiers
	AllIdentifiers() iter.Seq[FragmentID]
}

// ReferenceModel is the partial ground truth shared read-only by all workers.
type ReferenceModel interface {
	// Judge returns the judgment and stratum of an unordered pair
	Judge(key PairKey) (Judgment, SimilarityType)

	// ClassesOf returns the clone classes of a stratum in canonical order
	ClassesOf(t SimilarityType) []CloneClass

	// Population returns the number of known clone pairs of a stratum
	Population(t SimilarityType) int64

	// Fragment returns the fragment stored under a handle
	Fragment(h FragmentHandle) *Fragment

	// Resolve maps a location to a fragment handle, allowing tolerance lines of drift
	Resolve(loc FragmentLocation, tolerance int) (FragmentHandle, bool)
}

// ReferenceDeclaration is one raw ground-truth entry before it is resolved.
type ReferenceDeclaration struct {
	First    FragmentID `json:"a" yaml:"a"`
	Second   FragmentID `json:"b" yaml:"b"`
	Type     string     `json:"type" yaml:"type"`
	Judgment string     `json:"judgment" yaml:"judgment"`
	// Line is the 1-based position in the source file, used in error messages
	Line int `json:"-" yaml:"-"`
}

// ToolOutputFormat is the record format a detector writes.
type ToolOutputFormat string

const (
	ToolOutputCSV   ToolOutputFormat = "csv"
	ToolOutputJSONL ToolOutputFormat = "jsonl"
)

// ToolConfig describes how to invoke a detector.
type ToolConfig struct {
	Name             string           `toml:"name" json:"name" yaml:"name"`
	Command          []string         `toml:"command" json:"command" yaml:"command"`
	WorkingDir       string           `toml:"working_dir" json:"working_dir" yaml:"working_dir"`
	TimeoutSeconds   int              `toml:"timeout_seconds" json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxReportedPairs int              `toml:"max_reported_pairs" json:"max_reported_pairs" yaml:"max_reported_pairs"`
	OutputFormat     ToolOutputFormat `toml:"output_format" json:"output_format" yaml:"output_format"`
	LineTolerance    int              `toml:"line_tolerance" json:"line_tolerance" yaml:"line_tolerance"`
	Env              []string         `toml:"env" json:"env,omitempty" yaml:"env,omitempty"`
	// CorpusRoot replaces {corpus} and is stripped from reported paths
	CorpusRoot string `toml:"-" json:"-" yaml:"-"`
}

// Timeout returns the wall-clock budget of a run
func (c ToolConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DisplayName returns Name, or the executable when no name is configured
func (c ToolConfig) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Command) > 0 {
		return c.Command[0]
	}
	return "tool"
}

// ToolOutput is the normalized result of one detector run.
type ToolOutput struct {
	Pairs          []ReportedPair
	Unmapped       []UnmappedPair
	RawRecords     int
	DuplicatePairs int
	SelfPairs      int
	Duration       time.Duration
}

// ToolAdapter runs a detector and normalizes its output.
type ToolAdapter interface {
	Run(ctx context.Context, cfg ToolConfig) (*ToolOutput, error)
}

// OracleVerdict is the answer of an external judge.
type OracleVerdict struct {
	Judgment Judgment
	Type     SimilarityType
}

// Oracle resolves pairs the reference leaves unknown.
type Oracle interface {
	Judge(ctx context.Context, first, second *Fragment) (OracleVerdict, error)
}

// OracleKind selects an oracle implementation.
type OracleKind string

const (
	OracleNone    OracleKind = "none"
	OracleFile    OracleKind = "file"
	OracleCommand OracleKind = "command"
)

// IntervalMethod selects how recall confidence intervals are computed.
type IntervalMethod string

const (
	IntervalWilson IntervalMethod = "wilson"
	IntervalNormal IntervalMethod = "normal"
)

// SamplingConfig controls the recall estimator.
type SamplingConfig struct {
	// Seed is required; sampling never draws from ambient entropy
	Seed               *uint64        `json:"seed" yaml:"seed"`
	SampleSize         int            `json:"sample_size" yaml:"sample_size"`
	MinClasses         int            `json:"min_classes" yaml:"min_classes"`
	AllowPartialSample *bool          `json:"allow_partial_sample" yaml:"allow_partial_sample"`
	ConfidenceLevel    float64        `json:"confidence_level" yaml:"confidence_level"`
	IntervalMethod     IntervalMethod `json:"interval_method" yaml:"interval_method"`
}

// OracleConfig controls escalation of unknown pairs.
type OracleConfig struct {
	Kind OracleKind `json:"kind" yaml:"kind"`
	// EscalationBudget is required; there is no implicit default policy
	EscalationBudget *int     `json:"escalation_budget" yaml:"escalation_budget"`
	Path             string   `json:"path,omitempty" yaml:"path,omitempty"`
	Command          []string `json:"command,omitempty" yaml:"command,omitempty"`
	TimeoutSeconds   int      `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EvaluationRequest represents a request to evaluate one detector
type EvaluationRequest struct {
	// Corpus
	CorpusIndexPath string
	CorpusRoot      string
	IncludePatterns []string
	ExcludePatterns []string

	// Ground truth
	ReferencePath string

	Tool     ToolConfig
	Sampling SamplingConfig
	Oracle   OracleConfig

	// Performance
	MaxWorkers int

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	OutputPath   string
	ShowDetails  bool

	// Configuration file
	ConfigPath string
}

// Validate validates an evaluation request
func (req *EvaluationRequest) Validate() error {
	if req.CorpusIndexPath == "" {
		return NewValidationError("corpus index path cannot be empty")
	}
	if req.ReferencePath == "" {
		return NewValidationError("reference path cannot be empty")
	}
	if err := req.Tool.Validate(); err != nil {
		return err
	}
	if err := req.Sampling.Validate(); err != nil {
		return err
	}
	if err := req.Oracle.Validate(); err != nil {
		return err
	}
	if req.MaxWorkers < 0 {
		return NewValidationError("max_workers must be >= 0")
	}
	return nil
}

// Validate validates the tool invocation contract
func (c *ToolConfig) Validate() error {
	if len(c.Command) == 0 || c.Command[0] == "" {
		return NewValidationError("tool command cannot be empty")
	}
	if c.TimeoutSeconds <= 0 {
		return NewValidationError("tool timeout_seconds must be > 0")
	}
	if c.WorkingDir == "" {
		return NewValidationError("tool working_dir cannot be empty")
	}
	if c.MaxReportedPairs <= 0 {
		return NewValidationError("tool max_reported_pairs must be > 0")
	}
	if c.LineTolerance < 0 {
		return NewValidationError("tool line_tolerance must be >= 0")
	}
	switch c.OutputFormat {
	case ToolOutputCSV, ToolOutputJSONL:
	default:
		return NewUnsupportedFormatError(string(c.OutputFormat))
	}
	return nil
}

// Validate validates the sampling configuration
func (c *SamplingConfig) Validate() error {
	if c.Seed == nil {
		return NewValidationError("sampling seed is required")
	}
	if c.SampleSize < 1 {
		return NewValidationError("sample_size must be >= 1")
	}
	if c.MinClasses < 1 {
		return NewValidationError("min_classes must be >= 1")
	}
	if c.MinClasses > c.SampleSize {
		return NewValidationError("min_classes must be <= sample_size")
	}
	if c.ConfidenceLevel <= 0.0 || c.ConfidenceLevel >= 1.0 {
		return NewValidationError("confidence_level must be between 0.0 and 1.0 (exclusive)")
	}
	switch c.IntervalMethod {
	case IntervalWilson, IntervalNormal:
	default:
		return NewValidationError("interval_method must be wilson or normal")
	}
	return nil
}

// Validate validates the oracle configuration
func (c *OracleConfig) Validate() error {
	if c.EscalationBudget == nil {
		return NewValidationError("oracle escalation_budget is required")
	}
	if *c.EscalationBudget < 0 {
		return NewValidationError("oracle escalation_budget must be >= 0")
	}
	switch c.Kind {
	case OracleNone:
	case OracleFile:
		if c.Path == "" {
			return NewValidationError("file oracle requires a path")
		}
	case OracleCommand:
		if len(c.Command) == 0 {
			return NewValidationError("command oracle requires a command")
		}
		if c.TimeoutSeconds <= 0 {
			return NewValidationError("command oracle requires timeout_seconds > 0")
		}
	default:
		return NewValidationError("oracle kind must be none, file or command")
	}
	return nil
}

// PartialSampleAllowed returns the effective partial-sample policy
func (c *SamplingConfig) PartialSampleAllowed() bool {
	return BoolValue(c.AllowPartialSample, true)
}

// StratumCounts are the precision-path counts of one stratum.
type StratumCounts struct {
	TruePositives  int
	FalsePositives int
	Unresolved     int
	Escalated      int
}

// Resolved returns TP + FP
func (c StratumCounts) Resolved() int {
	return c.TruePositives + c.FalsePositives
}

// ValidationResult is the output of the pairwise validator.
type ValidationResult struct {
	Strata           map[SimilarityType]StratumCounts
	EscalatedPairs   int
	EscalationFailed int
	BudgetRemaining  int
	ClassifiedPairs  int
}

// StratumRecall is the recall-path output of one stratum.
type StratumRecall struct {
	Type           SimilarityType
	KnownClasses   int
	KnownPairs     int64
	SampledClasses int
	SampledPairs   int
	CoveredPairs   int
	Estimate       Ratio
	Interval       Interval
	Caveat         string
}

// RecallResult is the output of the recall estimator.
type RecallResult struct {
	Strata          map[SimilarityType]StratumRecall
	ConfidenceLevel float64
	Method          IntervalMethod
}

// Ratio is a metric that may be undefined.
type Ratio struct {
	Value      float64 `json:"value" yaml:"value"`
	Computable bool    `json:"computable" yaml:"computable"`
	Reason     string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Computed returns a computable ratio
func Computed(v float64) Ratio {
	return Ratio{Value: v, Computable: true}
}

// NotComputable returns an undefined ratio with the reason it is undefined
func NotComputable(reason string) Ratio {
	return Ratio{Reason: reason}
}

// Interval is a confidence interval around a ratio.
type Interval struct {
	Lower      float64 `json:"lower" yaml:"lower"`
	Upper      float64 `json:"upper" yaml:"upper"`
	Computable bool    `json:"computable" yaml:"computable"`
}

// Width returns Upper - Lower
func (i Interval) Width() float64 {
	return i.Upper - i.Lower
}

// Contains reports whether v lies inside the interval
func (i Interval) Contains(v float64) bool {
	return i.Computable && v >= i.Lower && v <= i.Upper
}

// MetricSummary holds the reported metrics of a stratum or of the whole run.
type MetricSummary struct {
	TruePositives            int      `json:"true_positives" yaml:"true_positives"`
	FalsePositives           int      `json:"false_positives" yaml:"false_positives"`
	UnresolvedCount          int      `json:"unresolved_count" yaml:"unresolved_count"`
	Precision                Ratio    `json:"precision" yaml:"precision"`
	RecallEstimate           Ratio    `json:"recall_estimate" yaml:"recall_estimate"`
	RecallConfidenceInterval Interval `json:"recall_confidence_interval" yaml:"recall_confidence_interval"`
	F1                       Ratio    `json:"f1" yaml:"f1"`
}

// StratumResult is the per-stratum section of a RunResult.
type StratumResult struct {
	Type SimilarityType `json:"stratum" yaml:"stratum"`

	MetricSummary `yaml:",inline"`

	KnownClasses   int    `json:"known_classes" yaml:"known_classes"`
	KnownPairs     int64  `json:"known_pairs" yaml:"known_pairs"`
	SampledClasses int    `json:"sampled_classes" yaml:"sampled_classes"`
	SampledPairs   int    `json:"sampled_pairs" yaml:"sampled_pairs"`
	CoveredPairs   int    `json:"covered_pairs" yaml:"covered_pairs"`
	EscalatedPairs int    `json:"escalated_pairs" yaml:"escalated_pairs"`
	Caveat         string `json:"caveat,omitempty" yaml:"caveat,omitempty"`
}

// RunResult is the immutable outcome of one evaluation run. It holds no
// timestamps, so a fixed seed reproduces it exactly.
type RunResult struct {
	Strata  []StratumResult `json:"strata" yaml:"strata"`
	Overall MetricSummary   `json:"overall" yaml:"overall"`

	ReportedPairs    int `json:"reported_pairs" yaml:"reported_pairs"`
	RawRecords       int `json:"raw_records" yaml:"raw_records"`
	DuplicatePairs   int `json:"duplicate_pairs" yaml:"duplicate_pairs"`
	SelfPairs        int `json:"self_pairs" yaml:"self_pairs"`
	UnmappedPairs    int `json:"unmapped_pairs" yaml:"unmapped_pairs"`
	EscalatedPairs   int `json:"escalated_pairs" yaml:"escalated_pairs"`
	EscalationFailed int `json:"escalation_failed" yaml:"escalation_failed"`

	Seed            uint64         `json:"seed" yaml:"seed"`
	ConfidenceLevel float64        `json:"confidence_level" yaml:"confidence_level"`
	IntervalMethod  IntervalMethod `json:"interval_method" yaml:"interval_method"`
	Caveats         []string       `json:"caveats,omitempty" yaml:"caveats,omitempty"`
}

// Stratum returns the result of a stratum, or nil when absent
func (r *RunResult) Stratum(t SimilarityType) *StratumResult {
	for i := range r.Strata {
		if r.Strata[i].Type == t {
			return &r.Strata[i]
		}
	}
	return nil
}

// EvaluationResponse wraps a RunResult with run metadata
type EvaluationResponse struct {
	RunID       string     `json:"run_id" yaml:"run_id"`
	Tool        string     `json:"tool" yaml:"tool"`
	GeneratedAt string     `json:"generated_at" yaml:"generated_at"`
	Version     string     `json:"version" yaml:"version"`
	DurationMs  int64      `json:"duration_ms" yaml:"duration_ms"`
	ToolMs      int64      `json:"tool_duration_ms" yaml:"tool_duration_ms"`
	Result      *RunResult `json:"result" yaml:"result"`
}

// StratumSummary describes the known population of a stratum
type StratumSummary struct {
	Type         SimilarityType `json:"stratum" yaml:"stratum"`
	Classes      int            `json:"classes" yaml:"classes"`
	Fragments    int            `json:"fragments" yaml:"fragments"`
	KnownPairs   int64          `json:"known_pairs" yaml:"known_pairs"`
	LargestClass int            `json:"largest_class" yaml:"largest_class"`
}

// ReferenceSummary describes a loaded ground truth
type ReferenceSummary struct {
	Fragments     int              `json:"fragments" yaml:"fragments"`
	DeclaredPairs int              `json:"declared_pairs" yaml:"declared_pairs"`
	Judgments     map[string]int   `json:"judgments" yaml:"judgments"`
	Strata        []StratumSummary `json:"strata" yaml:"strata"`
}

// EvaluationService runs the evaluation pipeline
type EvaluationService interface {
	// Evaluate runs the detector and produces a RunResult
	Evaluate(ctx context.Context, req EvaluationRequest) (*EvaluationResponse, error)

	// InspectReference loads the ground truth and summarizes it
	InspectReference(ctx context.Context, req EvaluationRequest) (*ReferenceSummary, error)
}

// EvaluationOutputFormatter formats evaluation responses
type EvaluationOutputFormatter interface {
	// Format formats the response according to the specified format
	Format(response *EvaluationResponse, format OutputFormat, details bool) (string, error)

	// Write writes the formatted output to the writer
	Write(response *EvaluationResponse, format OutputFormat, details bool, writer io.Writer) error
}

// ReferenceSummaryFormatter formats ground-truth summaries
type ReferenceSummaryFormatter interface {
	WriteReferenceSummary(summary *ReferenceSummary, format OutputFormat, writer io.Writer) error
}

// EvaluationConfigurationLoader loads evaluation configuration
type EvaluationConfigurationLoader interface {
	// LoadConfig loads configuration from the specified path
	LoadConfig(path string) (*EvaluationRequest, error)

	// LoadDefaultConfig discovers a config file or returns built-in defaults
	LoadDefaultConfig() *EvaluationRequest

	// MergeConfig merges CLI flags with configuration file
	MergeConfig(base *EvaluationRequest, override *EvaluationRequest) *EvaluationRequest
}

// DefaultEvaluationRequest returns a request with default values.
// Seed and escalation budget stay unset; they must be configured explicitly.
func DefaultEvaluationRequest() *EvaluationRequest {
	return &EvaluationRequest{
		IncludePatterns: []string{},
		ExcludePatterns: []string{},
		Tool: ToolConfig{
			WorkingDir:       ".",
			TimeoutSeconds:   DefaultToolTimeoutSeconds,
			MaxReportedPairs: DefaultMaxReportedPairs,
			OutputFormat:     ToolOutputCSV,
			LineTolerance:    0,
		},
		Sampling: SamplingConfig{
			SampleSize:         DefaultRecallSampleSize,
			MinClasses:         DefaultMinSampleClasses,
			AllowPartialSample: BoolPtr(true),
			ConfidenceLevel:    DefaultConfidenceLevel,
			IntervalMethod:     IntervalWilson,
		},
		Oracle: OracleConfig{
			Kind:           OracleNone,
			TimeoutSeconds: DefaultOracleTimeoutSeconds,
		},
		OutputFormat: OutputFormatText,
	}
}
