package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/cloneval/app"
	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/service"
)

// EvaluateCommand represents the evaluate command
type EvaluateCommand struct {
	configPath string

	corpus     string
	corpusRoot string
	include    []string
	exclude    []string
	reference  string

	toolName      string
	workingDir    string
	timeout       int
	maxPairs      int
	toolFormat    string
	lineTolerance int

	seed          uint64
	sampleSize    int
	minClasses    int
	partialSample bool
	confidence    float64
	interval      string

	oracle        string
	budget        int
	oraclePath    string
	oracleTimeout int

	workers int

	outputs
}

// outputs holds the report flags shared by evaluate and reference
type outputs struct {
	json    bool
	yaml    bool
	csv     bool
	output  string
	details bool
}

func (o *outputs) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, service.FlagJSON, false, "Write the report as JSON")
	cmd.Flags().BoolVar(&o.yaml, service.FlagYAML, false, "Write the report as YAML")
	cmd.Flags().BoolVar(&o.csv, service.FlagCSV, false, "Write the report as CSV")
	cmd.Flags().StringVarP(&o.output, service.FlagOutput, "o", "", "Write the report to a file instead of stdout")
}

// format returns the selected output format. At most one format flag may be set.
func (o *outputs) format() (domain.OutputFormat, error) {
	format := domain.OutputFormatText
	count := 0
	if o.json {
		format = domain.OutputFormatJSON
		count++
	}
	if o.yaml {
		format = domain.OutputFormatYAML
		count++
	}
	if o.csv {
		format = domain.OutputFormatCSV
		count++
	}
	if count > 1 {
		return "", domain.NewInvalidInputError("only one of --json, --yaml and --csv may be given", nil)
	}
	return format, nil
}

// NewEvaluateCommand creates a new evaluate command
func NewEvaluateCommand() *EvaluateCommand {
	return &EvaluateCommand{}
}

// CreateCobraCommand creates the cobra command for detector evaluation
func (c *EvaluateCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [flags] [-- detector command...]",
		Short: "Run a clone detector and score it against the reference",
		Long: `Run a clone detector over the corpus and report precision, sampled recall
and F1 per similarity stratum.

The detector command comes from [tool] command in .cloneval.toml or from the
arguments after --. Placeholders {corpus}, {output} and {workdir} are
replaced before the command runs. When {output} is used the detector writes
its pairs to that file; otherwise its stdout is parsed.

A seed and an escalation budget are required, either in the config file or
with --seed and --budget. The same seed always reproduces the same result.

Examples:
  # Use .cloneval.toml from the current directory or a parent
  cloneval evaluate

  # Override the detector and write JSON
  cloneval evaluate --seed 7 --budget 0 --json -- nicad6 functions java {corpus}

  # Escalate up to 50 unknown pairs to a judgments file
  cloneval evaluate --oracle file --oracle-path judged.yaml --budget 50`,
		Args: cobra.ArbitraryArgs,
		RunE: c.runEvaluate,
	}

	f := cmd.Flags()
	f.StringVarP(&c.configPath, "config", "c", "", "Configuration file path")

	// Corpus and ground truth
	f.StringVar(&c.corpus, service.FlagCorpus, "", "Corpus index file (CSV path,start,end[,project])")
	f.StringVar(&c.corpusRoot, service.FlagCorpusRoot, "", "Directory the indexed paths are relative to")
	f.StringSliceVar(&c.include, service.FlagInclude, nil, "Only evaluate fragments matching these patterns")
	f.StringSliceVar(&c.exclude, service.FlagExclude, nil, "Skip fragments matching these patterns")
	f.StringVarP(&c.reference, service.FlagReference, "r", "", "Ground-truth file (YAML, JSON or CSV)")

	// Detector
	f.StringVar(&c.toolName, service.FlagToolName, "", "Detector name shown in reports")
	f.StringVar(&c.workingDir, service.FlagWorkingDir, ".", "Directory the detector runs in")
	f.IntVar(&c.timeout, service.FlagTimeout, domain.DefaultToolTimeoutSeconds, "Detector timeout in seconds")
	f.IntVar(&c.maxPairs, service.FlagMaxPairs, domain.DefaultMaxReportedPairs, "Maximum records accepted from the detector")
	f.StringVar(&c.toolFormat, service.FlagToolFormat, string(domain.ToolOutputCSV), "Detector output format (csv|jsonl)")
	f.IntVar(&c.lineTolerance, service.FlagLineTolerance, 0, "Line drift allowed when mapping reported fragments")

	// Sampling
	f.Uint64Var(&c.seed, service.FlagSeed, 0, "Random seed (required unless configured)")
	f.IntVar(&c.sampleSize, service.FlagSampleSize, domain.DefaultRecallSampleSize, "Clone classes sampled per stratum")
	f.IntVar(&c.minClasses, service.FlagMinClasses, domain.DefaultMinSampleClasses, "Minimum clone classes for a recall estimate")
	f.BoolVar(&c.partialSample, service.FlagPartialSample, true, "Use all classes when a stratum has fewer than sample-size")
	f.Float64Var(&c.confidence, service.FlagConfidence, domain.DefaultConfidenceLevel, "Confidence level of recall intervals")
	f.StringVar(&c.interval, service.FlagInterval, string(domain.IntervalWilson), "Interval method (wilson|normal)")

	// Oracle
	f.StringVar(&c.oracle, service.FlagOracle, string(domain.OracleNone), "Oracle for unknown pairs (none|file|command)")
	f.IntVar(&c.budget, service.FlagBudget, 0, "Maximum pairs escalated to the oracle (required unless configured)")
	f.StringVar(&c.oraclePath, service.FlagOraclePath, "", "Judgments file for the file oracle")
	f.IntVar(&c.oracleTimeout, service.FlagOracleTimeout, domain.DefaultOracleTimeoutSeconds, "Timeout of one command oracle call in seconds")

	f.IntVar(&c.workers, service.FlagWorkers, 0, "Concurrent oracle calls (0 = number of CPUs)")

	c.outputs.register(cmd)
	f.BoolVar(&c.details, service.FlagDetails, false, "Include sampling and detector details")

	return cmd
}

// buildRequest turns the flags into an override request. MergeConfig only
// takes the fields whose flags were explicitly set.
func (c *EvaluateCommand) buildRequest(cmd *cobra.Command, args []string) (*domain.EvaluationRequest, error) {
	format, err := c.format()
	if err != nil {
		return nil, err
	}

	req := domain.DefaultEvaluationRequest()
	req.ConfigPath = c.configPath
	req.CorpusIndexPath = c.corpus
	req.CorpusRoot = c.corpusRoot
	req.IncludePatterns = c.include
	req.ExcludePatterns = c.exclude
	req.ReferencePath = c.reference

	req.Tool.Name = c.toolName
	req.Tool.Command = args
	req.Tool.WorkingDir = c.workingDir
	req.Tool.TimeoutSeconds = c.timeout
	req.Tool.MaxReportedPairs = c.maxPairs
	req.Tool.OutputFormat = domain.ToolOutputFormat(c.toolFormat)
	req.Tool.LineTolerance = c.lineTolerance

	req.Sampling.Seed = domain.Uint64Ptr(c.seed)
	req.Sampling.SampleSize = c.sampleSize
	req.Sampling.MinClasses = c.minClasses
	req.Sampling.AllowPartialSample = domain.BoolPtr(c.partialSample)
	req.Sampling.ConfidenceLevel = c.confidence
	req.Sampling.IntervalMethod = domain.IntervalMethod(c.interval)

	req.Oracle.Kind = domain.OracleKind(c.oracle)
	req.Oracle.EscalationBudget = domain.IntPtr(c.budget)
	req.Oracle.Path = c.oraclePath
	req.Oracle.TimeoutSeconds = c.oracleTimeout

	req.MaxWorkers = c.workers
	req.OutputFormat = format
	req.OutputPath = c.output
	req.OutputWriter = cmd.OutOrStdout()
	req.ShowDetails = c.details
	return req, nil
}

func (c *EvaluateCommand) runEvaluate(cmd *cobra.Command, args []string) error {
	req, err := c.buildRequest(cmd, args)
	if err != nil {
		return err
	}

	logger := newLogger(cmd)
	progress := service.NewProgressManager("Validating pairs")
	defer progress.Close()

	useCase, err := app.NewEvaluateUseCaseBuilder().
		WithService(service.NewEvaluationService(logger, progress)).
		WithFormatter(service.NewEvaluationFormatter()).
		WithConfigLoader(service.NewEvaluationConfigurationLoader(GetExplicitFlags(cmd))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create evaluate use case: %w", err)
	}

	return useCase.Execute(cmd.Context(), *req)
}

// NewEvaluateCmd creates and returns the evaluate cobra command
func NewEvaluateCmd() *cobra.Command {
	return NewEvaluateCommand().CreateCobraCommand()
}
