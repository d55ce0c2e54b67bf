package main

import (
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/cloneval/app"
	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/service"
)

// ReferenceCommand represents the reference command
type ReferenceCommand struct {
	configPath string
	corpus     string
	corpusRoot string
	include    []string
	exclude    []string
	reference  string

	outputs
}

// NewReferenceCommand creates a new reference command
func NewReferenceCommand() *ReferenceCommand {
	return &ReferenceCommand{}
}

// CreateCobraCommand creates the cobra command for reference inspection
func (c *ReferenceCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Validate and summarize the ground truth",
		Long: `Load the corpus index and the ground truth, validate every declaration and
print what the reference contains: clone classes, fragments and known pairs
per stratum, and how many declarations are true, false or unknown.

No detector is run. A malformed reference fails with the offending entries.

Examples:
  cloneval reference
  cloneval reference --corpus corpus.csv --reference reference.yaml --json`,
		Args: cobra.NoArgs,
		RunE: c.runReference,
	}

	f := cmd.Flags()
	f.StringVarP(&c.configPath, "config", "c", "", "Configuration file path")
	f.StringVar(&c.corpus, service.FlagCorpus, "", "Corpus index file (CSV path,start,end[,project])")
	f.StringVar(&c.corpusRoot, service.FlagCorpusRoot, "", "Directory the indexed paths are relative to")
	f.StringSliceVar(&c.include, service.FlagInclude, nil, "Only load fragments matching these patterns")
	f.StringSliceVar(&c.exclude, service.FlagExclude, nil, "Skip fragments matching these patterns")
	f.StringVarP(&c.reference, service.FlagReference, "r", "", "Ground-truth file (YAML, JSON or CSV)")
	c.outputs.register(cmd)

	return cmd
}

func (c *ReferenceCommand) runReference(cmd *cobra.Command, args []string) error {
	format, err := c.format()
	if err != nil {
		return err
	}

	req := domain.DefaultEvaluationRequest()
	req.ConfigPath = c.configPath
	req.CorpusIndexPath = c.corpus
	req.CorpusRoot = c.corpusRoot
	req.IncludePatterns = c.include
	req.ExcludePatterns = c.exclude
	req.ReferencePath = c.reference
	req.OutputFormat = format
	req.OutputPath = c.output
	req.OutputWriter = cmd.OutOrStdout()

	useCase := app.NewReferenceUseCase(
		service.NewEvaluationService(newLogger(cmd), nil),
		service.NewEvaluationFormatter(),
		service.NewEvaluationConfigurationLoader(GetExplicitFlags(cmd)),
	)
	return useCase.Execute(cmd.Context(), *req)
}

// NewReferenceCmd creates and returns the reference cobra command
func NewReferenceCmd() *cobra.Command {
	return NewReferenceCommand().CreateCobraCommand()
}
