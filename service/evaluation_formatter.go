package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ludo-technologies/cloneval/domain"
)

// EvaluationFormatterImpl implements the EvaluationOutputFormatter interface
type EvaluationFormatterImpl struct {
	utils *FormatUtils
}

var (
	_ domain.EvaluationOutputFormatter = (*EvaluationFormatterImpl)(nil)
	_ domain.ReferenceSummaryFormatter = (*EvaluationFormatterImpl)(nil)
)

// NewEvaluationFormatter creates a new evaluation formatter
func NewEvaluationFormatter() *EvaluationFormatterImpl {
	return &EvaluationFormatterImpl{utils: NewFormatUtils()}
}

// Format formats the response according to the specified format
func (f *EvaluationFormatterImpl) Format(response *domain.EvaluationResponse, format domain.OutputFormat, details bool) (string, error) {
	var sb strings.Builder
	if err := f.Write(response, format, details, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Write writes the formatted output to the writer
func (f *EvaluationFormatterImpl) Write(response *domain.EvaluationResponse, format domain.OutputFormat, details bool, writer io.Writer) error {
	if response == nil || response.Result == nil {
		return domain.NewOutputError("no evaluation result to format", nil)
	}
	switch format {
	case domain.OutputFormatText, "":
		_, err := io.WriteString(writer, f.formatText(response, details))
		if err != nil {
			return domain.NewOutputError("failed to write text output", err)
		}
		return nil
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		return f.writeCSV(response.Result, writer)
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
}

func (f *EvaluationFormatterImpl) formatText(response *domain.EvaluationResponse, details bool) string {
	res := response.Result
	u := f.utils
	var b strings.Builder

	b.WriteString(u.FormatMainHeader("Clone Detector Evaluation Report"))

	b.WriteString(u.FormatSectionHeader("Run"))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Tool", response.Tool))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Run ID", response.RunID))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Seed", res.Seed))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Confidence",
		fmt.Sprintf("%g%% (%s)", res.ConfidenceLevel*100, res.IntervalMethod)))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Detector time", u.FormatDuration(response.ToolMs)))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Total time", u.FormatDuration(response.DurationMs)))
	b.WriteString(u.FormatSectionSeparator())

	o := res.Overall
	b.WriteString(u.FormatSectionHeader("Overall"))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "True positives", o.TruePositives))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "False positives", o.FalsePositives))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Unresolved", o.UnresolvedCount))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Precision", u.FormatRatio(o.Precision)))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Recall", u.FormatRatio(o.RecallEstimate)))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Recall CI", u.FormatInterval(o.RecallConfidenceInterval)))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "F1", u.FormatRatio(o.F1)))
	b.WriteString(u.FormatSectionSeparator())

	b.WriteString(u.FormatSectionHeader("Per stratum"))
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  STRATUM\tTP\tFP\tUNRES\tPRECISION\tRECALL\tRECALL CI\tF1")
	for _, s := range res.Strata {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%s\t%s\t%s\t%s\n",
			s.Type, s.TruePositives, s.FalsePositives, s.UnresolvedCount,
			u.FormatRatioShort(s.Precision), u.FormatRatioShort(s.RecallEstimate),
			u.FormatInterval(s.RecallConfidenceInterval), u.FormatRatioShort(s.F1))
	}
	tw.Flush()
	b.WriteString(u.FormatSectionSeparator())

	if details {
		b.WriteString(u.FormatSectionHeader("Recall sampling"))
		tw = tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  STRATUM\tCLASSES\tPAIRS\tSAMPLED CLASSES\tSAMPLED PAIRS\tCOVERED\tESCALATED")
		for _, s := range res.Strata {
			fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\t%d\t%d\n",
				s.Type, s.KnownClasses, s.KnownPairs, s.SampledClasses, s.SampledPairs, s.CoveredPairs, s.EscalatedPairs)
		}
		tw.Flush()
		b.WriteString(u.FormatSectionSeparator())

		b.WriteString(u.FormatSectionHeader("Detector output"))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Raw records", res.RawRecords))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Distinct pairs", res.ReportedPairs))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Duplicates", res.DuplicatePairs))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Self pairs", res.SelfPairs))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Unmapped", res.UnmappedPairs))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Escalated", res.EscalatedPairs))
		b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Escalation failures", res.EscalationFailed))
		b.WriteString(u.FormatSectionSeparator())
	}

	b.WriteString(u.FormatWarningsSection("Caveats", res.Caveats))
	return b.String()
}

// csvHeader is the column layout of CSV output: one row per stratum, then
// an "overall" row.
var csvHeader = []string{
	"stratum", "true_positives", "false_positives", "unresolved",
	"precision", "recall", "recall_lower", "recall_upper", "f1",
	"known_classes", "known_pairs", "sampled_classes", "sampled_pairs", "covered_pairs",
}

func (f *EvaluationFormatterImpl) writeCSV(res *domain.RunResult, writer io.Writer) error {
	w := csv.NewWriter(writer)
	rows := [][]string{csvHeader}
	for _, s := range res.Strata {
		row := metricRow(s.Type.String(), s.MetricSummary)
		row = append(row,
			strconv.Itoa(s.KnownClasses),
			strconv.FormatInt(s.KnownPairs, 10),
			strconv.Itoa(s.SampledClasses),
			strconv.Itoa(s.SampledPairs),
			strconv.Itoa(s.CoveredPairs))
		rows = append(rows, row)
	}
	rows = append(rows, append(metricRow("overall", res.Overall), "", "", "", "", ""))

	if err := w.WriteAll(rows); err != nil {
		return domain.NewOutputError("failed to write CSV", err)
	}
	return nil
}

func metricRow(name string, m domain.MetricSummary) []string {
	lower, upper := "", ""
	if m.RecallConfidenceInterval.Computable {
		lower = csvFloat(m.RecallConfidenceInterval.Lower)
		upper = csvFloat(m.RecallConfidenceInterval.Upper)
	}
	return []string{
		name,
		strconv.Itoa(m.TruePositives),
		strconv.Itoa(m.FalsePositives),
		strconv.Itoa(m.UnresolvedCount),
		csvRatio(m.Precision),
		csvRatio(m.RecallEstimate),
		lower,
		upper,
		csvRatio(m.F1),
	}
}

// csvRatio leaves non-computable metrics empty
func csvRatio(r domain.Ratio) string {
	if !r.Computable {
		return ""
	}
	return csvFloat(r.Value)
}

func csvFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteReferenceSummary writes a ground-truth summary in the given format.
// CSV output has one row per stratum.
func (f *EvaluationFormatterImpl) WriteReferenceSummary(summary *domain.ReferenceSummary, format domain.OutputFormat, writer io.Writer) error {
	if summary == nil {
		return domain.NewOutputError("no reference summary to format", nil)
	}
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, summary)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, summary)
	case domain.OutputFormatCSV:
		w := csv.NewWriter(writer)
		rows := [][]string{{"stratum", "classes", "fragments", "known_pairs", "largest_class"}}
		for _, s := range summary.Strata {
			rows = append(rows, []string{
				s.Type.String(),
				strconv.Itoa(s.Classes),
				strconv.Itoa(s.Fragments),
				strconv.FormatInt(s.KnownPairs, 10),
				strconv.Itoa(s.LargestClass),
			})
		}
		if err := w.WriteAll(rows); err != nil {
			return domain.NewOutputError("failed to write CSV", err)
		}
		return nil
	case domain.OutputFormatText, "":
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}

	u := f.utils
	var b strings.Builder
	b.WriteString(u.FormatMainHeader("Clone Reference Summary"))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Fragments", summary.Fragments))
	b.WriteString(u.FormatLabelWithIndent(SectionPadding, "Declared pairs", summary.DeclaredPairs))
	for _, j := range []string{"true", "false", "unknown"} {
		b.WriteString(u.FormatLabelWithIndent(ItemPadding, j, summary.Judgments[j]))
	}
	b.WriteString(u.FormatSectionSeparator())

	b.WriteString(u.FormatSectionHeader("Strata"))
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  STRATUM\tCLASSES\tFRAGMENTS\tKNOWN PAIRS\tLARGEST CLASS")
	for _, s := range summary.Strata {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%d\n", s.Type, s.Classes, s.Fragments, s.KnownPairs, s.LargestClass)
	}
	tw.Flush()

	if _, err := io.WriteString(writer, b.String()); err != nil {
		return domain.NewOutputError("failed to write text output", err)
	}
	return nil
}
