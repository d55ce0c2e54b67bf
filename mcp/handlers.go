package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/service"
)

// HandlerSet exposes MCP tool handlers with shared dependencies.
type HandlerSet struct {
	deps *Dependencies
}

// NewHandlerSet constructs a handler set.
func NewHandlerSet(deps *Dependencies) *HandlerSet {
	if deps == nil {
		deps = NewDependencies(nil, "")
	}
	return &HandlerSet{deps: deps}
}

// HandleEvaluateDetector handles the evaluate_detector tool
func (h *HandlerSet) HandleEvaluateDetector(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	req := domain.DefaultEvaluationRequest()
	p := newArgParser(args)
	h.parseSources(p, req)

	if raw, ok := args["command"].([]interface{}); ok {
		for _, a := range raw {
			s, ok := a.(string)
			if !ok {
				return mcp.NewToolResultError("command must be an array of strings"), nil
			}
			req.Tool.Command = append(req.Tool.Command, s)
		}
	}
	p.str("tool_name", service.FlagToolName, &req.Tool.Name)
	var toolFormat string
	if p.str("tool_format", service.FlagToolFormat, &toolFormat) {
		req.Tool.OutputFormat = domain.ToolOutputFormat(toolFormat)
	}
	p.integer("timeout_seconds", service.FlagTimeout, &req.Tool.TimeoutSeconds)

	var seed int
	if p.integer("seed", service.FlagSeed, &seed) {
		req.Sampling.Seed = domain.Uint64Ptr(uint64(seed))
	}
	var budget int
	if p.integer("budget", service.FlagBudget, &budget) {
		req.Oracle.EscalationBudget = domain.IntPtr(budget)
	}
	p.integer("sample_size", service.FlagSampleSize, &req.Sampling.SampleSize)
	p.number("confidence_level", service.FlagConfidence, &req.Sampling.ConfidenceLevel)

	var oracle string
	if p.str("oracle", service.FlagOracle, &oracle) {
		req.Oracle.Kind = domain.OracleKind(oracle)
	}
	p.str("oracle_path", service.FlagOraclePath, &req.Oracle.Path)

	outputMode := "summary"
	if om, ok := args["output_mode"].(string); ok {
		outputMode = om
	}
	if p.err != nil {
		return mcp.NewToolResultError(p.err.Error()), nil
	}

	evaluateUC, err := h.deps.BuildEvaluateUseCase(p.explicit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create evaluator: %v", err)), nil
	}

	response, err := evaluateUC.EvaluateAndReturn(ctx, *req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	var responseData interface{}
	switch outputMode {
	case "full":
		responseData = response
	default:
		responseData = formatEvaluationSummary(response)
	}

	jsonData, err := json.Marshal(responseData)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// HandleInspectReference handles the inspect_reference tool
func (h *HandlerSet) HandleInspectReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}

	req := domain.DefaultEvaluationRequest()
	p := newArgParser(args)
	h.parseSources(p, req)
	if p.err != nil {
		return mcp.NewToolResultError(p.err.Error()), nil
	}

	summary, err := h.deps.BuildReferenceUseCase(p.explicit).InspectAndReturn(ctx, *req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reference inspection failed: %v", err)), nil
	}

	jsonData, err := json.Marshal(summary)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// parseSources reads the arguments shared by both tools
func (h *HandlerSet) parseSources(p *argParser, req *domain.EvaluationRequest) {
	req.ConfigPath = h.deps.ConfigPath()
	if path, ok := p.args["config_path"].(string); ok && path != "" {
		req.ConfigPath = path
	}
	p.str("corpus", service.FlagCorpus, &req.CorpusIndexPath)
	p.str("corpus_root", service.FlagCorpusRoot, &req.CorpusRoot)
	p.str("reference", service.FlagReference, &req.ReferencePath)
}

// argParser reads optional tool arguments and records which settings were
// given, keyed by the matching CLI flag name. The first type error sticks.
type argParser struct {
	args     map[string]interface{}
	explicit map[string]bool
	err      error
}

func newArgParser(args map[string]interface{}) *argParser {
	return &argParser{args: args, explicit: make(map[string]bool)}
}

func (p *argParser) str(name, flag string, dst *string) bool {
	raw, present := p.args[name]
	if !present || p.err != nil {
		return false
	}
	s, ok := raw.(string)
	if !ok {
		p.err = fmt.Errorf("%s must be a string", name)
		return false
	}
	*dst = s
	p.explicit[flag] = true
	return true
}

func (p *argParser) number(name, flag string, dst *float64) bool {
	raw, present := p.args[name]
	if !present || p.err != nil {
		return false
	}
	f, ok := raw.(float64)
	if !ok {
		p.err = fmt.Errorf("%s must be a number", name)
		return false
	}
	*dst = f
	p.explicit[flag] = true
	return true
}

// integer accepts JSON numbers that hold a non-negative whole value
func (p *argParser) integer(name, flag string, dst *int) bool {
	var f float64
	if !p.number(name, flag, &f) {
		return false
	}
	if f < 0 || f != math.Trunc(f) || f > 1<<53 {
		delete(p.explicit, flag)
		p.err = fmt.Errorf("%s must be a non-negative integer", name)
		return false
	}
	*dst = int(f)
	return true
}

// formatEvaluationSummary keeps the headline metrics of a run
func formatEvaluationSummary(response *domain.EvaluationResponse) map[string]interface{} {
	result := response.Result
	strata := make([]map[string]interface{}, 0, len(result.Strata))
	for _, s := range result.Strata {
		entry := metricSummary(s.MetricSummary)
		entry["stratum"] = s.Type.String()
		entry["sampled_classes"] = s.SampledClasses
		entry["escalated_pairs"] = s.EscalatedPairs
		if s.Caveat != "" {
			entry["caveat"] = s.Caveat
		}
		strata = append(strata, entry)
	}

	return map[string]interface{}{
		"run_id":         response.RunID,
		"tool":           response.Tool,
		"seed":           result.Seed,
		"reported_pairs": result.ReportedPairs,
		"unmapped_pairs": result.UnmappedPairs,
		"overall":        metricSummary(result.Overall),
		"strata":         strata,
		"caveats":        result.Caveats,
	}
}

func metricSummary(m domain.MetricSummary) map[string]interface{} {
	entry := map[string]interface{}{
		"true_positives":  m.TruePositives,
		"false_positives": m.FalsePositives,
		"unresolved":      m.UnresolvedCount,
		"precision":       ratioValue(m.Precision),
		"recall":          ratioValue(m.RecallEstimate),
		"f1":              ratioValue(m.F1),
	}
	if m.RecallConfidenceInterval.Computable {
		entry["recall_interval"] = []float64{m.RecallConfidenceInterval.Lower, m.RecallConfidenceInterval.Upper}
	}
	return entry
}

// ratioValue returns nil for metrics that are not computable
func ratioValue(r domain.Ratio) interface{} {
	if !r.Computable {
		return nil
	}
	return r.Value
}
