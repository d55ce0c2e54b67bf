package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all cloneval MCP tools with the server
func RegisterTools(s *server.MCPServer, h *HandlerSet) {
	if h == nil {
		h = NewHandlerSet(nil)
	}

	// Tool 1: evaluate_detector - run a detector and score it
	s.AddTool(mcp.NewTool("evaluate_detector",
		mcp.WithDescription("Run a clone detector over a benchmark corpus and report per-stratum precision, sampled recall with confidence intervals, and F1 against a partial ground truth"),
		mcp.WithString("config_path",
			mcp.Description("Path to a .cloneval.toml file (default: discovered from the working directory)")),
		mcp.WithString("corpus",
			mcp.Description("Corpus index file (CSV path,start,end[,project])")),
		mcp.WithString("corpus_root",
			mcp.Description("Directory the indexed paths are relative to")),
		mcp.WithString("reference",
			mcp.Description("Ground-truth file (YAML, JSON or CSV)")),
		mcp.WithArray("command",
			mcp.WithStringItems(),
			mcp.Description("Detector command and arguments. Placeholders: {corpus}, {output}, {workdir}")),
		mcp.WithString("tool_name",
			mcp.Description("Detector name shown in the result")),
		mcp.WithString("tool_format",
			mcp.Enum("csv", "jsonl"),
			mcp.Description("Detector output format (default: csv)")),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Detector timeout in seconds (default: 600)")),
		mcp.WithNumber("seed",
			mcp.Description("Random seed for recall sampling. Required unless set in the config file")),
		mcp.WithNumber("budget",
			mcp.Description("Maximum unknown pairs escalated to the oracle. Required unless set in the config file")),
		mcp.WithNumber("sample_size",
			mcp.Description("Clone classes sampled per stratum")),
		mcp.WithNumber("confidence_level",
			mcp.Description("Confidence level of recall intervals, 0.0-1.0 exclusive (default: 0.95)")),
		mcp.WithString("oracle",
			mcp.Enum("none", "file", "command"),
			mcp.Description("Oracle for unknown pairs (default: none)")),
		mcp.WithString("oracle_path",
			mcp.Description("Judgments file for the file oracle")),
		mcp.WithString("output_mode",
			mcp.Enum("summary", "full"),
			mcp.Description("summary returns headline metrics per stratum, full returns the whole result (default: summary)")),
	), h.HandleEvaluateDetector)

	// Tool 2: inspect_reference - validate and summarize the ground truth
	s.AddTool(mcp.NewTool("inspect_reference",
		mcp.WithDescription("Validate a clone ground truth against its corpus and summarize clone classes and known pairs per stratum"),
		mcp.WithString("config_path",
			mcp.Description("Path to a .cloneval.toml file (default: discovered from the working directory)")),
		mcp.WithString("corpus",
			mcp.Description("Corpus index file (CSV path,start,end[,project])")),
		mcp.WithString("corpus_root",
			mcp.Description("Directory the indexed paths are relative to")),
		mcp.WithString("reference",
			mcp.Description("Ground-truth file (YAML, JSON or CSV)")),
	), h.HandleInspectReference)
}
