package main

import (
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ludo-technologies/cloneval/internal/version"
	"github.com/ludo-technologies/cloneval/mcp"
)

const serverName = "cloneval"

// configEnv names an optional config file; empty means discovery from the
// working directory.
const configEnv = "CLONEVAL_CONFIG"

func main() {
	// MCP uses stdout for JSON-RPC, so logs go to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)

	handlers := mcp.NewHandlerSet(mcp.NewDependencies(logger, os.Getenv(configEnv)))
	mcp.RegisterTools(server, handlers)

	logger.Info("starting MCP server",
		"name", serverName,
		"version", version.Short(),
		"tools", []string{"evaluate_detector", "inspect_reference"})

	// Blocks until the client disconnects
	if err := mcpserver.ServeStdio(server); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
