package mcp

import "log/slog"

func NewTestDependencies(logger *slog.Logger, path string) *Dependencies {
	return NewDependencies(logger, path)
}
