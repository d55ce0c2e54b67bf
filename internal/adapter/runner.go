// Package adapter runs an external clone detector as a subprocess and
// normalizes its reported pairs onto reference fragments.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ludo-technologies/cloneval/domain"
)

// Placeholders substituted in the command template.
const (
	PlaceholderCorpus  = "{corpus}"
	PlaceholderOutput  = "{output}"
	PlaceholderWorkdir = "{workdir}"
)

// Runner implements domain.ToolAdapter.
type Runner struct {
	resolver FragmentResolver
	logger   *slog.Logger
}

var _ domain.ToolAdapter = (*Runner)(nil)

// NewRunner creates a runner that maps tool output through resolver.
func NewRunner(resolver FragmentResolver, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{resolver: resolver, logger: logger}
}

// Run executes the detector under cfg's wall-clock budget. Every failure is
// fatal: a partial pair set is never returned. On timeout the process group
// has been killed and reaped before ToolTimeoutError is returned.
func (r *Runner) Run(ctx context.Context, cfg domain.ToolConfig) (*domain.ToolOutput, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r.resolver == nil {
		return nil, domain.NewInvalidInputError("tool adapter needs a fragment resolver", nil)
	}

	workdir, err := filepath.Abs(cfg.WorkingDir)
	if err != nil {
		return nil, domain.NewInvalidInputError("invalid working directory", err)
	}
	if info, err := os.Stat(workdir); err != nil || !info.IsDir() {
		return nil, domain.NewInvalidInputError(fmt.Sprintf("working directory %s is not a directory", workdir), err)
	}

	var outputPath string
	if usesPlaceholder(cfg.Command, PlaceholderOutput) {
		f, err := os.CreateTemp("", "cloneval-tool-*.out")
		if err != nil {
			return nil, domain.NewAnalysisError("failed to create tool output file", err)
		}
		outputPath = f.Name()
		f.Close()
		defer os.Remove(outputPath)
	}

	corpus := cfg.CorpusRoot
	if corpus == "" {
		corpus = workdir
	}
	argv := expand(cfg.Command, map[string]string{
		PlaceholderCorpus:  corpus,
		PlaceholderOutput:  outputPath,
		PlaceholderWorkdir: workdir,
	})
	display := cfg.DisplayName()

	timeoutCtx, cancelTimeout := context.WithTimeout(ctx, cfg.Timeout())
	defer cancelTimeout()
	runCtx, abort := context.WithCancel(timeoutCtx)
	defer abort()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = workdir
	cmd.Env = append(os.Environ(), cfg.Env...)
	ConfigureProcessGroup(cmd)
	stderr := newTailBuffer(domain.MaxStderrTail)
	cmd.Stderr = stderr

	coll := newCollector(r.resolver, cfg, r.logger)
	start := time.Now()

	r.logger.Info("starting tool", "tool", display, "argv", argv, "workdir", workdir, "timeout", cfg.Timeout())

	// parseErr is a limit or format failure detected while the tool runs.
	var parseErr error
	if outputPath == "" {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, domain.NewToolCrashError(display, err)
		}
		if err := cmd.Start(); err != nil {
			return nil, domain.NewToolCrashError(display, err)
		}
		parseErr = consume(stdout, cfg.OutputFormat, coll)
		if parseErr != nil {
			abort()
		}
	} else {
		cmd.Stdout = io.Discard
		if err := cmd.Start(); err != nil {
			return nil, domain.NewToolCrashError(display, err)
		}
	}
	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	// A killed tool may leave a torn last record, so the deadline is checked
	// before parse failures.
	switch {
	case waitErr != nil && errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		r.logger.Warn("tool timed out", "tool", display, "timeout", cfg.Timeout())
		return nil, domain.NewToolTimeoutError(display, cfg.Timeout())
	case waitErr != nil && ctx.Err() != nil:
		return nil, domain.NewToolCrashError(display, fmt.Errorf("run cancelled: %w", ctx.Err()))
	case parseErr != nil:
		r.logger.Warn("tool output rejected", "tool", display, "error", parseErr)
		return nil, parseErr
	case waitErr != nil:
		if tail := stderr.String(); tail != "" {
			waitErr = fmt.Errorf("%w: %s", waitErr, tail)
		}
		r.logger.Warn("tool failed", "tool", display, "error", waitErr)
		return nil, domain.NewToolCrashError(display, waitErr)
	}

	if outputPath != "" {
		f, err := os.Open(outputPath)
		if err != nil {
			return nil, domain.NewToolCrashError(display, fmt.Errorf("tool output missing: %w", err))
		}
		err = consume(f, cfg.OutputFormat, coll)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	out := coll.result()
	out.Duration = elapsed
	r.logger.Info("tool finished",
		"tool", display,
		"duration", elapsed,
		"records", out.RawRecords,
		"pairs", len(out.Pairs),
		"duplicates", out.DuplicatePairs,
		"self_pairs", out.SelfPairs,
		"unmapped", len(out.Unmapped))
	return out, nil
}

// consume parses records from r into coll until EOF.
func consume(r io.Reader, format domain.ToolOutputFormat, coll *collector) error {
	rr, err := newRecordReader(r, format)
	if err != nil {
		return err
	}
	for {
		rec, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return domain.NewMalformedToolOutputError(rr.Position(), err)
		}
		if err := coll.add(rec); err != nil {
			return err
		}
	}
}

func usesPlaceholder(argv []string, placeholder string) bool {
	for _, a := range argv {
		if strings.Contains(a, placeholder) {
			return true
		}
	}
	return false
}

func expand(argv []string, values map[string]string) []string {
	out := make([]string, len(argv))
	for i, a := range argv {
		for k, v := range values {
			a = strings.ReplaceAll(a, k, v)
		}
		out[i] = a
	}
	return out
}
