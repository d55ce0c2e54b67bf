package oracle

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/ludo-technologies/cloneval/domain"
	"github.com/ludo-technologies/cloneval/internal/adapter"
)

// Placeholders substituted in the judge command.
const (
	PlaceholderFirst  = "{a}"
	PlaceholderSecond = "{b}"
)

// CommandOracle asks an external process to judge each pair. The process
// prints "true", "false" or "unknown", optionally followed by a type label.
type CommandOracle struct {
	argv    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandOracle creates a judge that runs argv once per pair.
func NewCommandOracle(argv []string, timeoutSeconds int, logger *slog.Logger) (*CommandOracle, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, domain.NewConfigError("oracle command cannot be empty", nil)
	}
	if timeoutSeconds <= 0 {
		return nil, domain.NewConfigError("oracle timeout_seconds must be > 0", nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CommandOracle{
		argv:    argv,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		logger:  logger,
	}, nil
}

// Judge implements domain.Oracle
func (o *CommandOracle) Judge(ctx context.Context, first, second *domain.Fragment) (domain.OracleVerdict, error) {
	argv := make([]string, len(o.argv))
	for i, a := range o.argv {
		a = strings.ReplaceAll(a, PlaceholderFirst, string(first.ID))
		argv[i] = strings.ReplaceAll(a, PlaceholderSecond, string(second.ID))
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	adapter.ConfigureProcessGroup(cmd)

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.OracleVerdict{}, fmt.Errorf("oracle timed out after %s", o.timeout)
		}
		return domain.OracleVerdict{}, fmt.Errorf("oracle command failed: %w", err)
	}
	return parseVerdict(stdout.String())
}

// parseVerdict reads the first non-empty output line.
func parseVerdict(out string) (domain.OracleVerdict, error) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		j, err := domain.ParseJudgment(fields[0])
		if err != nil {
			return domain.OracleVerdict{}, err
		}
		v := domain.OracleVerdict{Judgment: j}
		if len(fields) > 1 {
			if v.Type, err = domain.ParseSimilarityType(fields[1]); err != nil {
				return domain.OracleVerdict{}, err
			}
		}
		return v, nil
	}
	return domain.OracleVerdict{}, fmt.Errorf("oracle produced no verdict")
}
