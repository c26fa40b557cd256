package platform

import (
	"context"
	"errors"
	"os/exec"
	"strconv"

	"github.com/aether-desk/aether/internal/domain"
	"github.com/aether-desk/aether/internal/infra/metrics"
)

// Runner executes a command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner. A missing binary is reported as exec.ErrNotFound.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)
	return cmd.CombinedOutput()
}

// step is one entry of a fallback chain.
type step struct {
	tool string
	run  func(ctx context.Context) ([]byte, error)
}

func (b *base) cmd(name string, args ...string) step {
	return step{tool: name, run: func(ctx context.Context) ([]byte, error) {
		return b.runner.Run(ctx, name, args...)
	}}
}

// runChain tries each step in order and stops at the first success. When
// every step fails the error names the last tool and carries its output.
func (b *base) runChain(ctx context.Context, op string, steps []step) error {
	var (
		lastTool string
		lastOut  []byte
		lastErr  error
	)
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := s.run(ctx)
		if err == nil {
			metrics.ChainAttempts.WithLabelValues(s.tool, "ok").Inc()
			b.log.Info(op+" succeeded", "tool", s.tool)
			return nil
		}
		metrics.ChainAttempts.WithLabelValues(s.tool, "error").Inc()
		b.log.Debug(op+" step failed", "tool", s.tool, "error", err)
		lastTool, lastOut, lastErr = s.tool, out, err
	}
	if lastErr == nil {
		lastErr = errors.New("no tool available")
	}
	return &domain.PlatformError{Op: op, Tool: lastTool, Output: string(lastOut), Err: lastErr}
}

func toolNames(steps []step) []string {
	names := make([]string, 0, len(steps))
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if !seen[s.tool] {
			seen[s.tool] = true
			names = append(names, s.tool)
		}
	}
	return names
}

func formatWindow(w Window) string {
	return strconv.FormatUint(uint64(w), 10)
}
