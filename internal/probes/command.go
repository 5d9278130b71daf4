package probe

import (
	"HealthScan/internal/domain"
	"HealthScan/internal/shared/constants"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

const (
	// maxCommandOutput bounds the output kept in result details.
	maxCommandOutput = 4096
	// defaultCaptureBytes bounds what is read from each command stream.
	defaultCaptureBytes = 64 * 1024
)

// CommandProbe is the only probe that runs arbitrary commands.
type CommandProbe struct {
	shell string
}

func NewCommandProbe() *CommandProbe {
	return &CommandProbe{shell: "/bin/sh"}
}

func (p *CommandProbe) Kind() domain.Kind {
	return domain.CustomCommand
}

func (p *CommandProbe) Execute(ctx context.Context, spec domain.ProbeSpec) (Observation, error) {
	if strings.TrimSpace(spec.Target) == "" {
		return Observation{}, fmt.Errorf("command is empty")
	}

	shell := getStringOption(spec.Params, "shell", p.shell)
	cmd := exec.CommandContext(ctx, shell, "-c", spec.Target)
	cmd.WaitDelay = constants.KillDelay
	killProcessGroup(cmd)

	if dir := getStringOption(spec.Params, "dir", ""); dir != "" {
		cmd.Dir = dir
	}

	limit := getIntOption(spec.Params, "max_output", defaultCaptureBytes)
	if limit <= 0 {
		limit = defaultCaptureBytes
	}

	// os/exec copies stdout and stderr on separate goroutines.
	stdout := &cappedBuffer{limit: limit}
	combined := &cappedBuffer{limit: limit}
	cmd.Stdout = io.MultiWriter(stdout, combined)
	cmd.Stderr = combined

	err := cmd.Run()

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	details := map[string]string{
		"exit_code": strconv.Itoa(exitCode),
		"output":    truncate(strings.TrimSpace(combined.String()), maxCommandOutput),
	}
	if stdout.Truncated() || combined.Truncated() {
		details["output_truncated"] = "true"
	}

	if err != nil {
		if ctx.Err() != nil {
			return Observation{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Observation{}, fmt.Errorf("exit code %d: %s", exitErr.ExitCode(), details["output"])
		}
		return Observation{}, fmt.Errorf("run command: %w", err)
	}

	return observe(domain.ParseValue(stdout.String()), details), nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// cappedBuffer keeps the first limit bytes written to it and drops the
// rest. It is safe for concurrent writers.
type cappedBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	limit   int
	dropped int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := max(b.limit-b.buf.Len(), 0)
	keep := min(room, len(p))
	b.buf.Write(p[:keep])
	b.dropped += len(p) - keep
	// Report the full length so the copy goroutine keeps draining the pipe.
	return len(p), nil
}

// String returns the captured bytes. A rune cut at the limit is dropped.
func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.ToValidUTF8(b.buf.String(), "")
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped > 0
}
