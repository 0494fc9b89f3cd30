package sandbox

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// resultMarker and the per-run token prefix the single line the harness writes
// with the outcome. The token reaches the harness on stdin and is consumed before
// the program runs, so program output cannot forge the line.
const resultMarker = "__SANDBOX_RESULT__"

//go:embed harness.py
var harnessSource string

// Process runs Python programs in a separate interpreter process, in an empty
// temporary working directory with a stripped environment. The process is
// killed when the run times out or ctx is canceled.
type Process struct {
	interpreter string
	timeout     time.Duration
	maxOutput   int
	logger      *slog.Logger
}

// ProcessOption configures NewProcess.
type ProcessOption func(*Process)

// WithInterpreter sets the interpreter binary (python3 by default).
func WithInterpreter(path string) ProcessOption {
	return func(p *Process) { p.interpreter = path }
}

// WithProcessTimeout bounds the wall-clock time of one run.
func WithProcessTimeout(d time.Duration) ProcessOption {
	return func(p *Process) { p.timeout = d }
}

// WithMaxOutputBytes caps the captured stdout and stderr of one run.
func WithMaxOutputBytes(n int) ProcessOption {
	return func(p *Process) { p.maxOutput = n }
}

// WithProcessLogger sets the logger for run outcomes.
func WithProcessLogger(l *slog.Logger) ProcessOption {
	return func(p *Process) { p.logger = l }
}

// NewProcess builds a subprocess runner.
func NewProcess(opts ...ProcessOption) *Process {
	p := &Process{interpreter: "python3", timeout: 5 * time.Second, maxOutput: 64 << 10}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Language implements Runner.
func (p *Process) Language() string { return "python" }

// Run implements Runner.
func (p *Process) Run(ctx context.Context, source string) ExecutionResult {
	start := time.Now()
	res := p.run(ctx, source)
	p.logger.DebugContext(ctx, "sandbox run", "runner", "process",
		"interpreter", p.interpreter, "success", res.Success, "duration", time.Since(start))
	return res
}

func (p *Process) run(ctx context.Context, source string) ExecutionResult {
	dir, err := os.MkdirTemp("", "sandbox-*")
	if err != nil {
		return Failed(fmt.Sprintf("create workdir: %v", err))
	}
	defer os.RemoveAll(dir)

	harness := filepath.Join(dir, "harness.py")
	if err := os.WriteFile(harness, []byte(harnessSource), 0o600); err != nil {
		return Failed(fmt.Sprintf("write harness: %v", err))
	}
	if err := os.WriteFile(filepath.Join(dir, "program.py"), []byte(StripFences(source)), 0o600); err != nil {
		return Failed(fmt.Sprintf("write program: %v", err))
	}

	token, err := gonanoid.New()
	if err != nil {
		return Failed(fmt.Sprintf("generate result token: %v", err))
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	// -I: isolated mode, ignores PYTHON* env vars and the user site directory.
	cmd := exec.CommandContext(ctx, p.interpreter, "-I", harness)
	cmd.Dir = dir
	cmd.Env = []string{"PATH=" + os.Getenv("PATH"), "HOME=" + dir}
	cmd.WaitDelay = time.Second
	cmd.Stdin = strings.NewReader(token + "\n")
	stdout := &limitedBuffer{limit: p.maxOutput}
	stderr := &limitedBuffer{limit: p.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	runErr := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return Failed("execution time limit exceeded")
		}
		return Failed("execution canceled")
	}
	if res, ok := parseResult(stdout.String(), token); ok {
		return res
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			if msg := lastLine(stderr.String()); msg != "" {
				return Failed(msg)
			}
			return Failed(fmt.Sprintf("interpreter exited with code %d", exitErr.ExitCode()))
		}
		return Failed(fmt.Sprintf("start interpreter: %v", runErr))
	}
	return Failed("interpreter produced no result")
}

// parseResult finds the result line carrying token. More than one such line means
// the program got hold of the token, and the run fails.
func parseResult(stdout, token string) (ExecutionResult, bool) {
	prefix := resultMarker + token + " "
	var payload string
	found := false
	for line := range strings.Lines(stdout) {
		p, ok := strings.CutPrefix(strings.TrimRight(line, "\r\n"), prefix)
		if !ok {
			continue
		}
		if found {
			return Failed("multiple results from interpreter"), true
		}
		payload, found = p, true
	}
	if !found {
		return ExecutionResult{}, false
	}
	var res ExecutionResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return Failed("malformed result from interpreter"), true
	}
	if res.Success {
		res.Error = ""
	} else {
		res.Value = ""
		if res.Error == "" {
			res.Error = "program failed"
		}
	}
	return res, true
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// limitedBuffer keeps the first limit bytes written and silently drops the rest,
// so a chatty program cannot exhaust memory.
type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ Runner = (*Process)(nil)
