package sandbox

import (
	"fmt"
	"log/slog"

	"github.com/skosovsky/agentcore/config"
)

// New builds the runner selected by cfg.
func New(cfg config.SandboxConfig, logger *slog.Logger) (Runner, error) {
	switch cfg.Kind {
	case config.SandboxStarlark, "":
		return NewStarlark(
			WithStarlarkTimeout(cfg.Timeout.Std()),
			WithMaxSteps(cfg.MaxSteps),
			WithStarlarkLogger(logger),
		), nil
	case config.SandboxProcess:
		opts := []ProcessOption{WithProcessTimeout(cfg.Timeout.Std()), WithProcessLogger(logger)}
		if cfg.Interpreter != "" {
			opts = append(opts, WithInterpreter(cfg.Interpreter))
		}
		if cfg.MaxOutputBytes > 0 {
			opts = append(opts, WithMaxOutputBytes(cfg.MaxOutputBytes))
		}
		return NewProcess(opts...), nil
	default:
		return nil, fmt.Errorf("unknown sandbox kind %q", cfg.Kind)
	}
}
