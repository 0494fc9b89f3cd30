// Package config holds the explicit configuration object for the fivelevels
// agents. It is built once at process start and passed by reference to the
// components that need it; nothing reads credentials from package state.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Provider names accepted in LLMConfig.Provider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Sandbox runner kinds accepted in SandboxConfig.Kind.
const (
	SandboxStarlark = "starlark"
	SandboxProcess  = "process"
)

// Config is the root configuration document.
type Config struct {
	LLM      LLMConfig     `yaml:"llm" validate:"required"`
	Agent    AgentConfig   `yaml:"agent"`
	Sandbox  SandboxConfig `yaml:"sandbox"`
	LogLevel string        `yaml:"logLevel" validate:"omitempty,oneof=debug info warn error"`
}

// LLMConfig configures the completion service client. APIKey is consumed only by llm.New.
type LLMConfig struct {
	Provider    string   `yaml:"provider" validate:"required,oneof=openai anthropic"`
	Model       string   `yaml:"model" validate:"required"`
	APIKey      string   `yaml:"apiKey" validate:"required"`
	BaseURL     string   `yaml:"baseUrl" validate:"omitempty,url"`
	Temperature *float64 `yaml:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int64    `yaml:"maxTokens" validate:"gte=0"`
	Timeout     Duration `yaml:"timeout" validate:"gte=0"`
	MaxRetries  uint     `yaml:"maxRetries"`
}

// AgentConfig bounds the planner loop.
type AgentConfig struct {
	MaxSteps          int      `yaml:"maxSteps" validate:"gte=1"`
	CompletionTimeout Duration `yaml:"completionTimeout" validate:"gte=0"`
	ToolTimeout       Duration `yaml:"toolTimeout" validate:"gte=0"`
}

// SandboxConfig selects and limits the code runner.
type SandboxConfig struct {
	Kind           string   `yaml:"kind" validate:"oneof=starlark process"`
	Timeout        Duration `yaml:"timeout" validate:"gt=0"`
	MaxSteps       uint64   `yaml:"maxSteps"`
	Interpreter    string   `yaml:"interpreter" validate:"required_if=Kind process"`
	MaxOutputBytes int      `yaml:"maxOutputBytes" validate:"gte=0"`
}

// Duration is a time.Duration that decodes from YAML strings such as "30s".
// Bare integers are read as seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*d = 0
		return nil
	}
	if parsed, err := time.ParseDuration(s); err == nil {
		*d = Duration(parsed)
		return nil
	}
	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns a configuration with every optional field populated.
// The API key is left empty; it comes from the file or the environment.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   ProviderOpenAI,
			Model:      "gpt-4o-mini",
			Timeout:    Duration(60 * time.Second),
			MaxRetries: 3,
		},
		Agent: AgentConfig{
			MaxSteps:          10,
			CompletionTimeout: Duration(60 * time.Second),
			ToolTimeout:       Duration(30 * time.Second),
		},
		Sandbox: SandboxConfig{
			Kind:           SandboxStarlark,
			Timeout:        Duration(5 * time.Second),
			MaxSteps:       1_000_000,
			Interpreter:    "python3",
			MaxOutputBytes: 64 << 10,
		},
		LogLevel: "info",
	}
}

// Validate checks struct tags on the whole document.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
