package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound indicates no config file was found in the standard search locations.
var ErrConfigNotFound = errors.New("configuration file not found")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FIVELEVELS_"

// Load builds the configuration: defaults, then the YAML file, then environment
// overrides, then validation. An explicit path must exist; without one the
// standard locations are searched and a missing file is not an error.
func Load(explicitPath string) (*Config, error) {
	cfg := Default()
	path := explicitPath
	if path == "" {
		found, err := findConfigFile()
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		path = found
	} else if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: specified config file does not exist: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("cannot access config file %s: %w", path, err)
	}
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
		}
		defer file.Close()
		if err := decodeInto(cfg, file); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
// The environment is not consulted.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeInto(cfg, r); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeInto expands $VAR references in the raw document, then decodes it over cfg.
func decodeInto(cfg *Config, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("error reading config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if strings.TrimSpace(expanded) == "" {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if strings.Contains(string(data), "$") {
			return fmt.Errorf("error parsing YAML config: %w (hint: environment variable expansion may have introduced invalid syntax)", err)
		}
		return fmt.Errorf("error parsing YAML config: %w", err)
	}
	return nil
}

// findConfigFile searches the working directory, then the user config directory.
func findConfigFile() (string, error) {
	configNames := []string{"fivelevels.yaml", "fivelevels.yml"}

	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}

	if userConfigDir, err := os.UserConfigDir(); err == nil {
		dir := filepath.Join(userConfigDir, "fivelevels")
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", ErrConfigNotFound
}

// applyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
// Provider-native key variables fill the API key only when nothing else set it.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	str("PROVIDER", &cfg.LLM.Provider)
	str("MODEL", &cfg.LLM.Model)
	str("API_KEY", &cfg.LLM.APIKey)
	str("BASE_URL", &cfg.LLM.BaseURL)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("SANDBOX", &cfg.Sandbox.Kind)
	str("SANDBOX_INTERPRETER", &cfg.Sandbox.Interpreter)

	if v, ok := lookup(EnvPrefix + "MAX_STEPS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMAX_STEPS: %w", EnvPrefix, err)
		}
		cfg.Agent.MaxSteps = n
	}
	if v, ok := lookup(EnvPrefix + "TEMPERATURE"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sTEMPERATURE: %w", EnvPrefix, err)
		}
		cfg.LLM.Temperature = &f
	}

	if cfg.LLM.APIKey == "" {
		var native string
		switch cfg.LLM.Provider {
		case ProviderOpenAI:
			native = "OPENAI_API_KEY"
		case ProviderAnthropic:
			native = "ANTHROPIC_API_KEY"
		}
		if v, ok := lookup(native); ok && native != "" {
			cfg.LLM.APIKey = v
		}
	}
	return nil
}
