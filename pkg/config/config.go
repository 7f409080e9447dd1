package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all configuration for the application
type Config struct {
	GraphFile string `koanf:"graph"`    // Path to the JSON graph document
	Exposure  string `koanf:"exposure"` // Override for the document's exposure node
	Outcome   string `koanf:"outcome"`  // Override for the document's outcome node

	GenericNodes      []string `koanf:"generic-nodes"`      // Nodes removed before analysis
	StrongConfounders []string `koanf:"strong-confounders"` // Exception list for feedback breaking

	MaxSetSize    int           `koanf:"max-set-size"`   // Adjustment-set size bound
	MaxCandidates int           `koanf:"max-candidates"` // Backdoor candidate-pool cap
	MaxPathLen    int           `koanf:"max-path-len"`   // Path-length bound for the backdoor and bias searches (0 = unbounded)
	MaxCycleNodes int           `koanf:"max-cycle-nodes"`
	MaxCycles     int           `koanf:"max-cycles"`
	Timeout       time.Duration `koanf:"timeout"` // Budget for the unbounded enumerations

	WebMode   bool   `koanf:"web"`
	Port      int    `koanf:"port"`
	Watch     bool   `koanf:"watch"`
	Verbosity string `koanf:"verbosity"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"graph":              "",
		"exposure":           "",
		"outcome":            "",
		"generic-nodes":      []string{},
		"strong-confounders": []string{},
		"max-set-size":       0,
		"max-candidates":     20,
		"max-path-len":       0,
		"max-cycle-nodes":    200,
		"max-cycles":         100000,
		"timeout":            "30s",
		"web":                false,
		"port":               8080,
		"watch":              false,
		"verbosity":          "",
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - dag-analyzer.toml
	// We ignore errors here as the file might not exist
	_ = k.Load(file.Provider("dag-analyzer.toml"), toml.Parser())

	// 3. Environment Variables
	// Prefix: DAG_ANALYZER_ (e.g., DAG_ANALYZER_PORT=9090)
	if err := k.Load(env.Provider("DAG_ANALYZER_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, "DAG_ANALYZER_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
