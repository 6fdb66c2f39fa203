// internal/core/config.go
// Configuration management using Koanf

package core

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/aspnmy/port_scanner/internal/models"
	"github.com/aspnmy/port_scanner/internal/output"
	"github.com/aspnmy/port_scanner/internal/probe"
	"github.com/aspnmy/port_scanner/pkg/portrange"
)

// EnvPrefix is the prefix of environment overrides,
// e.g. PORTSCAN_SCANNER__WORKERS=200
const EnvPrefix = "PORTSCAN_"

// Config represents the complete application configuration
type Config struct {
	Scanner  ScannerConfig  `koanf:"scanner"`
	Output   OutputConfig   `koanf:"output"`
	Services ServicesConfig `koanf:"services"`
	Log      LogConfig      `koanf:"log"`
}

// ScannerConfig contains scanner-specific settings
type ScannerConfig struct {
	Workers      int           `koanf:"workers"`
	Protocols    []string      `koanf:"protocols"`
	Ports        PortsConfig   `koanf:"ports"`
	TCPTimeout   time.Duration `koanf:"tcp_timeout"`
	UDPTimeout   time.Duration `koanf:"udp_timeout"`
	UDPPayload   string        `koanf:"udp_payload"`
	PollInterval time.Duration `koanf:"poll_interval"`
	RateLimit    int           `koanf:"rate_limit"` // probes per second, 0 = unlimited
}

// PortsConfig is an inclusive port range
type PortsConfig struct {
	Start int `koanf:"start"`
	End   int `koanf:"end"`
}

// OutputConfig contains output settings
type OutputConfig struct {
	Format           string        `koanf:"format"` // see output.Formats
	Color            bool          `koanf:"color"`
	Progress         bool          `koanf:"progress"`
	ProgressInterval time.Duration `koanf:"progress_interval"`
}

// ServicesConfig points at the services database
type ServicesConfig struct {
	File string `koanf:"file"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, console
	File   string `koanf:"file"`
}

// Defaults returns the default configuration
func Defaults() Config {
	full := portrange.Full()
	return Config{
		Scanner: ScannerConfig{
			Workers:      100,
			Protocols:    []string{probe.TCPName, probe.UDPName},
			Ports:        PortsConfig{Start: full.Start, End: full.End},
			TCPTimeout:   250 * time.Millisecond,
			UDPTimeout:   500 * time.Millisecond,
			UDPPayload:   "test",
			PollInterval: 100 * time.Millisecond,
		},
		Output: OutputConfig{
			Format:           "table",
			Color:            true,
			Progress:         true,
			ProgressInterval: 2 * time.Second,
		},
		Services: ServicesConfig{
			File: "/etc/services",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load layers defaults, the optional YAML file, PORTSCAN_ environment
// variables and finally overrides (flat koanf keys such as
// "scanner.workers"), then validates the result
func Load(configPath string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// 3. Environment, PORTSCAN_OUTPUT__FORMAT -> output.format
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Command line
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load flag overrides: %w", err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// comma separated env values arrive as a single element
	cfg.Scanner.Protocols = splitList(cfg.Scanner.Protocols)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate performs validation on loaded config
func Validate(cfg *Config) error {
	if cfg.Scanner.Workers < 1 || cfg.Scanner.Workers > 100000 {
		return fmt.Errorf("invalid workers: %d (must be between 1 and 100000)", cfg.Scanner.Workers)
	}

	if _, err := cfg.PortRange(); err != nil {
		return err
	}

	if len(cfg.Scanner.Protocols) == 0 {
		return fmt.Errorf("no protocols configured")
	}

	if cfg.Scanner.TCPTimeout <= 0 || cfg.Scanner.UDPTimeout <= 0 {
		return fmt.Errorf("invalid probe timeout: tcp=%v udp=%v (must be positive)",
			cfg.Scanner.TCPTimeout, cfg.Scanner.UDPTimeout)
	}
	if cfg.Scanner.PollInterval <= 0 {
		return fmt.Errorf("invalid poll_interval: %v (must be positive)", cfg.Scanner.PollInterval)
	}
	if cfg.Scanner.RateLimit < 0 {
		return fmt.Errorf("invalid rate_limit: %d (must be >= 0)", cfg.Scanner.RateLimit)
	}

	if formats := output.Formats(); !slices.Contains(formats, cfg.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of %s)",
			cfg.Output.Format, strings.Join(formats, ", "))
	}
	if cfg.Output.ProgressInterval < 0 {
		return fmt.Errorf("invalid progress_interval: %v", cfg.Output.ProgressInterval)
	}

	return nil
}

// PortRange returns the configured range
func (c *Config) PortRange() (portrange.Range, error) {
	return portrange.New(c.Scanner.Ports.Start, c.Scanner.Ports.End)
}

// ScanConfig builds the engine input for target. Protocols are
// normalised and de-duplicated keeping first occurrence; whether each is
// supported is checked by the engine against its registry.
func (c *Config) ScanConfig(target string) (models.ScanConfig, error) {
	r, err := c.PortRange()
	if err != nil {
		return models.ScanConfig{}, err
	}

	seen := make(map[string]bool, len(c.Scanner.Protocols))
	var protocols []string
	for _, p := range c.Scanner.Protocols {
		p = probe.Normalize(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		protocols = append(protocols, p)
	}

	return models.ScanConfig{
		Target:    strings.TrimSpace(target),
		Ports:     r.Ports(),
		Protocols: protocols,
		Workers:   c.Scanner.Workers,
	}, nil
}

// ProbeOptions returns the options for the built-in probes
func (c *Config) ProbeOptions() probe.Options {
	return probe.Options{
		TCPTimeout: c.Scanner.TCPTimeout,
		UDPTimeout: c.Scanner.UDPTimeout,
		UDPPayload: []byte(c.Scanner.UDPPayload),
	}
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
