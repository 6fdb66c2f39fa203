package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scanner.Workers != 100 {
		t.Errorf("workers = %d, want 100", cfg.Scanner.Workers)
	}
	if got := strings.Join(cfg.Scanner.Protocols, ","); got != "tcp,udp" {
		t.Errorf("protocols = %s, want tcp,udp", got)
	}
	if cfg.Scanner.Ports.Start != 1 || cfg.Scanner.Ports.End != 65535 {
		t.Errorf("ports = %+v, want 1-65535", cfg.Scanner.Ports)
	}
	if cfg.Scanner.TCPTimeout != 250*time.Millisecond {
		t.Errorf("tcp_timeout = %v", cfg.Scanner.TCPTimeout)
	}
	if cfg.Output.Format != "table" {
		t.Errorf("format = %s", cfg.Output.Format)
	}
}

func TestLoad_FileEnvAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portscan.yaml")
	yamlData := `
scanner:
  workers: 10
  ports:
    start: 20
    end: 25
  tcp_timeout: 1s
output:
  format: csv
`
	if err := os.WriteFile(path, []byte(yamlData), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PORTSCAN_OUTPUT__FORMAT", "jsonl")
	t.Setenv("PORTSCAN_SCANNER__PROTOCOLS", "TCP, udp")

	cfg, err := Load(path, map[string]any{"scanner.workers": 7})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Scanner.Workers != 7 {
		t.Errorf("workers = %d, override should win", cfg.Scanner.Workers)
	}
	if cfg.Scanner.Ports.Start != 20 || cfg.Scanner.Ports.End != 25 {
		t.Errorf("ports = %+v, want file values", cfg.Scanner.Ports)
	}
	if cfg.Scanner.TCPTimeout != time.Second {
		t.Errorf("tcp_timeout = %v, want 1s", cfg.Scanner.TCPTimeout)
	}
	if cfg.Output.Format != "jsonl" {
		t.Errorf("format = %s, env should win over file", cfg.Output.Format)
	}
	if got := strings.Join(cfg.Scanner.Protocols, ","); got != "TCP,udp" {
		t.Errorf("protocols = %s", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero workers", func(c *Config) { c.Scanner.Workers = 0 }, "invalid workers"},
		{"too many workers", func(c *Config) { c.Scanner.Workers = 100001 }, "invalid workers"},
		{"port zero", func(c *Config) { c.Scanner.Ports.Start = 0 }, "port"},
		{"port above max", func(c *Config) { c.Scanner.Ports.End = 65536 }, "port"},
		{"reversed range", func(c *Config) { c.Scanner.Ports = PortsConfig{Start: 100, End: 10} }, "port"},
		{"no protocols", func(c *Config) { c.Scanner.Protocols = nil }, "no protocols"},
		{"zero timeout", func(c *Config) { c.Scanner.UDPTimeout = 0 }, "timeout"},
		{"zero poll", func(c *Config) { c.Scanner.PollInterval = 0 }, "poll_interval"},
		{"negative rate", func(c *Config) { c.Scanner.RateLimit = -1 }, "rate_limit"},
		{"bad format", func(c *Config) { c.Output.Format = "xml" }, "must be one of csv, jsonl, table"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := Validate(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestScanConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Scanner.Ports = PortsConfig{Start: 20, End: 22}
	cfg.Scanner.Protocols = []string{"UDP", "tcp", "udp", " "}
	cfg.Scanner.Workers = 3

	sc, err := cfg.ScanConfig("  example.com ")
	if err != nil {
		t.Fatalf("ScanConfig() error = %v", err)
	}

	if sc.Target != "example.com" {
		t.Errorf("target = %q", sc.Target)
	}
	if len(sc.Ports) != 3 || sc.Ports[0] != 20 || sc.Ports[2] != 22 {
		t.Errorf("ports = %v", sc.Ports)
	}
	if got := strings.Join(sc.Protocols, ","); got != "udp,tcp" {
		t.Errorf("protocols = %s, want udp,tcp", got)
	}
	if sc.Workers != 3 {
		t.Errorf("workers = %d", sc.Workers)
	}
}

func TestProbeOptions(t *testing.T) {
	cfg := Defaults()
	opts := cfg.ProbeOptions()

	if opts.TCPTimeout != cfg.Scanner.TCPTimeout || opts.UDPTimeout != cfg.Scanner.UDPTimeout {
		t.Errorf("timeouts = %v/%v", opts.TCPTimeout, opts.UDPTimeout)
	}
	if string(opts.UDPPayload) != "test" {
		t.Errorf("payload = %q", opts.UDPPayload)
	}
}
