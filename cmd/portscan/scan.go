package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aspnmy/port_scanner/internal/app"
	"github.com/aspnmy/port_scanner/internal/core"
	"github.com/aspnmy/port_scanner/internal/engine"
	"github.com/aspnmy/port_scanner/internal/interrupt"
	"github.com/aspnmy/port_scanner/internal/output"
	"github.com/aspnmy/port_scanner/internal/probe"
	"github.com/aspnmy/port_scanner/internal/services"
	"github.com/aspnmy/port_scanner/pkg/logger"
	"github.com/aspnmy/port_scanner/pkg/portrange"
	"github.com/aspnmy/port_scanner/pkg/ratelimit"
)

// how long a forced exit waits for the scan in flight to wind down
const shutdownGrace = time.Second

type scanFlags struct {
	configFile       string
	ports            string
	threads          int
	protocols        []string
	output           string
	verbose          bool
	rate             int
	noColor          bool
	noProgress       bool
	progressInterval time.Duration
	tcpTimeout       time.Duration
	udpTimeout       time.Duration
	servicesFile     string
	logFormat        string
	logFile          string
}

func newScanCmd() *cobra.Command {
	var flags scanFlags

	cmd := &cobra.Command{
		Use:   "scan TARGET",
		Short: "Scan a port range on a target host",
		Example: `  portscan scan 192.168.1.1
  portscan scan example.com -p 20 25
  portscan scan -p 20 25 example.com --protocols tcp udp
  portscan scan example.com -p 1-1024 --protocols tcp -t 500
  portscan scan ::1 -p 53 --protocols UDP -o jsonl`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseScanArgs(cmd.Flags(), &flags, args)
			if err != nil {
				return err
			}
			overrides, err := flagOverrides(cmd.Flags(), &flags)
			if err != nil {
				return err
			}
			return runScan(cmd, &flags, target, overrides)
		},
	}

	bindScanFlags(cmd.Flags(), &flags)

	return cmd
}

func bindScanFlags(fs *pflag.FlagSet, flags *scanFlags) {
	fs.StringVar(&flags.configFile, "config", "", "Config file path (YAML)")
	fs.StringVarP(&flags.ports, "ports", "p", "1-65535", "Port range: START END, START-END or a single port")
	fs.IntVarP(&flags.threads, "threads", "t", 100, "Number of concurrent workers")
	fs.StringSliceVar(&flags.protocols, "protocols", []string{probe.TCPName, probe.UDPName}, "Protocols to probe (case-insensitive)")
	fs.StringVarP(&flags.output, "output", "o", "table", "Output format: "+strings.Join(output.Formats(), ", "))
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output (debug level)")
	fs.IntVar(&flags.rate, "rate", 0, "Max probes per second (0 = unlimited)")
	fs.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")
	fs.DurationVar(&flags.progressInterval, "progress-interval", 2*time.Second, "Progress bar refresh interval")
	fs.DurationVar(&flags.tcpTimeout, "tcp-timeout", 250*time.Millisecond, "TCP connect timeout")
	fs.DurationVar(&flags.udpTimeout, "udp-timeout", 500*time.Millisecond, "UDP reply timeout")
	fs.StringVar(&flags.servicesFile, "services-file", services.DefaultFile, "services(5) database for service names")
	fs.StringVar(&flags.logFormat, "log-format", "console", "Log format: console, json")
	fs.StringVar(&flags.logFile, "log-file", "", "Log file (default stderr)")
}

// parseScanArgs picks TARGET out of the positional arguments. pflag
// leaves the second value of "-p 20 25" and "--protocols tcp udp" as
// positionals, wherever they appear relative to TARGET, so a bare port
// completes a single-port --ports and a known protocol name extends
// --protocols. The first token that is neither is the target.
func parseScanArgs(fs *pflag.FlagSet, f *scanFlags, args []string) (string, error) {
	known := probe.NewDefaultRegistry(probe.DefaultOptions())

	var target string
	for _, arg := range args {
		switch {
		case fs.Changed("ports") && !strings.Contains(f.ports, "-") && isPort(arg):
			f.ports += "-" + arg
		case fs.Changed("protocols") && known.Has(probe.Normalize(arg)):
			f.protocols = append(f.protocols, arg)
		case target == "":
			target = arg
		default:
			return "", fmt.Errorf("unexpected argument %q", arg)
		}
	}

	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("missing TARGET")
	}
	return target, nil
}

func isPort(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

// flagOverrides maps the flags the user actually set onto config keys so
// that unset flags never mask file or environment values
func flagOverrides(fs *pflag.FlagSet, f *scanFlags) (map[string]any, error) {
	overrides := make(map[string]any)

	var err error
	fs.Visit(func(fl *pflag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "ports":
			var r portrange.Range
			if r, err = portrange.Parse(f.ports); err != nil {
				err = fmt.Errorf("invalid --ports: %w", err)
				return
			}
			overrides["scanner.ports.start"] = r.Start
			overrides["scanner.ports.end"] = r.End
		case "threads":
			overrides["scanner.workers"] = f.threads
		case "protocols":
			overrides["scanner.protocols"] = f.protocols
		case "output":
			overrides["output.format"] = f.output
		case "verbose":
			if f.verbose {
				overrides["log.level"] = "debug"
			}
		case "rate":
			overrides["scanner.rate_limit"] = f.rate
		case "no-color":
			overrides["output.color"] = !f.noColor
		case "no-progress":
			overrides["output.progress"] = !f.noProgress
		case "progress-interval":
			overrides["output.progress_interval"] = f.progressInterval
		case "tcp-timeout":
			overrides["scanner.tcp_timeout"] = f.tcpTimeout
		case "udp-timeout":
			overrides["scanner.udp_timeout"] = f.udpTimeout
		case "services-file":
			overrides["services.file"] = f.servicesFile
		case "log-format":
			overrides["log.format"] = f.logFormat
		case "log-file":
			overrides["log.file"] = f.logFile
		}
	})
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

func runScan(cmd *cobra.Command, flags *scanFlags, target string, overrides map[string]any) error {
	cfg, err := core.Load(flags.configFile, overrides)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry := probe.NewDefaultRegistry(cfg.ProbeOptions())

	if r, err := cfg.PortRange(); err == nil {
		logger.Debug("Scan configured",
			logger.String("target", target),
			logger.String("ports", r.String()),
			logger.Strings("protocols", cfg.Scanner.Protocols),
			logger.Int("workers", cfg.Scanner.Workers),
		)
	}

	scanCfg, err := cfg.ScanConfig(target)
	if err != nil {
		return err
	}
	// unknown protocols abort here, before any probe runs
	if err := engine.Validate(scanCfg, registry); err != nil {
		return err
	}

	lookup := services.New(cfg.Services.File)
	formatter, err := output.Get(cfg.Output.Format, output.Options{
		Lookup: lookup,
		Color:  cfg.Output.Color,
	})
	if err != nil {
		return fmt.Errorf("output format %q: %w", cfg.Output.Format, err)
	}

	interval := cfg.Output.ProgressInterval
	if !cfg.Output.Progress {
		interval = 0
	}
	reporter := output.NewConsoleProgress(cmd.ErrOrStderr(), interval, cfg.Output.Color)

	var limiter *ratelimit.Limiter
	if cfg.Scanner.RateLimit > 0 {
		limiter = ratelimit.New(ratelimit.Config{Rate: cfg.Scanner.RateLimit})
	}

	eng := engine.New(engine.Options{
		Registry:     registry,
		Limiter:      limiter,
		PollInterval: cfg.Scanner.PollInterval,
		OnPoll:       reporter.UpdateProgress,
	})

	scanner := app.NewScannerApp(app.ScannerDeps{
		Engine:    eng,
		Formatter: formatter,
		Reporter:  reporter,
		Out:       cmd.OutOrStdout(),
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctrl := interrupt.New()
	interrupt.WatchSignals(ctx, ctrl, func() {
		forceExit(cmd.ErrOrStderr(), scanner, shutdownGrace, os.Exit)
	})

	_, err = scanner.Run(ctx, scanCfg, ctrl)
	return err
}

// forceExit gives the scan in flight up to grace to stop its workers,
// then exits with forcedExitCode whether or not it did
func forceExit(w io.Writer, scanner *app.ScannerApp, grace time.Duration, exit func(int)) {
	fmt.Fprintln(w, "\nForced exit")

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := scanner.Shutdown(ctx); err != nil {
		logger.Warn("Scan did not stop before forced exit", logger.Err(err))
	}

	_ = logger.Sync()
	exit(forcedExitCode)
}
