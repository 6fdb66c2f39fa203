// internal/engine/engine.go
// Concurrent scan engine: validation, orchestration and cancellation

package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aspnmy/port_scanner/internal/interrupt"
	"github.com/aspnmy/port_scanner/internal/models"
	"github.com/aspnmy/port_scanner/internal/probe"
	"github.com/aspnmy/port_scanner/internal/progress"
	"github.com/aspnmy/port_scanner/pkg/logger"
	"github.com/aspnmy/port_scanner/pkg/portrange"
	"github.com/aspnmy/port_scanner/pkg/ratelimit"
	"github.com/google/uuid"
)

// DefaultPollInterval is how often the wait loop wakes up
const DefaultPollInterval = 100 * time.Millisecond

// Options holds engine dependencies
type Options struct {
	Registry     *probe.Registry
	Limiter      *ratelimit.Limiter // nil = unlimited
	PollInterval time.Duration

	// OnPoll is called from the wait loop on every poll iteration. It must
	// return quickly.
	OnPoll func(models.Progress)
}

// Engine runs scans. One Engine may run several scans, one at a time.
type Engine struct {
	opts Options

	mu      sync.Mutex
	current *scan
}

// New creates a new scan engine
func New(opts Options) *Engine {
	if opts.Registry == nil {
		opts.Registry = probe.NewDefaultRegistry(probe.DefaultOptions())
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Engine{opts: opts}
}

// Registry returns the probe registry used for validation and probing
func (e *Engine) Registry() *probe.Registry {
	return e.opts.Registry
}

// Tracker returns the progress tracker of the running (or last) scan
func (e *Engine) Tracker() *progress.Tracker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	return e.current.tracker
}

// Validate checks cfg against the registry without starting anything
func Validate(cfg models.ScanConfig, registry *probe.Registry) error {
	if strings.TrimSpace(cfg.Target) == "" {
		return invalid("target", nil, "target is empty")
	}

	if len(cfg.Ports) == 0 {
		return invalid("ports", nil, "port range is empty")
	}
	seenPorts := make(map[int]struct{}, len(cfg.Ports))
	for _, p := range cfg.Ports {
		if !portrange.Full().Contains(p) {
			return invalid("port", p, fmt.Sprintf("must be between %d and %d", portrange.MinPort, portrange.MaxPort))
		}
		if _, dup := seenPorts[p]; dup {
			return invalid("port", p, "listed more than once")
		}
		seenPorts[p] = struct{}{}
	}

	if len(cfg.Protocols) == 0 {
		return invalid("protocols", nil, "at least one protocol is required")
	}
	seenProtos := make(map[string]struct{}, len(cfg.Protocols))
	for _, name := range cfg.Protocols {
		norm := probe.Normalize(name)
		if _, dup := seenProtos[norm]; dup {
			return invalid("protocol", name, "listed more than once")
		}
		seenProtos[norm] = struct{}{}
		if registry == nil || !registry.Has(norm) {
			return &InvalidConfigError{
				Field:  "protocol",
				Value:  name,
				Reason: "unsupported protocol",
				Cause:  probe.ErrProbeNotFound,
			}
		}
	}

	if cfg.Workers <= 0 {
		return invalid("worker count", cfg.Workers, "must be positive")
	}

	return nil
}

// Run scans cfg and returns the sorted open ports. Invalid configuration
// fails before any worker starts. If ctrl (or ctx) requests cancellation
// before every task completes, Run returns immediately with the partial
// report (Cancelled = true) and an error wrapping ErrScanCancelled. A nil
// ctrl gets a private controller.
func (e *Engine) Run(ctx context.Context, cfg models.ScanConfig, ctrl *interrupt.Controller) (*models.ScanReport, error) {
	if err := Validate(cfg, e.opts.Registry); err != nil {
		return nil, err
	}
	if ctrl == nil {
		ctrl = interrupt.New()
	}

	s, err := e.newScan(cfg, ctrl)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.current = s
	e.mu.Unlock()

	s.log.Info("Starting scan",
		logger.String("target", cfg.Target),
		logger.Int("ports", len(cfg.Ports)),
		logger.Strings("protocols", s.protocols),
		logger.Int("workers", s.workers),
	)

	poolCtx, stopPool := context.WithCancel(ctx)
	defer stopPool()

	done := s.start(poolCtx)

	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			if ctx.Err() != nil {
				ctrl.Request("context: " + ctx.Err().Error())
				return s.abort(stopPool)
			}
			return s.finish(), nil

		case <-ctrl.Requested():
			return s.abort(stopPool)

		case <-ctx.Done():
			ctrl.Request("context: " + ctx.Err().Error())
			return s.abort(stopPool)

		case <-ticker.C:
			if e.opts.OnPoll != nil {
				e.opts.OnPoll(s.progress())
			}
		}
	}
}

func (e *Engine) newScan(cfg models.ScanConfig, ctrl *interrupt.Controller) (*scan, error) {
	protocols := make([]string, len(cfg.Protocols))
	probes := make([]probe.ProbeFunc, len(cfg.Protocols))
	for i, name := range cfg.Protocols {
		protocols[i] = probe.Normalize(name)
		fn, ok := e.opts.Registry.Lookup(protocols[i])
		if !ok {
			// registry changed since Validate
			return nil, fmt.Errorf("protocol %q: %w", name, probe.ErrProbeNotFound)
		}
		probes[i] = fn
	}

	total := cfg.TotalTasks()
	workers := cfg.Workers
	if int64(workers) > total {
		workers = int(total)
	}

	id := generateScanID()
	return &scan{
		id:        id,
		cfg:       cfg,
		protocols: protocols,
		probes:    probes,
		workers:   workers,
		limiter:   e.opts.Limiter,
		tracker:   progress.New(total),
		ctrl:      ctrl,
		startedAt: time.Now(),
		log:       logger.Named("engine").With(logger.String("scan_id", id)),
	}, nil
}

// generateScanID generates a unique scan ID
func generateScanID() string {
	return fmt.Sprintf("scan_%s", uuid.New().String()[:8])
}
