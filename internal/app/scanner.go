// internal/app/scanner.go
// Application orchestrator for the port scanner

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/aspnmy/port_scanner/internal/engine"
	"github.com/aspnmy/port_scanner/internal/interrupt"
	"github.com/aspnmy/port_scanner/internal/models"
	"github.com/aspnmy/port_scanner/internal/output"
	"github.com/aspnmy/port_scanner/pkg/logger"
)

// ScanRunner is the part of the engine the app depends on
type ScanRunner interface {
	Run(ctx context.Context, cfg models.ScanConfig, ctrl *interrupt.Controller) (*models.ScanReport, error)
}

// ScannerApp orchestrates the scanning process
type ScannerApp struct {
	engine    ScanRunner
	formatter output.Formatter
	reporter  output.ProgressReporter
	out       io.Writer

	// Lifecycle management
	mu   sync.Mutex
	ctrl *interrupt.Controller
	wg   sync.WaitGroup
}

// ScannerDeps holds dependencies for the scanner app
type ScannerDeps struct {
	Engine    ScanRunner
	Formatter output.Formatter
	Reporter  output.ProgressReporter // optional
	Out       io.Writer               // defaults to os.Stdout
}

// NewScannerApp creates a new scanner application
func NewScannerApp(deps ScannerDeps) *ScannerApp {
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	return &ScannerApp{
		engine:    deps.Engine,
		formatter: deps.Formatter,
		reporter:  deps.Reporter,
		out:       out,
	}
}

// Controller returns the interrupt controller of the scan in flight,
// nil when idle
func (app *ScannerApp) Controller() *interrupt.Controller {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.ctrl
}

// Run executes one scan and renders its report. ctrl may be nil, in
// which case a fresh controller is created. A user cancellation is not
// an error: the partial report is rendered and Run returns nil.
func (app *ScannerApp) Run(ctx context.Context, cfg models.ScanConfig, ctrl *interrupt.Controller) (*models.ScanReport, error) {
	if ctrl == nil {
		ctrl = interrupt.New()
	}

	app.mu.Lock()
	app.ctrl = ctrl
	app.wg.Add(1)
	app.mu.Unlock()

	defer func() {
		app.mu.Lock()
		app.ctrl = nil
		app.mu.Unlock()
		app.wg.Done()
	}()

	if app.reporter != nil {
		app.reporter.Start(cfg.Target)
	}

	report, err := app.engine.Run(ctx, cfg, ctrl)
	if err != nil && !errors.Is(err, engine.ErrScanCancelled) {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	if app.reporter != nil {
		app.reporter.Finish(report)
	}

	if app.formatter != nil {
		if err := app.formatter.Render(app.out, report); err != nil {
			return report, fmt.Errorf("failed to render report: %w", err)
		}
	}

	logger.Debug("Report rendered",
		logger.String("scan_id", report.ScanID),
		logger.Int("rows", len(report.Open)),
		logger.Bool("cancelled", report.Cancelled),
	)

	return report, nil
}

// Shutdown requests cancellation of the scan in flight and waits for
// Run to return or ctx to expire
func (app *ScannerApp) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down scanner...")

	if ctrl := app.Controller(); ctrl != nil {
		ctrl.Request("shutdown")
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete")
		return nil
	case <-ctx.Done():
		logger.Warn("Shutdown timeout exceeded")
		return ctx.Err()
	}
}
