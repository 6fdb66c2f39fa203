// internal/engine/pool.go
// Fixed-size worker pool for one scan

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aspnmy/port_scanner/internal/interrupt"
	"github.com/aspnmy/port_scanner/internal/models"
	"github.com/aspnmy/port_scanner/internal/probe"
	"github.com/aspnmy/port_scanner/internal/progress"
	"github.com/aspnmy/port_scanner/pkg/logger"
	"github.com/aspnmy/port_scanner/pkg/ratelimit"
)

// scan is the state of one Run. open, closed and the tracker increment are
// updated together under mu; once closed is set no further task is merged.
type scan struct {
	id        string
	cfg       models.ScanConfig
	protocols []string
	probes    []probe.ProbeFunc
	workers   int
	limiter   *ratelimit.Limiter
	tracker   *progress.Tracker
	ctrl      *interrupt.Controller
	startedAt time.Time
	log       *zap.Logger

	mu     sync.Mutex
	open   []models.OpenPort
	closed bool
}

// start feeds tasks to the workers and returns a channel closed once every
// worker has exited
func (s *scan) start(ctx context.Context) <-chan struct{} {
	bufferSize := s.workers * 4
	if bufferSize > len(s.cfg.Ports) {
		bufferSize = len(s.cfg.Ports)
	}
	tasks := make(chan models.ScanTask, bufferSize)

	// Feed targets with context awareness
	go func() {
		defer close(tasks)
		for _, port := range s.cfg.Ports {
			select {
			case <-ctx.Done():
				return
			case tasks <- models.ScanTask{Port: port, Protocols: s.protocols}:
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, tasks)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// worker processes tasks until the queue drains or ctx is cancelled.
// Tasks still queued at cancellation are dropped.
func (s *scan) worker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan models.ScanTask) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			s.merge(ctx, s.execute(ctx, task))
		}
	}
}

// execute probes every protocol of task in configured order
func (s *scan) execute(ctx context.Context, task models.ScanTask) []models.ProbeResult {
	results := make([]models.ProbeResult, 0, len(task.Protocols))
	for i, name := range task.Protocols {
		res := models.ProbeResult{Port: task.Port, Protocol: name}

		if err := s.limiter.Wait(ctx); err != nil {
			res.Error = fmt.Sprintf("rate limit wait failed: %v", err)
			results = append(results, res)
			continue
		}

		open, err := safeProbe(ctx, s.probes[i], s.cfg.Target, task.Port)
		res.Open = open && err == nil
		if err != nil {
			res.Error = err.Error()
			// most probes fail on a wide scan; skip building fields
			if logger.Enabled(zapcore.DebugLevel) {
				s.log.Debug("Probe failed",
					logger.Int("port", task.Port),
					logger.String("protocol", name),
					logger.Err(err),
				)
			}
		}
		results = append(results, res)
	}
	return results
}

// safeProbe turns a panicking probe into an error
func safeProbe(ctx context.Context, fn probe.ProbeFunc, target string, port int) (open bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			open, err = false, fmt.Errorf("probe panic: %v", r)
		}
	}()
	return fn(ctx, target, port)
}

// merge records one finished task. Results arriving after cancellation
// are discarded and do not count as completed.
func (s *scan) merge(ctx context.Context, results []models.ProbeResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ctx.Err() != nil {
		return false
	}
	for _, r := range results {
		if r.Open {
			s.open = append(s.open, models.OpenPort{Port: r.Port, Protocol: r.Protocol})
		}
	}
	s.tracker.Increment()
	return true
}

// snapshotOpen closes the scan to further merges and returns a sorted copy
// of the open ports
func (s *scan) snapshotOpen() []models.OpenPort {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	open := make([]models.OpenPort, len(s.open))
	copy(open, s.open)
	models.SortOpenPorts(open)
	return open
}

func (s *scan) progress() models.Progress {
	s.mu.Lock()
	openCount := len(s.open)
	s.mu.Unlock()

	completed, total := s.tracker.Snapshot()
	return models.Progress{
		ScanID:    s.id,
		Completed: completed,
		Total:     total,
		OpenPorts: openCount,
		StartTime: s.startedAt,
		Elapsed:   time.Since(s.startedAt),
	}
}

func (s *scan) report(open []models.OpenPort, cancelled bool) *models.ScanReport {
	completed, total := s.tracker.Snapshot()
	return &models.ScanReport{
		ScanID:    s.id,
		Target:    s.cfg.Target,
		Protocols: s.protocols,
		Open:      open,
		Completed: completed,
		Total:     total,
		Cancelled: cancelled,
		StartedAt: s.startedAt,
		Elapsed:   time.Since(s.startedAt),
	}
}

func (s *scan) finish() *models.ScanReport {
	r := s.report(s.snapshotOpen(), false)
	s.log.Info("Scan complete",
		logger.Int64("completed", r.Completed),
		logger.Int("open", len(r.Open)),
		logger.Duration("duration", r.Elapsed),
	)
	s.logLimiterStats()
	return r
}

// logLimiterStats reports how the shared limiter behaved during the scan
func (s *scan) logLimiterStats() {
	if s.limiter == nil {
		return
	}
	stats := s.limiter.Stats()
	s.log.Info("Rate limiter stats",
		logger.Int64("allowed", stats.Allowed),
		logger.Int64("rejected", stats.Rejected),
		logger.Float64("rate", stats.Rate),
	)
}

// abort stops merging, cancels queued and in-flight work without waiting
// for it, and returns the partial report
func (s *scan) abort(stopPool context.CancelFunc) (*models.ScanReport, error) {
	open := s.snapshotOpen()
	stopPool()
	s.ctrl.MarkCancelled()

	r := s.report(open, true)
	s.log.Warn("Scan cancelled",
		logger.String("reason", s.ctrl.Reason()),
		logger.Int64("completed", r.Completed),
		logger.Int64("total", r.Total),
		logger.Int("open", len(r.Open)),
	)
	s.logLimiterStats()
	return r, fmt.Errorf("%w: %s", ErrScanCancelled, s.ctrl.Reason())
}
