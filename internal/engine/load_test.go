package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/aspnmy/port_scanner/internal/interrupt"
	"github.com/aspnmy/port_scanner/internal/models"
	"github.com/aspnmy/port_scanner/internal/probe"
)

// TestLoad_FullPortRange runs every valid port through an in-memory probe
func TestLoad_FullPortRange(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	for _, workers := range []int{1, 100, 1000} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			testLoad(t, workers)
		})
	}
}

func testLoad(t *testing.T, workers int) {
	e := New(Options{Registry: mockRegistry(t, map[string]probe.ProbeFunc{
		"tcp": openOn(22, 80, 443),
		"udp": openOn(53),
	})})

	cfg := models.ScanConfig{
		Target:    "127.0.0.1",
		Ports:     portsRange(1, 65535),
		Protocols: []string{"tcp", "udp"},
		Workers:   workers,
	}

	var m1 runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m1)

	start := time.Now()
	report, err := e.Run(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	duration := time.Since(start)

	var m2 runtime.MemStats
	runtime.ReadMemStats(&m2)

	t.Logf("Load Test Results (%d workers):", workers)
	t.Logf("  Completed: %d/%d", report.Completed, report.Total)
	t.Logf("  Duration: %v", duration)
	t.Logf("  Rate: %.2f ports/sec", float64(report.Completed)/duration.Seconds())
	t.Logf("  Allocated: %d KB", (m2.TotalAlloc-m1.TotalAlloc)/1024)

	if report.Completed != 65535 || report.Total != 65535 {
		t.Errorf("completed %d/%d, want 65535/65535", report.Completed, report.Total)
	}
	if len(report.Open) != 4 {
		t.Errorf("open = %v, want 4 entries", report.Open)
	}
}

// TestLoad_GracefulShutdown cancels a large slow scan and checks that Run
// returns promptly with a consistent partial report
func TestLoad_GracefulShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	slow := func(ctx context.Context, _ string, port int) (bool, error) {
		select {
		case <-time.After(5 * time.Millisecond):
			return port%100 == 0, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	e := New(Options{
		Registry:     mockRegistry(t, map[string]probe.ProbeFunc{"tcp": slow}),
		PollInterval: 10 * time.Millisecond,
	})

	ctrl := interrupt.New()
	go func() {
		time.Sleep(300 * time.Millisecond)
		ctrl.Request("load test")
	}()

	start := time.Now()
	report, err := e.Run(context.Background(), models.ScanConfig{
		Target:    "h",
		Ports:     portsRange(1, 65535),
		Protocols: []string{"tcp"},
		Workers:   100,
	}, ctrl)
	duration := time.Since(start)

	if !errors.Is(err, ErrScanCancelled) {
		t.Fatalf("Run() error = %v, want ErrScanCancelled", err)
	}

	t.Logf("Graceful shutdown test:")
	t.Logf("  Completed before cancel: %d", report.Completed)
	t.Logf("  Shutdown duration: %v", duration)

	if report.Completed == 0 || report.Completed == report.Total {
		t.Errorf("completed = %d, want partial progress", report.Completed)
	}
	for _, op := range report.Open {
		if op.Port%100 != 0 {
			t.Errorf("unexpected open port %v", op)
		}
	}
	if duration > 5*time.Second {
		t.Errorf("Shutdown took too long: %v", duration)
	}
}

// TestLoad_ConcurrentScans shares one engine between several scans
func TestLoad_ConcurrentScans(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping load test in short mode")
	}

	e := New(Options{Registry: mockRegistry(t, map[string]probe.ProbeFunc{"tcp": openOn(7, 700)})})

	const numScans = 5
	var wg sync.WaitGroup
	for i := 0; i < numScans; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			report, err := e.Run(context.Background(), models.ScanConfig{
				Target:    fmt.Sprintf("host-%d", id),
				Ports:     portsRange(1, 1000),
				Protocols: []string{"tcp"},
				Workers:   50,
			}, nil)
			if err != nil {
				t.Errorf("scan %d: Run() error = %v", id, err)
				return
			}
			if report.Completed != 1000 || len(report.Open) != 2 {
				t.Errorf("scan %d: completed=%d open=%v", id, report.Completed, report.Open)
			}
		}(i)
	}
	wg.Wait()
}

// BenchmarkRun_LoopbackClosed connects to closed loopback ports
func BenchmarkRun_LoopbackClosed(b *testing.B) {
	e := New(Options{Registry: mockRegistry(b, map[string]probe.ProbeFunc{
		probe.TCPName: probe.TCP(time.Second),
	})})

	cfg := models.ScanConfig{
		Target:    "127.0.0.1",
		Ports:     portsRange(60000, 60099),
		Protocols: []string{probe.TCPName},
		Workers:   100,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Run(context.Background(), cfg, nil); err != nil {
			b.Fatalf("Run() error = %v", err)
		}
	}
}

// BenchmarkRun_InMemory measures engine overhead without network I/O
func BenchmarkRun_InMemory(b *testing.B) {
	e := New(Options{Registry: mockRegistry(b, map[string]probe.ProbeFunc{"tcp": openOn(80)})})

	cfg := models.ScanConfig{
		Target:    "h",
		Ports:     portsRange(1, 10000),
		Protocols: []string{"tcp"},
		Workers:   100,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Run(context.Background(), cfg, nil); err != nil {
			b.Fatalf("Run() error = %v", err)
		}
	}
}
