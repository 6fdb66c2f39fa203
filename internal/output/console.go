// internal/output/console.go
// Console progress reporter with elapsed-time markers

package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/aspnmy/port_scanner/internal/models"
)

// BarWidth is the number of cells in the progress bar
const BarWidth = 100

// ConsoleProgress prints elapsed markers and a throttled progress bar
type ConsoleProgress struct {
	w        io.Writer
	interval time.Duration
	color    bool
	now      func() time.Time

	mu         sync.Mutex
	startTime  time.Time
	lastUpdate time.Time
	enabled    bool
}

// NewConsoleProgress creates a reporter writing to w. interval throttles
// bar output; a zero interval disables the bar but keeps the markers.
func NewConsoleProgress(w io.Writer, interval time.Duration, color bool) *ConsoleProgress {
	return &ConsoleProgress{
		w:        w,
		interval: interval,
		color:    color,
		now:      time.Now,
		enabled:  interval > 0,
	}
}

// Start prints the start marker
func (r *ConsoleProgress) Start(target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startTime = r.now()
	r.lastUpdate = r.startTime
	fmt.Fprintf(r.w, "Scanning %s\n", target)
	fmt.Fprintf(r.w, "Started scanning at %.2fs\n", 0.0)
}

// UpdateProgress draws the bar at most once per interval
func (r *ConsoleProgress) UpdateProgress(progress models.Progress) {
	if !r.enabled {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastUpdate) < r.interval {
		return
	}
	r.lastUpdate = now

	fmt.Fprintf(r.w, "\nProgress: %d/%d (%d open)\n", progress.Completed, progress.Total, progress.OpenPorts)
	fmt.Fprintln(r.w, r.bar(progress))
}

// Finish prints the end marker
func (r *ConsoleProgress) Finish(report *models.ScanReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := report.Elapsed
	if !r.startTime.IsZero() {
		elapsed = r.now().Sub(r.startTime)
	}
	if report.Cancelled {
		fmt.Fprintf(r.w, "Scan cancelled at %.2fs (%d/%d ports completed)\n",
			elapsed.Seconds(), report.Completed, report.Total)
	} else {
		fmt.Fprintf(r.w, "Finished scanning at %.2fs\n", elapsed.Seconds())
	}
	fmt.Fprintln(r.w)
}

// Bar renders a BarWidth-cell progress bar
func Bar(progress models.Progress) string {
	filled := int(progress.Percent() * BarWidth / 100)
	if filled < 0 {
		filled = 0
	}
	if filled > BarWidth {
		filled = BarWidth
	}
	return "▕" + strings.Repeat("▓", filled) + strings.Repeat("░", BarWidth-filled) + "▏"
}

func (r *ConsoleProgress) bar(progress models.Progress) string {
	b := Bar(progress)
	if !r.color {
		return b
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Render(b)
}
