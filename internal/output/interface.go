// internal/output/interface.go
// Report formatter interfaces

package output

import (
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/aspnmy/port_scanner/internal/models"
	"github.com/aspnmy/port_scanner/internal/services"
)

// Formatter renders a finished scan report
type Formatter interface {
	Render(w io.Writer, report *models.ScanReport) error
}

// ProgressReporter handles scan progress updates
type ProgressReporter interface {
	// Start marks the beginning of the scan
	Start(target string)

	// UpdateProgress is called periodically while the scan runs
	UpdateProgress(progress models.Progress)

	// Finish marks the end of the scan
	Finish(report *models.ScanReport)
}

// Options configures formatters
type Options struct {
	Lookup services.Lookup
	Color  bool
}

// Row is one line of a rendered report
type Row struct {
	Target   string `json:"target"`
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Service  string `json:"service"`
}

// Rows resolves service names for every open port in report order
func Rows(report *models.ScanReport, lookup services.Lookup) []Row {
	rows := make([]Row, 0, len(report.Open))
	for _, op := range report.Open {
		name := services.Unknown
		if lookup != nil {
			name = lookup.Name(op.Port, op.Protocol)
		}
		rows = append(rows, Row{
			Target:   report.Target,
			Port:     op.Port,
			Protocol: op.Protocol,
			Service:  name,
		})
	}
	return rows
}

// FormatterFactory creates formatters by name
type FormatterFactory func(opts Options) (Formatter, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]FormatterFactory)
)

// Register registers a formatter
func Register(name string, factory FormatterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get creates a formatter by name
func Get(name string, opts Options) (Formatter, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrFormatterNotFound
	}
	return factory(opts)
}

// Formats lists registered formatter names
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrFormatterNotFound is returned when formatter name is not registered
var ErrFormatterNotFound = errors.New("formatter not found")

func init() {
	Register("table", func(opts Options) (Formatter, error) {
		return NewTableFormatter(opts), nil
	})
	Register("jsonl", func(opts Options) (Formatter, error) {
		return NewJSONLFormatter(opts), nil
	})
	Register("csv", func(opts Options) (Formatter, error) {
		return NewCSVFormatter(opts), nil
	})
}
