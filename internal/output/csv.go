// internal/output/csv.go
// CSV output formatter

package output

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/aspnmy/port_scanner/internal/models"
)

// CSVFormatter writes a header and one record per open port
type CSVFormatter struct {
	opts Options
}

// NewCSVFormatter creates a CSV formatter
func NewCSVFormatter(opts Options) *CSVFormatter {
	return &CSVFormatter{opts: opts}
}

// Render writes the CSV document
func (f *CSVFormatter) Render(w io.Writer, report *models.ScanReport) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"port", "protocol", "service"}); err != nil {
		return err
	}
	for _, r := range Rows(report, f.opts.Lookup) {
		if err := writer.Write([]string{strconv.Itoa(r.Port), r.Protocol, r.Service}); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
