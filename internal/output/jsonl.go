// internal/output/jsonl.go
// JSON Lines output formatter

package output

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/aspnmy/port_scanner/internal/models"
)

// JSONLFormatter writes one JSON object per open port
type JSONLFormatter struct {
	opts Options
}

// NewJSONLFormatter creates a new JSONL formatter
func NewJSONLFormatter(opts Options) *JSONLFormatter {
	return &JSONLFormatter{opts: opts}
}

// Render writes all rows and flushes
func (f *JSONLFormatter) Render(w io.Writer, report *models.ScanReport) error {
	buffer := bufio.NewWriterSize(w, 64*1024)
	encoder := json.NewEncoder(buffer)

	for _, row := range Rows(report, f.opts.Lookup) {
		if err := encoder.Encode(row); err != nil {
			return err
		}
	}
	return buffer.Flush()
}
