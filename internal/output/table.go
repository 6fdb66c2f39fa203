// internal/output/table.go
// Column-aligned PORT | PROTOCOL | SERVICE table

package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aspnmy/port_scanner/internal/models"
)

// TableFormatter renders open ports as an aligned table
type TableFormatter struct {
	opts Options
}

// NewTableFormatter creates a table formatter
func NewTableFormatter(opts Options) *TableFormatter {
	return &TableFormatter{opts: opts}
}

// Render writes the table, or a short notice when nothing is open
func (f *TableFormatter) Render(w io.Writer, report *models.ScanReport) error {
	rows := Rows(report, f.opts.Lookup)

	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No open ports found")
		return err
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 4, 0, 0)
	cellStyle := lipgloss.NewStyle().Padding(0, 4, 0, 0)
	portStyle := cellStyle
	if f.opts.Color {
		headerStyle = headerStyle.Foreground(lipgloss.Color("#7D56F4"))
		portStyle = cellStyle.Foreground(lipgloss.Color("#04B575"))
	}

	data := make([][]string, len(rows))
	for i, r := range rows {
		data[i] = []string{strconv.Itoa(r.Port), r.Protocol, r.Service}
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Headers("PORT", "PROTOCOL", "SERVICE").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return portStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
