package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aspnmy/port_scanner/internal/models"
	"github.com/aspnmy/port_scanner/internal/services"
)

func sampleReport() *models.ScanReport {
	return &models.ScanReport{
		ScanID:    "scan_test",
		Target:    "10.0.0.1",
		Protocols: []string{"tcp", "udp"},
		Open: []models.OpenPort{
			{Port: 22, Protocol: "tcp"},
			{Port: 53, Protocol: "udp"},
			{Port: 40000, Protocol: "tcp"},
		},
		Completed: 3,
		Total:     3,
	}
}

var testLookup = services.LookupFunc(func(port int, _ string) string {
	switch port {
	case 22:
		return "ssh"
	case 53:
		return "domain"
	}
	return services.Unknown
})

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(Options{Lookup: testLookup})

	if err := f.Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	var content []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			content = append(content, l)
		}
	}
	if len(content) != 4 {
		t.Fatalf("got %d non-empty lines, want header + 3 rows:\n%s", len(content), buf.String())
	}

	header := strings.Fields(content[0])
	if strings.Join(header, " ") != "PORT PROTOCOL SERVICE" {
		t.Errorf("header = %q", content[0])
	}

	wantRows := [][]string{
		{"22", "tcp", "ssh"},
		{"53", "udp", "domain"},
		{"40000", "tcp", "unknown"},
	}
	protoCol := strings.Index(content[0], "PROTOCOL")
	for i, want := range wantRows {
		got := strings.Fields(content[i+1])
		if strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("row %d = %v, want %v", i, got, want)
		}
		if idx := strings.Index(content[i+1], want[1]); idx != protoCol {
			t.Errorf("row %d protocol column at %d, header at %d (not aligned)", i, idx, protoCol)
		}
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	report := &models.ScanReport{Target: "h", Cancelled: true, Completed: 4, Total: 10}

	if err := NewTableFormatter(Options{}).Render(&buf, report); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "No open ports found") {
		t.Errorf("missing empty notice: %q", out)
	}
	// the progress reporter owns the cancellation notice
	if strings.Contains(strings.ToLower(out), "cancelled") {
		t.Errorf("cancellation notice repeated in report: %q", out)
	}
}

func TestJSONLFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONLFormatter(Options{Lookup: testLookup}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	var rows []Row
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var r Row
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		rows = append(rows, r)
	}

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0] != (Row{Target: "10.0.0.1", Port: 22, Protocol: "tcp", Service: "ssh"}) {
		t.Errorf("rows[0] = %+v", rows[0])
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVFormatter(Options{Lookup: testLookup}).Render(&buf, sampleReport()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
	if strings.Join(records[2], ",") != "53,udp,domain" {
		t.Errorf("records[2] = %v", records[2])
	}
}

func TestGet(t *testing.T) {
	for _, name := range []string{"table", "jsonl", "csv"} {
		if _, err := Get(name, Options{}); err != nil {
			t.Errorf("Get(%q) error = %v", name, err)
		}
	}

	if _, err := Get("xml", Options{}); !errors.Is(err, ErrFormatterNotFound) {
		t.Errorf("Get(xml) error = %v, want ErrFormatterNotFound", err)
	}

	if got := strings.Join(Formats(), ","); got != "csv,jsonl,table" {
		t.Errorf("Formats() = %s", got)
	}
}

func TestRows_NilLookup(t *testing.T) {
	rows := Rows(sampleReport(), nil)
	for _, r := range rows {
		if r.Service != services.Unknown {
			t.Errorf("service = %q, want %q", r.Service, services.Unknown)
		}
	}
}

func TestBar(t *testing.T) {
	tests := []struct {
		name      string
		completed int64
		total     int64
		filled    int
	}{
		{"empty", 0, 10, 0},
		{"half", 5, 10, 50},
		{"full", 10, 10, 100},
		{"no tasks", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := Bar(models.Progress{Completed: tt.completed, Total: tt.total})
			if got := strings.Count(bar, "▓"); got != tt.filled {
				t.Errorf("filled = %d, want %d", got, tt.filled)
			}
			if got := strings.Count(bar, "▓") + strings.Count(bar, "░"); got != BarWidth {
				t.Errorf("cells = %d, want %d", got, BarWidth)
			}
		})
	}
}

func TestConsoleProgress(t *testing.T) {
	var buf bytes.Buffer
	clock := time.Unix(1000, 0)

	r := NewConsoleProgress(&buf, time.Second, false)
	r.now = func() time.Time { return clock }

	r.Start("example.com")
	if !strings.Contains(buf.String(), "Started scanning at 0.00s") {
		t.Errorf("missing start marker: %q", buf.String())
	}

	// throttled: same instant as start
	r.UpdateProgress(models.Progress{Completed: 1, Total: 4})
	if strings.Contains(buf.String(), "Progress:") {
		t.Error("progress printed before interval elapsed")
	}

	clock = clock.Add(2 * time.Second)
	r.UpdateProgress(models.Progress{Completed: 2, Total: 4})
	if !strings.Contains(buf.String(), "Progress: 2/4") {
		t.Errorf("missing progress line: %q", buf.String())
	}

	clock = clock.Add(500 * time.Millisecond)
	r.Finish(&models.ScanReport{Completed: 4, Total: 4})
	if !strings.Contains(buf.String(), "Finished scanning at 2.50s") {
		t.Errorf("missing finish marker: %q", buf.String())
	}
}

func TestConsoleProgress_Disabled(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleProgress(&buf, 0, false)

	r.Start("h")
	r.UpdateProgress(models.Progress{Completed: 1, Total: 1})
	r.Finish(&models.ScanReport{Cancelled: true, Completed: 1, Total: 2})

	out := buf.String()
	if strings.Contains(out, "Progress:") {
		t.Error("bar printed with zero interval")
	}
	if !strings.Contains(out, "Scan cancelled at") {
		t.Errorf("missing cancel marker: %q", out)
	}
}
