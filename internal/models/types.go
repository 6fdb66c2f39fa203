// internal/models/types.go
// Core data models for the port scanner

package models

import (
	"sort"
	"time"
)

// ScanConfig is the validated, read-only input of one scan
type ScanConfig struct {
	Target    string   `json:"target"`
	Ports     []int    `json:"ports"`     // ascending, 1..65535
	Protocols []string `json:"protocols"` // distinct, probe order
	Workers   int      `json:"workers"`
}

// TotalTasks returns the number of tasks a scan of this config schedules
func (c ScanConfig) TotalTasks() int64 {
	return int64(len(c.Ports))
}

// ScanTask is one unit of work: every configured protocol for one port
type ScanTask struct {
	Port      int
	Protocols []string
}

// ProbeResult is the outcome of probing one (port, protocol) pair
type ProbeResult struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
	Open     bool   `json:"open"`
	Error    string `json:"error,omitempty"`
}

// OpenPort is a (port, protocol) pair confirmed open by a probe
type OpenPort struct {
	Port     int    `json:"port"`
	Protocol string `json:"protocol"`
}

// Less orders open ports by port, then protocol
func (p OpenPort) Less(o OpenPort) bool {
	if p.Port != o.Port {
		return p.Port < o.Port
	}
	return p.Protocol < o.Protocol
}

// SortOpenPorts sorts in place by port ascending, then protocol
func SortOpenPorts(ports []OpenPort) {
	sort.Slice(ports, func(i, j int) bool {
		return ports[i].Less(ports[j])
	})
}

// Progress represents scan progress
type Progress struct {
	ScanID    string        `json:"scan_id"`
	Completed int64         `json:"completed"`
	Total     int64         `json:"total"`
	OpenPorts int           `json:"open_ports"`
	StartTime time.Time     `json:"start_time"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Percent returns completion in the range [0, 100]
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Completed) * 100 / float64(p.Total)
}

// ScanReport is the final outcome of a scan
type ScanReport struct {
	ScanID    string        `json:"scan_id"`
	Target    string        `json:"target"`
	Protocols []string      `json:"protocols"`
	Open      []OpenPort    `json:"open"` // sorted
	Completed int64         `json:"completed"`
	Total     int64         `json:"total"`
	Cancelled bool          `json:"cancelled"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}
