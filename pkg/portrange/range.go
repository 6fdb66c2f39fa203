// pkg/portrange/range.go
// Inclusive port range parsing

package portrange

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// Range is an inclusive, contiguous range of ports
type Range struct {
	Start int
	End   int
}

// New validates and builds a range
func New(start, end int) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Full returns the range of every valid port
func Full() Range {
	return Range{Start: MinPort, End: MaxPort}
}

// Parse accepts "START-END", "START,END", "START END" or a single "PORT"
func Parse(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("empty port range")
	}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == ',' || r == ' ' || r == ':'
	})

	switch len(fields) {
	case 1:
		p, err := parsePort(fields[0])
		if err != nil {
			return Range{}, err
		}
		return New(p, p)
	case 2:
		start, err := parsePort(fields[0])
		if err != nil {
			return Range{}, err
		}
		end, err := parsePort(fields[1])
		if err != nil {
			return Range{}, err
		}
		return New(start, end)
	default:
		return Range{}, fmt.Errorf("invalid port range %q: expected START-END", s)
	}
}

func parsePort(s string) (int, error) {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: not an integer", s)
	}
	return p, nil
}

// Validate checks bounds and ordering
func (r Range) Validate() error {
	if r.Start < MinPort || r.Start > MaxPort {
		return fmt.Errorf("invalid start port %d (must be %d-%d)", r.Start, MinPort, MaxPort)
	}
	if r.End < MinPort || r.End > MaxPort {
		return fmt.Errorf("invalid end port %d (must be %d-%d)", r.End, MinPort, MaxPort)
	}
	if r.Start > r.End {
		return fmt.Errorf("empty port range %d-%d: start is greater than end", r.Start, r.End)
	}
	return nil
}

// Count returns the number of ports in the range
func (r Range) Count() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether port lies inside the range
func (r Range) Contains(port int) bool {
	return port >= r.Start && port <= r.End
}

// Ports expands the range into an ascending slice
func (r Range) Ports() []int {
	n := r.Count()
	if n == 0 {
		return nil
	}
	ports := make([]int, 0, n)
	for p := r.Start; p <= r.End; p++ {
		ports = append(ports, p)
	}
	return ports
}

// String formats the range the way Parse accepts it
func (r Range) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
