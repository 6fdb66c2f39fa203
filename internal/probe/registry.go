// internal/probe/registry.go
// Protocol name -> probe handler registry

package probe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ProbeFunc reports whether port on target answers for one protocol.
// Implementations must be safe for concurrent use. A non-nil error always
// means the pair is treated as not open.
type ProbeFunc func(ctx context.Context, target string, port int) (bool, error)

// Registry maps protocol names to probe handlers
type Registry struct {
	mu     sync.RWMutex
	probes map[string]ProbeFunc
}

// Options configures the built-in handlers
type Options struct {
	TCPTimeout time.Duration
	UDPTimeout time.Duration
	UDPPayload []byte
}

// DefaultOptions mirrors the classic connect-scan timings
func DefaultOptions() Options {
	return Options{
		TCPTimeout: 250 * time.Millisecond,
		UDPTimeout: 500 * time.Millisecond,
		UDPPayload: []byte("test"),
	}
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{probes: make(map[string]ProbeFunc)}
}

// NewDefaultRegistry creates a registry with tcp and udp pre-registered
func NewDefaultRegistry(opts Options) *Registry {
	def := DefaultOptions()
	if opts.TCPTimeout <= 0 {
		opts.TCPTimeout = def.TCPTimeout
	}
	if opts.UDPTimeout <= 0 {
		opts.UDPTimeout = def.UDPTimeout
	}
	if len(opts.UDPPayload) == 0 {
		opts.UDPPayload = def.UDPPayload
	}

	r := NewRegistry()
	r.MustRegister(TCPName, TCP(opts.TCPTimeout))
	r.MustRegister(UDPName, UDP(opts.UDPTimeout, opts.UDPPayload))
	return r
}

// Normalize returns the canonical (lower case, trimmed) protocol name
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces the handler for a protocol
func (r *Registry) Register(name string, fn ProbeFunc) error {
	name = Normalize(name)
	if name == "" {
		return &RegistryError{Message: "protocol name is empty"}
	}
	if fn == nil {
		return &RegistryError{Message: fmt.Sprintf("nil probe for protocol %q", name)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.probes[name] = fn
	return nil
}

// MustRegister is Register that panics on error
func (r *Registry) MustRegister(name string, fn ProbeFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Lookup returns the handler for a protocol
func (r *Registry) Lookup(name string) (ProbeFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.probes[Normalize(name)]
	return fn, ok
}

// Has reports whether a handler exists for name
func (r *Registry) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Names returns the registered protocols, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.probes))
	for name := range r.probes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrProbeNotFound is returned when a protocol has no registered handler
var ErrProbeNotFound = &RegistryError{Message: "probe not found"}

// RegistryError represents a registry-specific error
type RegistryError struct {
	Message string
	Cause   error
}

func (e *RegistryError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RegistryError) Unwrap() error {
	return e.Cause
}
