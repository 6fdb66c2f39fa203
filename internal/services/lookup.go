// internal/services/lookup.go
// Port -> service name resolution

package services

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/aspnmy/port_scanner/pkg/logger"
)

// Unknown is returned when no service is known for a port
const Unknown = "unknown"

// DefaultFile is the system services database on Unix systems
const DefaultFile = "/etc/services"

// Lookup resolves a service name. Implementations never fail; anything
// unresolvable maps to Unknown.
type Lookup interface {
	Name(port int, protocol string) string
}

// LookupFunc adapts a function to Lookup
type LookupFunc func(port int, protocol string) string

// Name calls f
func (f LookupFunc) Name(port int, protocol string) string {
	return f(port, protocol)
}

// wellKnown is used when the services file is missing or has no entry
var wellKnown = map[int]string{
	20:    "ftp-data",
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "domain",
	67:    "bootps",
	68:    "bootpc",
	69:    "tftp",
	80:    "http",
	88:    "kerberos",
	110:   "pop3",
	111:   "sunrpc",
	119:   "nntp",
	123:   "ntp",
	135:   "epmap",
	137:   "netbios-ns",
	138:   "netbios-dgm",
	139:   "netbios-ssn",
	143:   "imap",
	161:   "snmp",
	162:   "snmptrap",
	179:   "bgp",
	389:   "ldap",
	443:   "https",
	445:   "microsoft-ds",
	465:   "submissions",
	500:   "isakmp",
	514:   "syslog",
	515:   "printer",
	587:   "submission",
	631:   "ipp",
	636:   "ldaps",
	873:   "rsync",
	993:   "imaps",
	995:   "pop3s",
	1194:  "openvpn",
	1433:  "ms-sql-s",
	1521:  "oracle",
	1883:  "mqtt",
	2049:  "nfs",
	2375:  "docker",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5060:  "sip",
	5353:  "mdns",
	5432:  "postgresql",
	5672:  "amqp",
	5900:  "vnc",
	6379:  "redis",
	6443:  "sun-sr-https",
	8080:  "http-alt",
	8443:  "https-alt",
	9092:  "kafka",
	9200:  "elasticsearch",
	11211: "memcache",
	11434: "ollama",
	27017: "mongodb",
}

type key struct {
	port     int
	protocol string
}

// Table is a Lookup backed by a services(5) file and a built-in list
type Table struct {
	mu      sync.RWMutex
	entries map[key]string
}

// New loads path (services(5) format) on top of the built-in list. A
// missing or unreadable file is logged and ignored.
func New(path string) *Table {
	t := &Table{entries: make(map[key]string)}
	if path == "" {
		return t
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Debug("Services file unavailable, using built-in names",
			logger.String("file", path), logger.Err(err))
		return t
	}
	defer f.Close()

	if err := t.Load(f); err != nil {
		logger.Warn("Failed to parse services file",
			logger.String("file", path), logger.Err(err))
	}
	logger.Debug("Services file loaded",
		logger.String("file", path), logger.Int("entries", t.Len()))
	return t
}

// Load merges services(5) formatted entries from r. Lines look like
// "ssh 22/tcp # comment"; malformed lines are skipped.
func (t *Table) Load(r io.Reader) error {
	entries := make(map[key]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		portProto := strings.SplitN(fields[1], "/", 2)
		if len(portProto) != 2 {
			continue
		}
		port, err := strconv.Atoi(portProto[0])
		if err != nil || port < 1 || port > 65535 {
			continue
		}

		k := key{port: port, protocol: strings.ToLower(portProto[1])}
		// first name wins, as with getservbyport
		if _, exists := entries[k]; !exists {
			entries[k] = fields[0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read services: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range entries {
		if _, exists := t.entries[k]; !exists {
			t.entries[k] = v
		}
	}
	return nil
}

// Name returns the service for (port, protocol), falling back to the
// tcp entry, then the built-in list, then Unknown
func (t *Table) Name(port int, protocol string) (name string) {
	defer func() {
		if recover() != nil {
			name = Unknown
		}
	}()

	protocol = strings.ToLower(protocol)

	t.mu.RLock()
	n, ok := t.entries[key{port, protocol}]
	if !ok {
		n, ok = t.entries[key{port, "tcp"}]
	}
	t.mu.RUnlock()
	if ok {
		return n
	}

	if n, ok := wellKnown[port]; ok {
		return n
	}
	return Unknown
}

// Len returns the number of entries loaded from services files
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
