// internal/probe/tcp.go
// TCP connect probe

package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

const TCPName = "tcp"

// TCP returns a probe that reports open when a full TCP handshake
// completes within timeout
func TCP(timeout time.Duration) ProbeFunc {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: -1, // Disable keep-alive for scanning
	}

	return func(ctx context.Context, target string, port int) (bool, error) {
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(target, strconv.Itoa(port)))
		if err != nil {
			return false, err
		}
		_ = conn.Close()
		return true, nil
	}
}
