// internal/probe/udp.go
// UDP request/response probe

package probe

import (
	"context"
	"net"
	"strconv"
	"time"
)

const UDPName = "udp"

// UDP returns a probe that sends payload and reports open only when some
// datagram comes back before timeout. Silence and ICMP port-unreachable
// (surfaced as ECONNREFUSED on connected sockets) both count as not open.
func UDP(timeout time.Duration, payload []byte) ProbeFunc {
	dialer := &net.Dialer{Timeout: timeout}

	return func(ctx context.Context, target string, port int) (bool, error) {
		conn, err := dialer.DialContext(ctx, "udp", net.JoinHostPort(target, strconv.Itoa(port)))
		if err != nil {
			return false, err
		}
		defer conn.Close()

		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return false, err
		}

		// unblock the read when the scan is cancelled or ctx expires
		stop := context.AfterFunc(ctx, func() {
			_ = conn.SetDeadline(time.Now())
		})
		defer stop()

		if _, err := conn.Write(payload); err != nil {
			return false, err
		}

		buf := make([]byte, 1024)
		if _, err := conn.Read(buf); err != nil {
			return false, err
		}
		return true, nil
	}
}
