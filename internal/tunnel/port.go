package tunnel

import (
	"math/rand"
	"net"
	"strconv"
	"time"
)

const (
	portRangeLow  = 1025
	portRangeHigh = 65535
)

// AllocatePort picks a random local port above 1024 and verifies nothing is
// listening on it.  A connect attempt that succeeds means the port is taken;
// connection refused (or any other dial error) means it is free.  The port is
// not reserved, so the caller must hand it to the forwarding launcher promptly
// to keep the window for another process to grab it small.
func (m *Manager) AllocatePort() (int, error) {
	for i := 0; i < m.PortAttempts; i++ {
		port := portRangeLow + rand.Intn(portRangeHigh-portRangeLow+1) //nolint:gosec // not security sensitive
		if !probePort(port, m.ProbeTimeout) {
			return port, nil
		}
	}
	return 0, ErrPortExhausted
}

// probePort reports whether something is accepting connections on the local port.
func probePort(port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
