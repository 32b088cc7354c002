package probe

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Check describes one bounded readiness poll against a TCP endpoint.
// It is stateless and never retained beyond a single Wait call.
type Check struct {
	Host     string
	Port     int
	Attempts int
	Interval time.Duration
}

// Addr returns the host:port form of the check target.
func (c Check) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DialFunc matches net.DialTimeout and can be swapped in tests.
type DialFunc func(network, address string, timeout time.Duration) (net.Conn, error)

// Prober performs readiness checks. The zero value dials real TCP.
type Prober struct {
	Dial DialFunc
}

func New() *Prober { return &Prober{Dial: net.DialTimeout} }

// Wait polls the endpoint until it accepts a connection or the attempt
// budget is exhausted. A refused or timed-out connect is the expected
// not-ready signal, not an error; readiness requires an OS-level
// established connection. Returns false only after Attempts failures.
func (p *Prober) Wait(c Check) bool {
	ok, _ := p.WaitN(c)
	return ok
}

// WaitN is Wait plus the number of attempts consumed.
func (p *Prober) WaitN(c Check) (bool, int) {
	dial := p.Dial
	if dial == nil {
		dial = net.DialTimeout
	}
	addr := c.Addr()
	for i := 0; i < c.Attempts; i++ {
		conn, err := dial("tcp", addr, c.Interval)
		if err == nil {
			_ = conn.Close()
			return true, i + 1
		}
		time.Sleep(c.Interval)
	}
	return false, c.Attempts
}

// ReadinessError reports a service that never accepted a connection within
// its probe budget. Fatal for the whole bring-up.
type ReadinessError struct {
	Name     string
	Addr     string
	Attempts int
}

func (e *ReadinessError) Error() string {
	return fmt.Sprintf("service %s did not become ready on %s after %d attempts", e.Name, e.Addr, e.Attempts)
}
