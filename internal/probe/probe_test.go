package probe

import (
	"errors"
	"net"
	"testing"
	"time"
)

// dialScript fails n times before succeeding, counting every call.
type dialScript struct {
	failures int
	calls    int
}

func (d *dialScript) dial(network, addr string, timeout time.Duration) (net.Conn, error) {
	d.calls++
	if d.calls <= d.failures {
		return nil, errors.New("connect: connection refused")
	}
	c1, c2 := net.Pipe()
	go func() { _ = c2.Close() }()
	return c1, nil
}

func TestWaitNSucceedsAfterRetries(t *testing.T) {
	d := &dialScript{failures: 3}
	p := &Prober{Dial: d.dial}

	ok, attempts := p.WaitN(Check{Host: "127.0.0.1", Port: 9000, Attempts: 10, Interval: time.Millisecond})
	if !ok {
		t.Fatalf("expected readiness")
	}
	if attempts != 4 {
		t.Fatalf("expected success on attempt 4, got %d", attempts)
	}
	if d.calls != 4 {
		t.Fatalf("expected 4 dials, got %d", d.calls)
	}
}

func TestWaitNExhaustsExactBudget(t *testing.T) {
	d := &dialScript{failures: 1 << 30}
	p := &Prober{Dial: d.dial}

	ok, attempts := p.WaitN(Check{Host: "127.0.0.1", Port: 9000, Attempts: 7, Interval: time.Millisecond})
	if ok {
		t.Fatalf("expected timeout")
	}
	if attempts != 7 || d.calls != 7 {
		t.Fatalf("expected exactly 7 attempts, got attempts=%d calls=%d", attempts, d.calls)
	}
}

func TestWaitImmediateSuccessUsesOneAttempt(t *testing.T) {
	d := &dialScript{}
	p := &Prober{Dial: d.dial}

	if !p.Wait(Check{Host: "h", Port: 1, Attempts: 5, Interval: time.Millisecond}) {
		t.Fatalf("expected readiness")
	}
	if d.calls != 1 {
		t.Fatalf("expected a single dial, got %d", d.calls)
	}
}

func TestWaitRealListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	p := New()
	if !p.Wait(Check{Host: "127.0.0.1", Port: port, Attempts: 3, Interval: 50 * time.Millisecond}) {
		t.Fatalf("expected listener to be ready")
	}

	_ = ln.Close()
	if p.Wait(Check{Host: "127.0.0.1", Port: port, Attempts: 2, Interval: 10 * time.Millisecond}) {
		t.Fatalf("expected closed port to time out")
	}
}

func TestCheckAddr(t *testing.T) {
	c := Check{Host: "10.0.0.1", Port: 5672}
	if c.Addr() != "10.0.0.1:5672" {
		t.Fatalf("unexpected addr: %s", c.Addr())
	}
}

func TestReadinessErrorMessage(t *testing.T) {
	e := &ReadinessError{Name: "store", Addr: "127.0.0.1:9000", Attempts: 60}
	want := "service store did not become ready on 127.0.0.1:9000 after 60 attempts"
	if e.Error() != want {
		t.Fatalf("got %q want %q", e.Error(), want)
	}
}
