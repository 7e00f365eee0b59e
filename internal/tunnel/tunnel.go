// Package tunnel owns the life of a single SSM port forwarding session:
// local port allocation, background launch, readiness polling, foreground
// handoff and teardown.  One session is active at a time; the caller never
// starts a second forwarding operation before the prior one is terminated.
package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Request describes the remote end of a forwarding session.  RemoteHost is
// empty for direct forwarding to a port on the instance itself, and set for
// relay forwarding through the instance to another reachable endpoint
// (a load balancer, a database, ...).
type Request struct {
	Target     string
	RemoteHost string
	RemotePort int
}

// Relay reports whether the request forwards to a separate host through the
// instance rather than to the instance itself.
func (r Request) Relay() bool {
	return r.RemoteHost != ""
}

func (r Request) String() string {
	if r.Relay() {
		return fmt.Sprintf("%s:%d via %s", r.RemoteHost, r.RemotePort, r.Target)
	}
	return fmt.Sprintf("%s:%d", r.Target, r.RemotePort)
}

// State tracks a session through its lifecycle.
type State int

const (
	StatePending State = iota
	StateReady
	StateTerminated
)

// Handle is the manager's ownership of a running background forwarding
// operation.  Terminate must be idempotent and must reap any helper
// subprocesses the operation spawned.  Output returns diagnostics collected
// from the operation so far.
type Handle interface {
	Terminate() error
	Output() string
}

// Launcher starts the forwarding channel for a request as a detached
// background operation listening on localPort.  It must not block waiting for
// the listener to come up; failures that only show up asynchronously are
// detected by the manager's readiness probing.
type Launcher interface {
	Launch(ctx context.Context, req Request, localPort int) (Handle, error)
}

// Manager establishes forwarding sessions.  The zero tunables are filled in
// by NewManager; tests override them for speed.
type Manager struct {
	ProbeTimeout time.Duration // single connect attempt budget
	PollInterval time.Duration // delay between readiness probes
	ReadyTimeout time.Duration // overall readiness deadline
	PortAttempts int           // AllocatePort retry budget

	launcher Launcher
	log      *zap.Logger
}

func NewManager(l Launcher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		ProbeTimeout: 200 * time.Millisecond,
		PollInterval: time.Second,
		ReadyTimeout: time.Minute,
		PortAttempts: 100,
		launcher:     l,
		log:          logger,
	}
}

// Session is a scoped resource: every Open that succeeds must be balanced by
// Terminate, which Run guarantees on all of its exit paths.
type Session struct {
	Request   Request
	LocalPort int

	handle Handle
	log    *zap.Logger

	mu    sync.Mutex
	state State
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open allocates a local port, launches the background forwarding operation
// and blocks until the local listener accepts connections.  On readiness
// timeout the partially-started operation is terminated before the error is
// returned, so the caller never inherits a handle to clean up.
func (m *Manager) Open(ctx context.Context, req Request) (*Session, error) {
	port, err := m.AllocatePort()
	if err != nil {
		return nil, err
	}
	m.log.Debug("allocated local port", zap.Int("port", port), zap.String("request", req.String()))

	handle, err := m.launcher.Launch(ctx, req, port)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Request:   req,
		LocalPort: port,
		handle:    handle,
		log:       m.log,
		state:     StatePending,
	}

	if err = m.waitUntilReady(ctx, sess); err != nil {
		sess.Terminate()
		return nil, err
	}

	sess.mu.Lock()
	sess.state = StateReady
	sess.mu.Unlock()
	m.log.Info("tunnel ready", zap.Int("port", port), zap.String("request", req.String()))
	return sess, nil
}

// waitUntilReady probes the local port until it accepts a connection.  The
// forwarding operation surfaces launch problems asynchronously, so a bounded
// deadline is essential here: without it a bad IAM policy leaves the operator
// waiting forever.
func (m *Manager) waitUntilReady(ctx context.Context, sess *Session) error {
	deadline, cancel := context.WithTimeout(ctx, m.ReadyTimeout)
	defer cancel()

	start := time.Now()
	probe := func() error {
		if probePort(sess.LocalPort, m.ProbeTimeout) {
			return nil
		}
		m.log.Debug("waiting for tunnel", zap.Int("port", sess.LocalPort))
		return fmt.Errorf("port %d not accepting connections", sess.LocalPort)
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(m.PollInterval), deadline)
	if err := backoff.Retry(probe, bo); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TimeoutError{
			Port:    sess.LocalPort,
			Elapsed: time.Since(start),
			Output:  sess.handle.Output(),
		}
	}
	return nil
}

// Consumer is the foreground activity a ready session is handed to.  With a
// Command set, the command is run interactively against the tunnel; with no
// Command the session is held open until the operator presses enter.
type Consumer struct {
	Command []string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

func (c Consumer) stdin() io.Reader {
	if c.Stdin == nil {
		return os.Stdin
	}
	return c.Stdin
}

func (c Consumer) stdout() io.Writer {
	if c.Stdout == nil {
		return os.Stdout
	}
	return c.Stdout
}

func (c Consumer) stderr() io.Writer {
	if c.Stderr == nil {
		return os.Stderr
	}
	return c.Stderr
}

// Run hands the ready session to the foreground consumer and terminates the
// background forwarding operation when the consumer finishes, no matter how
// it finishes.  Cancelling ctx (the cmd layer wires it to SIGINT) tears the
// tunnel down as well.
func (s *Session) Run(ctx context.Context, c Consumer) error {
	defer s.Terminate()

	if len(c.Command) == 0 {
		return s.waitForAck(ctx, c)
	}

	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Stdin = c.stdin()
	cmd.Stdout = c.stdout()
	cmd.Stderr = c.stderr()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s exited: %w", c.Command[0], err)
	}
	return nil
}

// readDeadliner is satisfied by *os.File and net.Conn; it lets waitForAck
// unblock its pending read on cancellation instead of leaking a goroutine
// that would steal input from the next prompt.
type readDeadliner interface {
	SetReadDeadline(time.Time) error
}

func (s *Session) waitForAck(ctx context.Context, c Consumer) error {
	fmt.Fprintf(c.stdout(), "Forwarding localhost:%d -> %s. Press enter to close the tunnel.\n", s.LocalPort, s.Request)

	in := c.stdin()
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrDeadlineExceeded) {
			err = nil
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if d, ok := in.(readDeadliner); ok {
			if d.SetReadDeadline(time.Now()) == nil {
				<-done
				_ = d.SetReadDeadline(time.Time{})
			}
		}
		return ctx.Err()
	}
}

// Terminate tears down the background forwarding operation.  It is safe to
// call any number of times, and failures are logged rather than returned:
// by the time we are terminating, the process having already exited is not a
// problem worth surfacing.
func (s *Session) Terminate() {
	s.mu.Lock()
	if s.state == StateTerminated {
		s.mu.Unlock()
		return
	}
	s.state = StateTerminated
	s.mu.Unlock()

	if err := s.handle.Terminate(); err != nil {
		s.log.Warn("tunnel termination", zap.Int("port", s.LocalPort), zap.Error(err))
	} else {
		s.log.Debug("tunnel terminated", zap.Int("port", s.LocalPort))
	}
}
