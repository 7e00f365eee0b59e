package tunnel

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPortExhausted is returned by AllocatePort when no free local port was
// found within the attempt budget.
var ErrPortExhausted = errors.New("no free local port found")

// LaunchError indicates the forwarding channel could not be established.
// It wraps the underlying API or process error and carries any output the
// forwarding process produced before failing.
type LaunchError struct {
	Target string
	Output string
	Err    error
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("launch forwarding to %s: %v", e.Target, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg = msg + "\n" + out
	}
	return msg
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates the local listener never became ready within the
// readiness deadline.  Output holds whatever diagnostics the background
// forwarding operation emitted, which is usually the only clue to why the
// session failed to establish (bad IAM policy, agent not connected, etc).
type TimeoutError struct {
	Port    int
	Elapsed time.Duration
	Output  string
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("tunnel on local port %d not ready after %s", e.Port, e.Elapsed.Round(time.Second))
	if out := strings.TrimSpace(e.Output); out != "" {
		msg = msg + "\n" + out
	}
	return msg
}
