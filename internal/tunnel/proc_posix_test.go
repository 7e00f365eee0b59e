//go:build !windows

package tunnel

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSleeper(t *testing.T) *processHandle {
	t.Helper()

	cmd := exec.Command("sleep", "60")
	detachProcess(cmd)
	require.NoError(t, cmd.Start())

	h := &processHandle{cmd: cmd, out: new(outputBuffer), done: make(chan struct{})}
	go h.reap()
	return h
}

func TestProcessHandleTerminate(t *testing.T) {
	h := startSleeper(t)

	require.NoError(t, h.Terminate())

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("process not reaped after Terminate")
	}
}

func TestProcessHandleTerminateTwice(t *testing.T) {
	h := startSleeper(t)

	assert.NoError(t, h.Terminate())
	assert.NoError(t, h.Terminate())
}

func TestProcessHandleTerminateExitedProcess(t *testing.T) {
	cmd := exec.Command("true")
	detachProcess(cmd)
	require.NoError(t, cmd.Start())

	h := &processHandle{cmd: cmd, out: new(outputBuffer), done: make(chan struct{})}
	go h.reap()
	<-h.done

	assert.NoError(t, h.Terminate())
}
