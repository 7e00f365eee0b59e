//go:build windows

package tunnel

import "os/exec"

func detachProcess(cmd *exec.Cmd) {
	// no process-group handling on windows, Kill takes the tree down via job semantics
}

func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

func killProcess(cmd *exec.Cmd) error {
	return terminateProcess(cmd)
}
