//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
	"time"
)

// configureDetached places the child in its own process group so the whole
// group can be signalled at teardown, reaping the backend's own
// subprocesses along with it.
func configureDetached(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessTree signals the child's process group: SIGTERM first, then
// SIGKILL after a short grace period if the group leader is still alive.
func killProcessTree(p *os.Process) error {
	pgid, err := syscall.Getpgid(p.Pid)
	if err != nil {
		// Group lookup failed; fall back to the direct child.
		return p.Kill()
	}

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		return err
	}

	// Grace period before escalating.
	for i := 0; i < 10; i++ {
		time.Sleep(100 * time.Millisecond)
		if syscall.Kill(-pgid, syscall.Signal(0)) != nil {
			return nil // group is gone
		}
	}

	return syscall.Kill(-pgid, syscall.SIGKILL)
}
