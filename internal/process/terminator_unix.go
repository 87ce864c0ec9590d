//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// platformTerminator signals the whole process group. Children are started
// with Setpgid, so the group id equals the child's pid.
type platformTerminator struct{}

func (platformTerminator) TerminateGracefully(p *os.Process) error {
	return signalGroup(p, syscall.SIGTERM)
}

func (platformTerminator) ForceKill(p *os.Process) error {
	return signalGroup(p, syscall.SIGKILL)
}

func signalGroup(p *os.Process, sig syscall.Signal) error {
	if err := syscall.Kill(-p.Pid, sig); err == nil {
		return nil
	}
	// Group gone or not ours; fall back to the process itself
	if err := p.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// setProcAttr places the child in its own process group so a stop reaches
// anything it spawned.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
