//go:build windows

package process

import (
	"errors"
	"os"
	"os/exec"
)

// platformTerminator has no graceful signal to send on windows, so both
// operations kill the process.
type platformTerminator struct{}

func (platformTerminator) TerminateGracefully(p *os.Process) error {
	return kill(p)
}

func (platformTerminator) ForceKill(p *os.Process) error {
	return kill(p)
}

func kill(p *os.Process) error {
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func setProcAttr(_ *exec.Cmd) {}
