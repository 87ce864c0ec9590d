package process

import "os"

// Terminator ends a child process. Implementations are chosen per platform.
type Terminator interface {
	// TerminateGracefully asks the process to exit cleanly.
	TerminateGracefully(p *os.Process) error

	// ForceKill kills the process immediately.
	ForceKill(p *os.Process) error
}

// DefaultTerminator returns the terminator for the current platform.
func DefaultTerminator() Terminator {
	return platformTerminator{}
}
