package process

import "fmt"

// ProcInfo is a best-effort snapshot of an OS process.
type ProcInfo struct {
	PID         int     `json:"pid"`
	Name        string  `json:"name"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemoryBytes uint64  `json:"memory_bytes"`
	Summary     string  `json:"summary"`
}

// LookupProcess queries the OS process table for pid. It does not consult
// any supervisor state. The second result is false when the pid is unknown,
// which includes a process that exited between calls.
func LookupProcess(pid int) (*ProcInfo, bool) {
	if pid <= 0 {
		return nil, false
	}
	return lookupProcess(pid)
}

func formatSummary(cpuPercent float64, memoryBytes uint64) string {
	return fmt.Sprintf("CPU: %.1f%%, Memory: %.1fMB", cpuPercent, float64(memoryBytes)/1024/1024)
}
