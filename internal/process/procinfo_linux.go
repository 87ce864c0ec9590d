//go:build linux

package process

import (
	"time"

	"github.com/prometheus/procfs"
)

func lookupProcess(pid int) (*ProcInfo, bool) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, false
	}

	proc, err := fs.Proc(pid)
	if err != nil {
		return nil, false
	}

	stat, err := proc.Stat()
	if err != nil {
		return nil, false
	}

	name := stat.Comm
	if comm, commErr := proc.Comm(); commErr == nil && comm != "" {
		name = comm
	}

	info := &ProcInfo{
		PID:         pid,
		Name:        name,
		MemoryBytes: uint64(stat.ResidentMemory()),
	}

	// Average CPU usage over the process lifetime
	if startSecs, startErr := stat.StartTime(); startErr == nil {
		started := time.Unix(0, int64(startSecs*float64(time.Second)))
		if elapsed := time.Since(started).Seconds(); elapsed > 0 {
			info.CPUPercent = stat.CPUTime() / elapsed * 100
		}
	}

	info.Summary = formatSummary(info.CPUPercent, info.MemoryBytes)
	return info, true
}
