//go:build !linux

package process

import (
	gops "github.com/shirou/gopsutil/v4/process"
)

func lookupProcess(pid int) (*ProcInfo, bool) {
	proc, err := gops.NewProcess(int32(pid))
	if err != nil {
		return nil, false
	}

	name, err := proc.Name()
	if err != nil {
		return nil, false
	}

	info := &ProcInfo{PID: pid, Name: name}
	if cpu, cpuErr := proc.CPUPercent(); cpuErr == nil {
		info.CPUPercent = cpu
	}
	if mem, memErr := proc.MemoryInfo(); memErr == nil && mem != nil {
		info.MemoryBytes = mem.RSS
	}

	info.Summary = formatSummary(info.CPUPercent, info.MemoryBytes)
	return info, true
}
