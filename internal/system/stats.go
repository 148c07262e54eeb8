package system

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is the memory and CPU picture of the running process.
type Snapshot struct {
	Taken      time.Time
	RSS        uint64
	CPUPercent float64
	SysUsed    float64 // percent of system memory in use
	SysTotal   uint64
}

func TakeSnapshot() (Snapshot, error) {
	s := Snapshot{Taken: time.Now()}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return s, fmt.Errorf("virtual memory: %w", err)
	}
	s.SysUsed, s.SysTotal = vm.UsedPercent, vm.Total

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return s, fmt.Errorf("process: %w", err)
	}
	mi, err := proc.MemoryInfo()
	if err != nil {
		return s, fmt.Errorf("process memory: %w", err)
	}
	s.RSS = mi.RSS

	if cpu, err := proc.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}
	return s, nil
}

func (s Snapshot) String() string {
	return fmt.Sprintf("RSS %s | CPU %.1f%% | System memory %.1f%% of %s", FormatBytes(s.RSS), s.CPUPercent, s.SysUsed, FormatBytes(s.SysTotal))
}

func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
