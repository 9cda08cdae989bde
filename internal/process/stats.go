package process

import (
	"fmt"

	"github.com/shirou/gopsutil/process"
)

// Sample is a point-in-time resource reading for a child process.
type Sample struct {
	CPUPercent float64
	RSSBytes   uint64
}

// SampleProcess reads CPU and memory usage for the given pid. The reading is
// best-effort; the process can exit between the pid lookup and the reads.
func SampleProcess(pid int) (Sample, error) {
	if pid <= 0 {
		return Sample{}, fmt.Errorf("invalid pid %d", pid)
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return Sample{}, err
	}

	var s Sample
	if cpu, err := p.CPUPercent(); err == nil {
		s.CPUPercent = cpu
	}
	mi, err := p.MemoryInfo()
	if err != nil {
		return s, err
	}
	s.RSSBytes = mi.RSS
	return s, nil
}

func (s Sample) String() string {
	return fmt.Sprintf("CPU %.1f%% | RSS %.1f MB", s.CPUPercent, float64(s.RSSBytes)/(1024*1024))
}
