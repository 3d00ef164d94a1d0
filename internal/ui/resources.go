package ui

import (
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceStats is what the status bar shows: the machine as a whole and the
// job running in the bottom session.
type ResourceStats struct {
	CPUPercent float64
	MemPercent float64
	CPUTemp    float64 // in Celsius, -1 if unavailable
	Job        JobStats
}

// JobStats describes one running job and its descendants. Pid is zero when
// nothing is running.
type JobStats struct {
	Pid        int32
	CPUPercent float64
	RSS        uint64
	Children   int
}

// GetResourceStats samples system load and, when pid is positive, the job
// rooted at pid.
func GetResourceStats(pid int) ResourceStats {
	stats := ResourceStats{CPUTemp: -1}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.MemPercent = vm.UsedPercent
	}
	stats.CPUTemp = getCPUTemperature()

	if pid > 0 {
		stats.Job = getJobStats(int32(pid))
	}
	return stats
}

func getJobStats(pid int32) JobStats {
	p, err := process.NewProcess(pid)
	if err != nil {
		return JobStats{}
	}
	js := JobStats{Pid: pid}
	if pct, err := p.CPUPercent(); err == nil {
		js.CPUPercent = pct
	}
	if mi, err := p.MemoryInfo(); err == nil && mi != nil {
		js.RSS = mi.RSS
	}

	// The session shell is usually the parent of the program, so count the
	// whole tree.
	children, _ := p.Children()
	for len(children) > 0 {
		c := children[0]
		children = children[1:]
		js.Children++
		if mi, err := c.MemoryInfo(); err == nil && mi != nil {
			js.RSS += mi.RSS
		}
		if pct, err := c.CPUPercent(); err == nil {
			js.CPUPercent += pct
		}
		if grand, err := c.Children(); err == nil {
			children = append(children, grand...)
		}
	}
	return js
}

// getCPUTemperature attempts to get CPU temperature
// This is platform-specific and may not work on all systems
func getCPUTemperature() float64 {
	temps, err := host.SensorsTemperatures()
	if err != nil {
		return -1
	}

	for _, temp := range temps {
		key := strings.ToLower(temp.SensorKey)
		if strings.Contains(key, "cpu") || strings.Contains(key, "coretemp") || strings.Contains(key, "k10temp") {
			if temp.Temperature > 0 {
				return temp.Temperature
			}
		}
	}

	// Apple Silicon reports no CPU-named sensor; any sane reading will do.
	if runtime.GOOS == "darwin" {
		for _, temp := range temps {
			if temp.Temperature > 0 && temp.Temperature < 120 {
				return temp.Temperature
			}
		}
	}
	return -1
}

// FormatBytes formats bytes into a human-readable string
func FormatBytes(b uint64) string {
	return humanize.IBytes(b)
}
