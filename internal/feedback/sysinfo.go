package feedback

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// SystemInfo is the header placed in front of every response.
type SystemInfo struct {
	AppVersion  string
	TotalMemory uint64
	OS          string
	Arch        string
	Release     string
}

func (s SystemInfo) String() string {
	memory := "unknown"
	if s.TotalMemory > 0 {
		memory = humanize.IBytes(s.TotalMemory)
	}
	return strings.Join([]string{
		"Version: " + s.AppVersion,
		"Memory: " + memory,
		fmt.Sprintf("System: %s %s (%s)", s.OS, s.Arch, s.Release),
	}, "\n")
}

// Host lookups, replaced in tests.
var (
	virtualMemory = mem.VirtualMemory
	kernelVersion = host.KernelVersion
)

// CurrentSystemInfo describes the machine the process runs on. Values the
// host does not report are left unknown.
func CurrentSystemInfo(appVersion string) SystemInfo {
	info := SystemInfo{
		AppVersion: appVersion,
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Release:    "unknown",
	}

	if vm, err := virtualMemory(); err != nil {
		log.Debug("failed to read total memory: %v", err)
	} else {
		info.TotalMemory = vm.Total
	}

	if release, err := kernelVersion(); err != nil {
		log.Debug("failed to read kernel version: %v", err)
	} else if release != "" {
		info.Release = release
	}
	return info
}
