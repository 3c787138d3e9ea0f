package feedback

import (
	"errors"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v4/mem"
)

func TestSystemInfo_String(t *testing.T) {
	info := SystemInfo{AppVersion: "1.4.2", TotalMemory: 16 * 1024 * 1024 * 1024, OS: "linux", Arch: "amd64", Release: "6.1.0"}
	want := "Version: 1.4.2\nMemory: 16 GiB\nSystem: linux amd64 (6.1.0)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	info.TotalMemory = 0
	want = "Version: 1.4.2\nMemory: unknown\nSystem: linux amd64 (6.1.0)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func stubHost(t *testing.T, vm func() (*mem.VirtualMemoryStat, error), kernel func() (string, error)) {
	t.Helper()
	origVM, origKernel := virtualMemory, kernelVersion
	virtualMemory, kernelVersion = vm, kernel
	t.Cleanup(func() { virtualMemory, kernelVersion = origVM, origKernel })
}

func TestCurrentSystemInfo(t *testing.T) {
	stubHost(t,
		func() (*mem.VirtualMemoryStat, error) { return &mem.VirtualMemoryStat{Total: 2048 * 1024}, nil },
		func() (string, error) { return "6.8.0-generic", nil },
	)

	got := CurrentSystemInfo("1.0.0")
	want := SystemInfo{AppVersion: "1.0.0", TotalMemory: 2048 * 1024, OS: runtime.GOOS, Arch: runtime.GOARCH, Release: "6.8.0-generic"}
	if got != want {
		t.Errorf("CurrentSystemInfo() = %+v, want %+v", got, want)
	}
}

func TestCurrentSystemInfo_UnknownValues(t *testing.T) {
	stubHost(t,
		func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("not implemented yet") },
		func() (string, error) { return "", errors.New("not implemented yet") },
	)

	got := CurrentSystemInfo("1.0.0")
	if got.TotalMemory != 0 || got.Release != "unknown" {
		t.Errorf("CurrentSystemInfo() = %+v, want unknown memory and release", got)
	}
}
