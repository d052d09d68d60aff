package kernels

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/cpu"
)

// SystemInfoString reports the CPU features this process can use for the
// numeric kernels, in the same "FLAG = 0/1" style the reference
// implementation prints at startup.
func SystemInfoString() string {
	switch runtime.GOARCH {
	case "amd64":
		return fmt.Sprintf(
			"AVX = %d | AVX2 = %d | FMA = %d | SSE3 = %d | ARCH = %s",
			boolToInt(cpu.X86.HasAVX),
			boolToInt(cpu.X86.HasAVX2),
			boolToInt(cpu.X86.HasFMA),
			boolToInt(cpu.X86.HasSSE3),
			runtime.GOARCH,
		)
	case "arm64":
		return fmt.Sprintf(
			"NEON = %d | FP16 = %d | ARCH = %s",
			boolToInt(cpu.ARM64.HasASIMD),
			boolToInt(cpu.ARM64.HasFPHP),
			runtime.GOARCH,
		)
	default:
		return fmt.Sprintf("ARCH = %s", runtime.GOARCH)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
