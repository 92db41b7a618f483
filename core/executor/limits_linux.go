//go:build linux

package executor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func applyLimits(pid int, limits Limits) error {
	if limits.MaxMemoryBytes > 0 {
		rl := &unix.Rlimit{Cur: limits.MaxMemoryBytes, Max: limits.MaxMemoryBytes}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, rl, nil); err != nil {
			return fmt.Errorf("address space limit: %w", err)
		}
	}
	if limits.MaxCPUSeconds > 0 {
		rl := &unix.Rlimit{Cur: limits.MaxCPUSeconds, Max: limits.MaxCPUSeconds}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, rl, nil); err != nil {
			return fmt.Errorf("cpu limit: %w", err)
		}
	}
	return nil
}
