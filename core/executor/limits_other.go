//go:build !linux

package executor

import "github.com/tristendillon/diagify/core/logger"

func applyLimits(pid int, limits Limits) error {
	if limits.MaxMemoryBytes > 0 || limits.MaxCPUSeconds > 0 {
		logger.Debug("Resource limits are only enforced on linux")
	}
	return nil
}
