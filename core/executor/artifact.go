package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/logger"
)

const DefaultImagePattern = "*.png"

// LatestImage returns the most recently written file in dir (not recursive)
// whose name matches pattern.
func LatestImage(dir, pattern string) (string, error) {
	if pattern == "" {
		pattern = DefaultImagePattern
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid image pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", derrors.Wrap(err, derrors.CodeNotFound, "cannot read output directory").WithContext(derrors.CtxPath, dir)
	}

	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !g.Match(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		return "", derrors.Newf(derrors.CodeNotFound, "no %s image produced", pattern).WithContext(derrors.CtxPath, dir)
	}
	logger.Debug("Newest image in %s: %s", dir, newest)
	return newest, nil
}
