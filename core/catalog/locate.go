package catalog

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/logger"
)

const locateScript = `
import importlib, os, sys
name = sys.argv[1]
mod = importlib.import_module(name)
print(os.path.dirname(os.path.abspath(mod.__file__)))
try:
    from importlib import metadata
    print(metadata.version(name))
except Exception:
    print("")
`

// Installation is where the diagram library lives for a given interpreter.
type Installation struct {
	Package string
	Root    string
	Version string
}

// Locate asks python where pkg is installed and which version it is.
func Locate(ctx context.Context, python, pkg string) (Installation, error) {
	cmd := exec.CommandContext(ctx, python, "-c", locateScript, pkg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Installation{}, derrors.Wrap(err, derrors.CodeCatalog, "cannot locate package "+pkg).
			WithContext("python", python).
			WithContext("stderr", tail(stderr.String(), 400))
	}

	lines := strings.Split(strings.TrimRight(stdout.String(), "\r\n"), "\n")
	inst := Installation{Package: pkg}
	if len(lines) > 0 {
		inst.Root = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		inst.Version = strings.TrimSpace(lines[1])
	}
	if inst.Root == "" {
		return Installation{}, derrors.New(derrors.CodeCatalog, "interpreter reported no location for "+pkg)
	}
	logger.Debug("Located %s %s at %s", pkg, inst.Version, inst.Root)
	return inst, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
