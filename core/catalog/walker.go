package catalog

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tristendillon/diagify/core/logger"
)

// SourceFile is one python module of the library.
type SourceFile struct {
	Path    string
	RelPath string
	Module  string
}

type ModuleWalker struct {
	Package string
	Exclude []string
}

func NewModuleWalker(pkg string) *ModuleWalker {
	return &ModuleWalker{
		Package: pkg,
		Exclude: []string{"__pycache__", ".git", ".mypy_cache", ".pytest_cache"},
	}
}

// Walk lists every .py file under root except __init__.py, in walk order.
func (w *ModuleWalker) Walk(root string) ([]SourceFile, error) {
	var discovered []SourceFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && w.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(name, ".py") || name == "__init__.py" {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		discovered = append(discovered, SourceFile{
			Path:    path,
			RelPath: relPath,
			Module:  ModuleName(w.Package, relPath),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("Discovered %d modules under %s", len(discovered), root)
	return discovered, nil
}

func (w *ModuleWalker) excluded(dir string) bool {
	for _, ex := range w.Exclude {
		if dir == ex {
			return true
		}
	}
	return false
}

// ModuleName turns "aws/compute.py" into "<pkg>.aws.compute".
func ModuleName(pkg, relPath string) string {
	trimmed := strings.TrimSuffix(filepath.ToSlash(relPath), ".py")
	return pkg + "." + strings.ReplaceAll(trimmed, "/", ".")
}
