package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/tristendillon/diagify/core/config"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/models"
	"golang.org/x/sync/errgroup"
)

const (
	ModeStatic     = "static"
	ModeIntrospect = "introspect"
)

//go:embed introspect.py
var introspectScript string

type Builder struct {
	Package string
	Mode    string
	Python  string
	Workers int
	walker  *ModuleWalker
}

func NewBuilder(cfg config.Catalog) *Builder {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeIntrospect
	}
	return &Builder{
		Package: cfg.Package,
		Mode:    mode,
		Python:  cfg.Python,
		Workers: workers,
		walker:  NewModuleWalker(cfg.Package),
	}
}

// Build walks root and returns the catalog of every type-bound name.
func (b *Builder) Build(ctx context.Context, root string) (*models.Catalog, error) {
	files, err := b.walker.Walk(root)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeCatalog, "failed to walk library").WithContext(derrors.CtxPath, root)
	}
	return b.BuildFiles(ctx, root, files)
}

func (b *Builder) BuildFiles(ctx context.Context, root string, files []SourceFile) (*models.Catalog, error) {
	var (
		entries []models.CatalogEntry
		err     error
	)
	switch b.Mode {
	case ModeIntrospect:
		entries, err = b.introspect(ctx, root, files)
	default:
		entries, err = b.parseAll(ctx, files)
	}
	if err != nil {
		return nil, err
	}

	cat := models.NewCatalog(b.Package, entries)
	cat.Root = root
	logger.Debug("Built %s catalog: %d entries from %d modules", b.Mode, cat.Len(), len(files))
	return cat, nil
}

// parseAll parses files concurrently; output keeps walk order.
func (b *Builder) parseAll(ctx context.Context, files []SourceFile) ([]models.CatalogEntry, error) {
	perFile := make([][]models.CatalogEntry, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Workers)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(f.Path)
			if err != nil {
				logger.Debug("Skipping %s: %v", f.RelPath, err)
				return nil
			}
			names, err := TypeNames(gctx, src, b.Package)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				// Same outcome as a module that fails to import.
				logger.Debug("Skipping %s: %v", f.RelPath, err)
				return nil
			}
			for _, name := range names {
				perFile[i] = append(perFile[i], models.NewCatalogEntry(f.Module, name))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var entries []models.CatalogEntry
	for _, fe := range perFile {
		entries = append(entries, fe...)
	}
	return entries, nil
}

func (b *Builder) introspect(ctx context.Context, root string, files []SourceFile) ([]models.CatalogEntry, error) {
	modules := make([]string, len(files))
	for i, f := range files {
		modules[i] = f.Module
	}
	input, err := json.Marshal(modules)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, b.Python, "-c", introspectScript, root)
	cmd.Stdin = bytes.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			logger.Debug("introspection stderr: %s", tail(stderr.String(), 2000))
		}
		return nil, derrors.Wrap(err, derrors.CodeCatalog, "introspection failed").WithContext("python", b.Python)
	}

	var lines []string
	if err := json.Unmarshal(stdout.Bytes(), &lines); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeCatalog, "introspection returned invalid output")
	}
	entries := make([]models.CatalogEntry, len(lines))
	for i, l := range lines {
		entries[i] = models.CatalogEntry(l)
	}
	return entries, nil
}

// fingerprint scopes the file fingerprint to the build mode. Introspected
// catalogs also depend on which interpreter imported the modules.
func (b *Builder) fingerprint(files []SourceFile) string {
	if b.Mode != ModeIntrospect {
		return fmt.Sprintf("%s:%s", b.Mode, Fingerprint(files))
	}
	python := b.Python
	if resolved, err := exec.LookPath(python); err == nil {
		python = resolved
	}
	return fmt.Sprintf("%s:%s:%s", b.Mode, python, Fingerprint(files))
}

// Load resolves the library root, then returns the catalog from the cache or
// a fresh build. cache may be nil.
func Load(ctx context.Context, cfg config.Catalog, cache *Cache) (*models.Catalog, error) {
	inst := Installation{Package: cfg.Package, Root: cfg.Root}
	if inst.Root == "" {
		located, err := Locate(ctx, cfg.Python, cfg.Package)
		if err != nil {
			return nil, err
		}
		inst = located
	}
	if info, err := os.Stat(inst.Root); err != nil || !info.IsDir() {
		return nil, derrors.New(derrors.CodeCatalog, "library root is not a directory").WithContext(derrors.CtxPath, inst.Root)
	}

	b := NewBuilder(cfg)
	files, err := b.walker.Walk(inst.Root)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeCatalog, "failed to walk library").WithContext(derrors.CtxPath, inst.Root)
	}

	key := Key{
		Package:     cfg.Package,
		Root:        inst.Root,
		Version:     inst.Version,
		Fingerprint: b.fingerprint(files),
	}
	if cfg.Cache && cache != nil {
		if cat, ok := cache.Get(ctx, key); ok {
			return cat, nil
		}
	}

	cat, err := b.BuildFiles(ctx, inst.Root, files)
	if err != nil {
		return nil, err
	}
	cat.Version = inst.Version

	if cfg.Cache && cache != nil {
		if err := cache.Set(ctx, key, cat); err != nil {
			logger.Warn("Failed to cache catalog: %v", err)
		}
	}
	return cat, nil
}
