package validator

import (
	"strings"

	"github.com/tristendillon/diagify/core/config"
	"github.com/tristendillon/diagify/core/logger"
	"github.com/tristendillon/diagify/core/models"
)

const (
	DefaultCutoff         = 0.6
	DefaultMaxSuggestions = 10
)

// BaselineImports are always accepted regardless of catalog content.
var BaselineImports = []string{
	"from diagrams import Diagram",
	"from diagrams import Cluster, Diagram",
}

type Options struct {
	Package        string
	Allowed        []string
	Cutoff         float64
	MaxSuggestions int
}

func DefaultOptions() Options {
	return Options{
		Package:        "diagrams",
		Allowed:        BaselineImports,
		Cutoff:         DefaultCutoff,
		MaxSuggestions: DefaultMaxSuggestions,
	}
}

// IsLibraryImport reports whether line imports from the library namespace.
// Only unindented lines count.
func IsLibraryImport(line, pkg string) bool {
	return strings.HasPrefix(line, "from "+pkg) || strings.HasPrefix(line, "import "+pkg)
}

// Validate scans source for library imports missing from catalog and pairs
// each with its closest public catalog entries.
func Validate(source string, catalog *models.Catalog, opts Options) models.ImportReport {
	if opts.Package == "" {
		opts.Package = "diagrams"
	}
	allowed := make(map[string]bool, len(opts.Allowed))
	for _, a := range opts.Allowed {
		allowed[a] = true
	}

	var (
		report     models.ImportReport
		seen       = make(map[string]bool)
		candidates []string
	)

	for _, line := range splitLines(source) {
		if !IsLibraryImport(line, opts.Package) || allowed[line] {
			continue
		}
		if catalog.Contains(line) || seen[line] {
			continue
		}
		seen[line] = true

		if candidates == nil {
			candidates = catalog.Strings()
		}
		suggestions := publicOnly(CloseMatches(line, candidates, opts.MaxSuggestions, opts.Cutoff))
		if len(suggestions) == 0 {
			logger.Debug("No suggestion for offending import %q", line)
			report.Unfixable = append(report.Unfixable, line)
			continue
		}
		report.Flagged = append(report.Flagged, models.FlaggedImport{Line: line, Suggestions: suggestions})
	}

	return report
}

// isLineBoundary matches the separators of Python's str.splitlines.
func isLineBoundary(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// splitLines drops empty lines; none of them can be an import.
func splitLines(source string) []string {
	return strings.FieldsFunc(source, isLineBoundary)
}

func publicOnly(matches []string) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if models.CatalogEntry(m).IsPrivate() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// OptionsFromConfig extends the baseline imports with the configured extras.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.Package = cfg.Catalog.Package
	opts.Allowed = append(append([]string{}, BaselineImports...), cfg.Validation.AllowedImports...)
	if cfg.Validation.Cutoff > 0 {
		opts.Cutoff = cfg.Validation.Cutoff
	}
	if cfg.Validation.MaxSuggestions > 0 {
		opts.MaxSuggestions = cfg.Validation.MaxSuggestions
	}
	return opts
}
