package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/tristendillon/diagify/core/logger"
)

//go:embed templates/*.tmpl
var TemplateFS embed.FS

type TemplateRef struct {
	Path string
}

var TEMPLATES = struct {
	SYSTEM     TemplateRef
	GENERATION TemplateRef
	CORRECTION TemplateRef
	CONFIG     TemplateRef
}{
	SYSTEM:     TemplateRef{Path: "system.tmpl"},
	GENERATION: TemplateRef{Path: "generation.tmpl"},
	CORRECTION: TemplateRef{Path: "correction.tmpl"},
	CONFIG:     TemplateRef{Path: "diagify.yaml.tmpl"},
}

type TemplateEngine struct {
	funcMap template.FuncMap
}

func getDefaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"trim":  strings.TrimSpace,
		"join":  strings.Join,
		"lower": strings.ToLower,
		"quote": func(s string) string { return fmt.Sprintf("%q", s) },
		"suggestions": func(items []string) string {
			return "[" + strings.Join(items, ", ") + "]"
		},
	}
}

func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{funcMap: getDefaultFuncMap()}
}

func (te *TemplateEngine) AddFunc(name string, fn interface{}) {
	te.funcMap[name] = fn
}

func (te *TemplateEngine) parse(ref TemplateRef) (*template.Template, error) {
	templatePath := filepath.ToSlash(filepath.Join("templates", ref.Path))
	content, err := TemplateFS.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file %s: %w", templatePath, err)
	}

	tmpl, err := template.New(ref.Path).Funcs(te.funcMap).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", ref.Path, err)
	}
	return tmpl, nil
}

// Render executes the referenced template into a string.
func (te *TemplateEngine) Render(ref TemplateRef, data interface{}) (string, error) {
	tmpl, err := te.parse(ref)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", ref.Path, err)
	}
	return buf.String(), nil
}

func (te *TemplateEngine) GenerateFile(ref TemplateRef, outputPath string, data interface{}) error {
	rendered, err := te.Render(ref, data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to create output file %s: %w", outputPath, err)
	}

	logger.Debug("Generated %s from template %s", outputPath, ref.Path)
	return nil
}
