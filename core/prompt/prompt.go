package prompt

import (
	"fmt"
	"strings"

	"github.com/tristendillon/diagify/core/models"
)

var defaultEngine = NewTemplateEngine()

// System returns the fixed instruction describing how to write diagram code.
func System() string {
	out, err := defaultEngine.Render(TEMPLATES.SYSTEM, nil)
	if err != nil {
		// The template is embedded; failing here is a build defect.
		panic(fmt.Sprintf("system prompt: %v", err))
	}
	return out
}

// Generation returns the user message asking for code for description.
func Generation(description string) (string, error) {
	return defaultEngine.Render(TEMPLATES.GENERATION, struct {
		Description string
	}{
		Description: description,
	})
}

// Correction asks the model to replace only the flagged import lines of
// source with one of their suggestions.
func Correction(source string, report models.ImportReport, description string) (string, error) {
	return defaultEngine.Render(TEMPLATES.CORRECTION, struct {
		Description string
		Source      string
		Flagged     []models.FlaggedImport
	}{
		Description: description,
		Source:      strings.TrimRight(source, "\n"),
		Flagged:     report.Flagged,
	})
}
