package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gobwas/glob"
	derrors "github.com/tristendillon/diagify/core/errors"
)

func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return derrors.Newf(derrors.CodeConfig, "unsupported provider %q", c.Provider.Name)
	}
	if strings.TrimSpace(c.Generation.Model) == "" {
		return derrors.New(derrors.CodeConfig, "generation.model is required")
	}
	if strings.TrimSpace(c.Correction.Model) == "" {
		return derrors.New(derrors.CodeConfig, "correction.model is required")
	}
	if c.Correction.MaxAttempts < 0 {
		return derrors.New(derrors.CodeConfig, "correction.max_attempts must not be negative")
	}
	if c.Validation.Cutoff < 0 || c.Validation.Cutoff > 1 {
		return derrors.Newf(derrors.CodeConfig, "validation.cutoff must be within [0, 1], got %v", c.Validation.Cutoff)
	}
	if c.Validation.MaxSuggestions <= 0 {
		return derrors.New(derrors.CodeConfig, "validation.max_suggestions must be positive")
	}
	switch c.Catalog.Mode {
	case "static", "introspect":
	default:
		return derrors.Newf(derrors.CodeConfig, "catalog.mode must be static or introspect, got %q", c.Catalog.Mode)
	}
	if strings.TrimSpace(c.Catalog.Package) == "" {
		return derrors.New(derrors.CodeConfig, "catalog.package is required")
	}
	if strings.TrimSpace(c.Execution.Interpreter) == "" {
		return derrors.New(derrors.CodeConfig, "execution.interpreter is required")
	}
	if _, err := glob.Compile(c.Execution.ImagePattern); err != nil {
		return derrors.Wrap(err, derrors.CodeConfig, "execution.image_pattern is not a valid glob")
	}
	if c.Execution.TimeoutSeconds < 0 || c.Execution.MaxMemoryMB < 0 || c.Execution.MaxCPUSeconds < 0 {
		return derrors.New(derrors.CodeConfig, "execution limits must not be negative")
	}
	return nil
}

// RequireCredential returns the provider API key or a configuration error
// when its environment variable is unset.
func (c *Config) RequireCredential() (string, error) {
	env := c.Provider.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv(c.Provider.Name)
	}
	key := strings.TrimSpace(os.Getenv(env))
	if key == "" {
		return "", derrors.New(derrors.CodeConfig, fmt.Sprintf("%s environment variable is not set", env)).
			WithContext(derrors.CtxProvider, c.Provider.Name)
	}
	return key, nil
}
