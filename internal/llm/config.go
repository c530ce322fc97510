package llm

import (
	"fmt"
)

// Providers understood by NewGateway.
const (
	ProviderGoogleAI = "googleai"
	ProviderOffline  = "offline"
)

// Config contains configuration for the AI gateway.
type Config struct {
	// Provider selects the Genkit plugin backing the models
	// Default: googleai
	Provider string

	// APIKey is the Google AI API key (required for googleai)
	APIKey string

	// Models is the catalog offered by the model? prompt, as Genkit model names
	// Default: DefaultModels() or OfflineModels() depending on Provider
	Models []string

	// HistoryLimit caps the number of chat turns sent with each chat prompt
	// Default: 20
	HistoryLimit int
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderGoogleAI
	}

	if len(c.Models) == 0 {
		if c.Provider == ProviderOffline {
			c.Models = OfflineModels()
		} else {
			c.Models = DefaultModels()
		}
	}

	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 20
	}
}

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGoogleAI:
		if c.APIKey == "" {
			return fmt.Errorf("APIKey is required for provider %s (set GOOGLE_API_KEY or run 'genshell auth set-key')", c.Provider)
		}
	case ProviderOffline:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}

	return nil
}

// DefaultModels returns the Google AI models offered by default, in menu order.
func DefaultModels() []string {
	return []string{
		"googleai/gemini-2.5-flash",
		"googleai/gemini-2.5-pro",
		"googleai/gemini-2.0-flash",
	}
}
