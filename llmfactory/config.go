package llmfactory

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/configloader"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Providers specifies the list of providers to use
	Providers []*ProviderConfig `json:"providers" yaml:"providers" validate:"required,min=1,dive"`
	// DefaultProvider specifies the default provider to use
	DefaultProvider string `json:"default_provider" yaml:"default_provider"`
	// Chat specifies the model policy for chat sessions.
	Chat ChatConfig `json:"chat" yaml:"chat"`
}

// ChatConfig specifies the model policy for a chat session.
type ChatConfig struct {
	// PrimaryModel is tried first for every completion call.
	PrimaryModel string `json:"primary_model" yaml:"primary_model"`
	// FallbackModels are tried in order when the primary is unavailable.
	FallbackModels []string `json:"fallback_models" yaml:"fallback_models"`
	// RetryCount specifies how many times a transient failure is retried
	// on the same model before advancing to a fallback.
	RetryCount int `json:"retry_count" yaml:"retry_count" validate:"gte=0"`
}

// ProviderConfig for one completion provider endpoint
type ProviderConfig struct {
	Name            string   `json:"name" yaml:"name" validate:"required"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty"`
	DefaultModel    string   `json:"default_model,omitempty" yaml:"default_model,omitempty"`
	AvailableModels []string `json:"available_models,omitempty" yaml:"available_models,omitempty"`
	// APIType specifies the type of API to use: OPENAI|AZURE|ANTHROPIC
	APIType string `json:"api_type,omitempty" yaml:"api_type,omitempty" validate:"omitempty,oneof=OPENAI AZURE ANTHROPIC"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// OrgID specifies which organization's quota and billing should be used when making API requests.
	OrgID string `json:"org_id,omitempty" yaml:"org_id,omitempty"`
}

func (c *ProviderConfig) FindModel(models ...string) string {
	for _, model := range models {
		if slices.Contains(c.AvailableModels, model) {
			return model
		}
	}
	return c.DefaultModel
}

// Validate checks the config for consistency.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return errors.WithMessage(err, "invalid configuration")
	}
	return nil
}

// LoadConfig from file
func LoadConfig(file string) (*Config, error) {
	cfg := new(Config)
	if file == "" {
		return cfg, nil
	}

	err := configloader.UnmarshalAndExpand(file, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
