package main

import (
	"os"

	"github.com/ChamsBouzaiene/dreami/internal/config"
	"github.com/ChamsBouzaiene/dreami/internal/providers"
)

// applyConfigToEnv exports provider settings from the config file to the
// environment names the provider factory reads. Values already set in the
// config win over the environment.
func applyConfigToEnv(cfg *config.Config) {
	provider := cfg.LLMProvider
	if provider != "" {
		os.Setenv("LLM_PROVIDER", provider)
	} else if provider = os.Getenv("LLM_PROVIDER"); provider == "" {
		provider = providers.DefaultProvider
	}

	prefix, ok := providers.EnvPrefix(provider)
	if !ok {
		return
	}
	if cfg.APIKey != "" {
		os.Setenv(prefix+"_API_KEY", cfg.APIKey)
	}
	if cfg.Model != "" {
		os.Setenv(prefix+"_MODEL", cfg.Model)
	}
	if cfg.BaseURL != "" {
		os.Setenv(prefix+"_BASE_URL", cfg.BaseURL)
	}
}
