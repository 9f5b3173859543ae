package services

import (
	"go.uber.org/zap"

	"github.com/dpup/wayfinder/internal/clients/google"
	"github.com/dpup/wayfinder/internal/clients/osrm"
	"github.com/dpup/wayfinder/internal/config"
	"github.com/dpup/wayfinder/internal/lib/routing"
)

// NewProviders builds the configured routing tiers in order. The Google tier
// is skipped when no API key is set.
func NewProviders(cfg *config.Config, logger *zap.Logger) []routing.Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	var providers []routing.Provider
	for _, name := range cfg.Providers {
		switch name {
		case osrm.ProviderName:
			providers = append(providers, osrm.NewClient(cfg.OSRM.BaseURL, logger))
		case google.ProviderName:
			if cfg.Google.APIKey == "" {
				logger.Warn("google provider configured without an API key, skipping")
				continue
			}
			providers = append(providers, google.NewClient(cfg.Google.Options(), logger))
		default:
			logger.Warn("ignoring unknown routing provider", zap.String("provider", name))
		}
	}
	return providers
}
