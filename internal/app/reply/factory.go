package reply

import (
	"math/rand"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/developer5167/chatspotWebservices/internal/infra/config"
)

// NewChainFromConfig creates a provider chain from configuration. When no
// providers are configured, the standard chain is used: privacy deflection
// first, intent patterns, the generative backend, then the fixed fallback.
func NewChainFromConfig(cfg *config.Config, backend ChatBackend, r *rand.Rand) (*Chain, error) {
	rng := newLockedRand(r)

	pcfgs := cfg.Reply.Providers
	if len(pcfgs) == 0 {
		pcfgs = []config.ProviderConfig{
			{Type: "privacy", Settings: map[string]any{"deflection": cfg.Messages.Deflection}},
			{Type: "patterns"},
			{Type: "generative"},
			{Type: "fallback"},
		}
	}

	var providers []Provider
	for i, pcfg := range pcfgs {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating reply provider: index=%d type=%s settings=%+v", i+1, pcfg.Type, pcfg.Settings)
		switch pcfg.Type {
		case "privacy":
			provider, err = NewPrivacyProvider(pcfg.Settings)

		case "patterns":
			provider = NewPatternProvider(rng)

		case "generative":
			if backend == nil {
				zlog.Warn().Msg("no chat backend configured, skipping generative provider")
				continue
			}
			provider, err = NewGenerativeProvider(backend, pcfg.Settings)

		case "fallback":
			provider = NewFallbackProvider(rng)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, provider)
		zlog.Info().Msgf("registered reply provider: index=%d type=%s", i+1, pcfg.Type)
	}

	return NewChain(providers), nil
}
