package cmd

import (
	"fmt"

	"github.com/medigen/catalyst/internal/analysis"
	"github.com/medigen/catalyst/internal/config"
	"github.com/medigen/catalyst/internal/followup"
	"github.com/medigen/catalyst/internal/gemini"
	"github.com/medigen/catalyst/internal/genaisdk"
	"github.com/medigen/catalyst/internal/ollama"
	"github.com/medigen/catalyst/internal/openai"
	"github.com/medigen/catalyst/internal/providers"
	"github.com/medigen/catalyst/internal/session"
)

func newProvider(cfg *config.Config) (providers.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.New(cfg.APIKey), nil
	case config.ProviderGenAI:
		return genaisdk.New(cfg.APIKey), nil
	case config.ProviderOpenAI:
		return openai.New(cfg.APIKey, cfg.OpenAIBaseURL), nil
	case config.ProviderOllama:
		return ollama.New(cfg.OllamaURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

// newMachine builds the state machine for cfg. exporter may be nil.
func newMachine(cfg *config.Config, exporter session.Exporter) (*session.Machine, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	variant, err := analysis.ParseVariant(cfg.PromptVariant)
	if err != nil {
		return nil, err
	}

	return session.NewMachineFromServices(session.Services{
		Analysis: analysis.NewService(provider, cfg.Model, variant),
		Followup: followup.NewEngine(provider, cfg.Model),
	}, exporter), nil
}
