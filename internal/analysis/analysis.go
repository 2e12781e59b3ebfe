package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medigen/catalyst/internal/models"
	"github.com/medigen/catalyst/internal/providers"
)

// Service invokes the model on one image at a time
type Service struct {
	provider providers.Provider
	model    string
	variant  Variant
	now      func() time.Time
}

// NewService creates an analysis service for the given provider and model
func NewService(provider providers.Provider, model string, variant Variant) *Service {
	return &Service{
		provider: provider,
		model:    model,
		variant:  variant,
		now:      time.Now,
	}
}

// Request builds the multimodal model request for img
func (s *Service) Request(img models.Image) providers.Config {
	return providers.Config{
		Model:  s.model,
		Prompt: s.variant.Instruction(),
		Image: &providers.InlineImage{
			MIMEType: img.MIMEType,
			Data:     img.Data,
		},
		Generation: providers.DefaultGeneration,
		Safety:     providers.DefaultSafety,
	}
}

// Analyze sends img to the model and returns the raw response as a record.
// The response is not checked against the requested section layout.
func (s *Service) Analyze(ctx context.Context, img models.Image) (models.AnalysisRecord, error) {
	if len(img.Data) == 0 {
		return models.AnalysisRecord{}, fmt.Errorf("image %s has no data", img.Filename)
	}

	start := s.now()
	slog.Info("Analyzing image", "image", img.Filename, "provider", s.provider.Name(), "model", s.model)

	text, err := s.provider.GenerateText(ctx, s.Request(img))
	if err != nil {
		slog.Error("Analysis failed", "image", img.Filename, "err", err)
		return models.AnalysisRecord{}, fmt.Errorf("failed to analyze %s: %w", img.Filename, err)
	}
	if text == "" {
		return models.AnalysisRecord{}, fmt.Errorf("failed to analyze %s: %w", img.Filename, providers.ErrEmptyResponse)
	}

	slog.Info("Analysis complete", "image", img.Filename, "length", len(text), "elapsed", s.now().Sub(start))
	return models.AnalysisRecord{
		Filename:    img.Filename,
		Fingerprint: img.Fingerprint,
		Text:        text,
		Provider:    s.provider.Name(),
		Model:       s.model,
		CreatedAt:   s.now(),
	}, nil
}
