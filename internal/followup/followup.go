package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/medigen/catalyst/internal/models"
	"github.com/medigen/catalyst/internal/providers"
)

var (
	// ErrNoAnalysis is returned when there is no prior analysis to ground the question
	ErrNoAnalysis = errors.New("no analysis available for the selected image")
	// ErrEmptyQuestion is returned for blank questions
	ErrEmptyQuestion = errors.New("question is empty")
)

// Engine answers follow-up questions about an existing analysis
type Engine struct {
	provider providers.Provider
	model    string
	now      func() time.Time
}

// NewEngine creates a follow-up engine
func NewEngine(provider providers.Provider, model string) *Engine {
	return &Engine{provider: provider, model: model, now: time.Now}
}

// Prompt grounds the question in the earlier analysis text
func Prompt(analysisText, question string) string {
	return fmt.Sprintf("Based on the previous analysis: %s, answer this question: %s", analysisText, question)
}

// Ask sends a text-only request and returns the exchange as a ChatTurn.
// Nothing is returned on failure; the caller decides whether to record it.
func (e *Engine) Ask(ctx context.Context, record models.AnalysisRecord, question string) (models.ChatTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.ChatTurn{}, ErrEmptyQuestion
	}
	if strings.TrimSpace(record.Text) == "" {
		return models.ChatTurn{}, ErrNoAnalysis
	}

	answer, err := e.provider.GenerateText(ctx, providers.Config{
		Model:      e.model,
		Prompt:     Prompt(record.Text, question),
		Generation: providers.DefaultGeneration,
		Safety:     providers.DefaultSafety,
	})
	if err != nil {
		slog.Error("Follow-up question failed", "image", record.Filename, "err", err)
		return models.ChatTurn{}, fmt.Errorf("failed to answer question: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return models.ChatTurn{}, fmt.Errorf("failed to answer question: %w", providers.ErrEmptyResponse)
	}

	slog.Info("Follow-up answered", "image", record.Filename, "length", len(answer))
	return models.ChatTurn{
		Image:     record.Filename,
		Question:  question,
		Answer:    answer,
		CreatedAt: e.now(),
	}, nil
}
