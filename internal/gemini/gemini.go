package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/medigen/catalyst/internal/providers"
	"google.golang.org/api/option"
)

var harmCategories = map[providers.HarmCategory]genai.HarmCategory{
	providers.HarmHarassment:       genai.HarmCategoryHarassment,
	providers.HarmHateSpeech:       genai.HarmCategoryHateSpeech,
	providers.HarmSexuallyExplicit: genai.HarmCategorySexuallyExplicit,
	providers.HarmDangerousContent: genai.HarmCategoryDangerousContent,
}

var thresholds = map[providers.BlockThreshold]genai.HarmBlockThreshold{
	providers.BlockMediumAndAbove: genai.HarmBlockMediumAndAbove,
}

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
}

// New returns a new Gemini provider
func New(apiKey string) *Gemini {
	return &Gemini{apiKey: apiKey}
}

func (g *Gemini) Name() string {
	return "gemini"
}

// GenerateText sends the prompt, and the image if any, to Gemini
func (g *Gemini) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("gemini API key not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	configureModel(model, config)

	var parts []genai.Part
	if config.Image != nil {
		parts = append(parts, genai.Blob{MIMEType: config.Image.MIMEType, Data: config.Image.Data})
	}
	parts = append(parts, genai.Text(config.Prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %s", providers.ErrBlocked, blocked.Error())
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return responseText(resp)
}

func configureModel(model *genai.GenerativeModel, config providers.Config) {
	model.SetTemperature(config.Generation.Temperature)
	model.SetTopP(config.Generation.TopP)
	if config.Generation.TopK > 0 {
		model.SetTopK(config.Generation.TopK)
	}
	if config.Generation.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(config.Generation.MaxOutputTokens)
	}

	model.SafetySettings = make([]*genai.SafetySetting, 0, len(config.Safety))
	for _, s := range config.Safety {
		category, ok := harmCategories[s.Category]
		if !ok {
			continue
		}
		threshold, ok := thresholds[s.Threshold]
		if !ok {
			continue
		}
		model.SafetySettings = append(model.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: threshold,
		})
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini: %w", providers.ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", providers.ErrBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("empty content returned from Gemini: %w", providers.ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no text parts returned from Gemini: %w", providers.ErrEmptyResponse)
	}
	return text, nil
}
