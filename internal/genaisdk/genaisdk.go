// Package genaisdk implements the provider interface on top of the
// google.golang.org/genai client, the successor of the generative-ai-go SDK.
package genaisdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/medigen/catalyst/internal/providers"
	"google.golang.org/genai"
)

var harmCategories = map[providers.HarmCategory]genai.HarmCategory{
	providers.HarmHarassment:       genai.HarmCategoryHarassment,
	providers.HarmHateSpeech:       genai.HarmCategoryHateSpeech,
	providers.HarmSexuallyExplicit: genai.HarmCategorySexuallyExplicit,
	providers.HarmDangerousContent: genai.HarmCategoryDangerousContent,
}

var thresholds = map[providers.BlockThreshold]genai.HarmBlockThreshold{
	providers.BlockMediumAndAbove: genai.HarmBlockThresholdBlockMediumAndAbove,
}

// Client talks to the Gemini API through the genai SDK
type Client struct {
	apiKey string
}

// New returns a new genai SDK provider
func New(apiKey string) *Client {
	return &Client{apiKey: apiKey}
}

func (c *Client) Name() string {
	return "genai"
}

func (c *Client) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini API key not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, config.Model, buildContents(config), buildConfig(config))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return responseText(result)
}

func buildContents(config providers.Config) []*genai.Content {
	var parts []*genai.Part
	if config.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(config.Image.Data, config.Image.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(config.Prompt))

	return []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
}

func buildConfig(config providers.Config) *genai.GenerateContentConfig {
	gen := config.Generation
	out := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(gen.Temperature),
		TopP:            genai.Ptr(gen.TopP),
		MaxOutputTokens: gen.MaxOutputTokens,
	}
	if gen.TopK > 0 {
		out.TopK = genai.Ptr(float32(gen.TopK))
	}

	for _, s := range config.Safety {
		category, ok := harmCategories[s.Category]
		if !ok {
			continue
		}
		threshold, ok := thresholds[s.Threshold]
		if !ok {
			continue
		}
		out.SafetySettings = append(out.SafetySettings, &genai.SafetySetting{
			Category:  category,
			Threshold: threshold,
		})
	}
	return out
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil {
		return "", providers.ErrEmptyResponse
	}
	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", providers.ErrBlocked, result.PromptFeedback.BlockReason)
	}
	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned: %w", providers.ErrEmptyResponse)
	}
	if result.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", providers.ErrBlocked
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", providers.ErrEmptyResponse
	}
	return text, nil
}
