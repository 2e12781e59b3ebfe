package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/medigen/catalyst/internal/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAI is a provider for OpenAI
type OpenAI struct {
	apiKey string
	http   *resty.Client
}

// New returns a new OpenAI provider. An empty baseURL uses the public API.
func New(apiKey, baseURL string) *OpenAI {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAI{
		apiKey: apiKey,
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetHeader("Content-Type", "application/json"),
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GenerateText sends the prompt and optional image as one user message
func (o *OpenAI) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	content := []map[string]any{
		{
			"type": "text",
			"text": config.Prompt,
		},
	}
	if config.Image != nil {
		content = append(content, map[string]any{
			"type": "image_url",
			"image_url": map[string]string{
				"url": "data:" + config.Image.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(config.Image.Data),
			},
		})
	}

	requestBody := map[string]any{
		"model": config.Model,
		"messages": []map[string]any{
			{
				"role":    "user",
				"content": content,
			},
		},
		"temperature": config.Generation.Temperature,
		"top_p":       config.Generation.TopP,
	}
	if config.Generation.MaxOutputTokens > 0 {
		requestBody["max_tokens"] = config.Generation.MaxOutputTokens
	}

	var response chatResponse
	resp, err := o.http.R().
		SetContext(ctx).
		SetAuthToken(o.apiKey).
		SetBody(requestBody).
		SetResult(&response).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode(), resp.String())
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI: %w", providers.ErrEmptyResponse)
	}
	if response.Choices[0].FinishReason == "content_filter" {
		return "", providers.ErrBlocked
	}

	text := strings.TrimSpace(response.Choices[0].Message.Content)
	if text == "" {
		return "", providers.ErrEmptyResponse
	}
	return text, nil
}
