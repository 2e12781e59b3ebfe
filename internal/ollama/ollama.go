package ollama

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/medigen/catalyst/internal/providers"
)

// Ollama is a provider for a local Ollama server
type Ollama struct {
	http *resty.Client
}

// New returns a new Ollama provider
func New(baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		http: resty.New().
			SetBaseURL(strings.TrimSuffix(baseURL, "/")).
			SetHeader("Content-Type", "application/json"),
	}
}

func (o *Ollama) Name() string {
	return "ollama"
}

// GenerateText calls /api/generate without streaming
func (o *Ollama) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	options := map[string]any{
		"temperature": config.Generation.Temperature,
		"top_p":       config.Generation.TopP,
	}
	if config.Generation.TopK > 0 {
		options["top_k"] = config.Generation.TopK
	}
	if config.Generation.MaxOutputTokens > 0 {
		options["num_predict"] = config.Generation.MaxOutputTokens
	}

	requestBody := map[string]any{
		"model":   config.Model,
		"prompt":  config.Prompt,
		"stream":  false,
		"options": options,
	}
	if config.Image != nil {
		requestBody["images"] = []string{base64.StdEncoding.EncodeToString(config.Image.Data)}
	}

	var response struct {
		Response string `json:"response"`
	}
	resp, err := o.http.R().
		SetContext(ctx).
		SetBody(requestBody).
		SetResult(&response).
		Post("/api/generate")
	if err != nil {
		return "", fmt.Errorf("failed to call Ollama API: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama API returned status %d: %s", resp.StatusCode(), resp.String())
	}

	text := strings.TrimSpace(response.Response)
	if text == "" {
		return "", providers.ErrEmptyResponse
	}
	return text, nil
}
