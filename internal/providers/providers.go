package providers

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model answers without any text
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrBlocked is returned when the model refuses to answer for safety reasons
	ErrBlocked = errors.New("model response was blocked by safety filters")
)

// HarmCategory names a content safety filter
type HarmCategory string

const (
	HarmHarassment       HarmCategory = "harassment"
	HarmHateSpeech       HarmCategory = "hate_speech"
	HarmSexuallyExplicit HarmCategory = "sexually_explicit"
	HarmDangerousContent HarmCategory = "dangerous_content"
)

// BlockThreshold is the severity at which a safety filter blocks
type BlockThreshold string

const (
	BlockMediumAndAbove BlockThreshold = "medium_and_above"
)

// SafetySetting pairs a harm category with its block threshold
type SafetySetting struct {
	Category  HarmCategory
	Threshold BlockThreshold
}

// Generation holds sampling parameters. Zero TopK means unconstrained.
type Generation struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// DefaultGeneration is used for every analysis and follow-up call
var DefaultGeneration = Generation{
	Temperature:     1.0,
	TopP:            0.95,
	TopK:            0,
	MaxOutputTokens: 8192,
}

// DefaultSafety blocks medium and above on all four filters
var DefaultSafety = []SafetySetting{
	{Category: HarmHarassment, Threshold: BlockMediumAndAbove},
	{Category: HarmHateSpeech, Threshold: BlockMediumAndAbove},
	{Category: HarmSexuallyExplicit, Threshold: BlockMediumAndAbove},
	{Category: HarmDangerousContent, Threshold: BlockMediumAndAbove},
}

// InlineImage is an image attached to a request
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// Config represents one request to an LLM provider
type Config struct {
	Model      string
	Prompt     string
	Image      *InlineImage
	Generation Generation
	Safety     []SafetySetting
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	GenerateText(ctx context.Context, config Config) (string, error)
}
