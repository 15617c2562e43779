package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"google.golang.org/genai"
)

const (
	providerAnthropic  = "anthropic"
	providerGemini     = "gemini"
	defaultGeminiModel = "gemini-2.5-flash"
)

// ErrMissingCredential is the reason a backend is unavailable without a key
var ErrMissingCredential = errors.New("API credential not configured")

// NewBackend selects the generative backend named by settings. A provider
// without a credential is still returned; it reports itself unavailable.
func NewBackend(ctx context.Context, settings SynthesizerSettings, creds Credentials) (Backend, error) {
	switch strings.ToLower(settings.Provider) {
	case "", providerAnthropic:
		return &AnthropicBackend{
			apiKey:      creds.AnthropicAPIKey,
			model:       settings.Model,
			maxTokens:   settings.MaxTokens,
			temperature: settings.Temperature,
		}, nil
	case providerGemini:
		model := settings.Model
		if model == "" || strings.HasPrefix(model, "claude") {
			model = defaultGeminiModel
		}
		return NewGeminiBackend(ctx, creds.GeminiAPIKey, model, settings.MaxTokens, settings.Temperature)
	default:
		return nil, fmt.Errorf("unknown synthesizer provider %q", settings.Provider)
	}
}

// AnthropicBackend calls Claude through llmkit
type AnthropicBackend struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

func (b *AnthropicBackend) Name() string {
	return providerAnthropic
}

// Generate sends prompt as a single user message.
func (b *AnthropicBackend) Generate(ctx context.Context, prompt string) GenerationResult {
	if b.apiKey == "" {
		return Unavailable(fmt.Errorf("ANTHROPIC_API_KEY: %w", ErrMissingCredential))
	}
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}

	settings := types.RequestSettings{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Temperature: b.temperature,
	}
	response, err := anthropic.PromptWithSettings("", prompt, "", b.apiKey, settings)
	if err != nil {
		return Failed(fmt.Errorf("anthropic request failed: %w", err))
	}
	if len(response.Content) == 0 {
		return Failed(fmt.Errorf("no content in anthropic response"))
	}

	debugLog("anthropic response: %d content blocks", len(response.Content))
	return Generated(response.Content[0].Text)
}

// GeminiBackend calls Gemini through the genai SDK
type GeminiBackend struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewGeminiBackend creates a Gemini backend. An empty key yields a backend
// that is always unavailable.
func NewGeminiBackend(ctx context.Context, apiKey, model string, maxTokens int, temperature float64) (*GeminiBackend, error) {
	b := &GeminiBackend{model: model, maxTokens: maxTokens, temperature: temperature}
	if apiKey == "" {
		return b, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("Warning: could not create Gemini client: %v", err)
		return b, nil
	}
	b.client = client
	return b, nil
}

func (b *GeminiBackend) Name() string {
	return providerGemini
}

// Generate sends prompt as a single user turn.
func (b *GeminiBackend) Generate(ctx context.Context, prompt string) GenerationResult {
	if b.client == nil {
		return Unavailable(fmt.Errorf("GEMINI_API_KEY: %w", ErrMissingCredential))
	}

	temp := float32(b.temperature)
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(b.maxTokens),
		Temperature:     &temp,
	}
	result, err := b.client.Models.GenerateContent(ctx, b.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
		}},
		config,
	)
	if err != nil {
		return Failed(fmt.Errorf("gemini request failed: %w", err))
	}
	if result == nil {
		return Failed(fmt.Errorf("gemini returned nil result"))
	}
	return Generated(result.Text())
}
