package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"text/template"
	"time"
)

// GenerationStatus tells the caller whether backend text is usable
type GenerationStatus int

const (
	GenerationSucceeded GenerationStatus = iota
	GenerationUnavailable
	GenerationFailed
)

func (s GenerationStatus) String() string {
	switch s {
	case GenerationSucceeded:
		return "succeeded"
	case GenerationUnavailable:
		return "unavailable"
	case GenerationFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// GenerationResult is the outcome of one backend call
type GenerationResult struct {
	Status GenerationStatus
	Text   string
	Reason error
}

// Generated wraps backend text.
func Generated(text string) GenerationResult {
	return GenerationResult{Status: GenerationSucceeded, Text: text}
}

// Unavailable reports a backend that cannot be called at all.
func Unavailable(reason error) GenerationResult {
	return GenerationResult{Status: GenerationUnavailable, Reason: reason}
}

// Failed reports a backend call that was attempted and did not succeed.
func Failed(reason error) GenerationResult {
	return GenerationResult{Status: GenerationFailed, Reason: reason}
}

// Backend is an opaque text-completion service
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string) GenerationResult
}

// SynthesisRequest carries everything an article is written from
type SynthesisRequest struct {
	Tool         ToolInfo
	Keyword      string
	Category     string
	TargetLength int
	// Facts is optional extra context for the prompt.
	Facts *PageFacts
}

// promptData is what the writer prompt template sees
type promptData struct {
	Tool         ToolInfo
	Keyword      string
	Category     string
	TargetLength int
	Prices       []string
	Features     []string
	Source       string
}

// fallbackData is what the fallback article template sees
type fallbackData struct {
	Tool     ToolInfo
	Keyword  string
	Category string
	Date     string
}

var promptFuncs = template.FuncMap{"join": strings.Join}

var fallbackTemplate = template.Must(template.New("fallback").Parse(defaultFallbackTemplate))

// Synthesizer writes articles, preferring the backend and falling back to
// a fixed template
type Synthesizer struct {
	backend        Backend
	prompt         *template.Template
	sourceMaxChars int
	now            func() time.Time
}

// NewSynthesizer creates a synthesizer. A nil backend always uses the template.
func NewSynthesizer(backend Backend, promptTemplate string, sourceMaxTokens int) (*Synthesizer, error) {
	prompt, err := template.New("prompt").Funcs(promptFuncs).Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}
	return &Synthesizer{
		backend:        backend,
		prompt:         prompt,
		sourceMaxChars: sourceMaxTokens * 4, // 4 chars ≈ 1 token
		now:            time.Now,
	}, nil
}

// Synthesize returns article text. It never fails: any non-success from the
// backend is answered with the template article.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) string {
	result := s.Generate(ctx, req)
	switch result.Status {
	case GenerationSucceeded:
		log.Printf("✓ Article written by %s (%d chars)", s.backend.Name(), len([]rune(result.Text)))
		return result.Text
	case GenerationUnavailable:
		log.Printf("Warning: generative backend unavailable (%v), using template", result.Reason)
	default:
		log.Printf("✗ Generative backend failed (%v), using template", result.Reason)
	}
	return s.Fallback(req)
}

// Generate runs only the backend path.
func (s *Synthesizer) Generate(ctx context.Context, req SynthesisRequest) GenerationResult {
	if s.backend == nil {
		return Unavailable(fmt.Errorf("no backend configured"))
	}

	prompt, err := s.BuildPrompt(req)
	if err != nil {
		return Failed(err)
	}

	log.Printf("→ Writing with %s...", s.backend.Name())
	result := s.backend.Generate(ctx, prompt)
	if result.Status == GenerationSucceeded && strings.TrimSpace(result.Text) == "" {
		return Failed(fmt.Errorf("%s returned empty text", s.backend.Name()))
	}
	return result
}

// BuildPrompt renders the writer prompt for req.
func (s *Synthesizer) BuildPrompt(req SynthesisRequest) (string, error) {
	data := promptData{
		Tool:         req.Tool,
		Keyword:      req.Keyword,
		Category:     req.Category,
		TargetLength: req.TargetLength,
	}
	if req.Facts != nil {
		data.Prices = req.Facts.Prices
		data.Features = req.Facts.Features
		source := req.Facts.Markdown
		if source == "" {
			source = req.Facts.ContentExcerpt
		}
		data.Source = limitChars(source, s.sourceMaxChars)
	}

	var buf bytes.Buffer
	if err := s.prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing prompt template: %w", err)
	}
	return buf.String(), nil
}

// Fallback builds the template article. Apart from the date it is a pure
// function of req.
func (s *Synthesizer) Fallback(req SynthesisRequest) string {
	data := fallbackData{
		Tool:     req.Tool,
		Keyword:  req.Keyword,
		Category: req.Category,
		Date:     s.now().Format("2006-01-02"),
	}

	var buf bytes.Buffer
	if err := fallbackTemplate.Execute(&buf, data); err != nil {
		// The template is embedded, so this only happens on a programming error.
		log.Printf("✗ Fallback template failed: %v", err)
		return fmt.Sprintf("---\ntitle: \"%s - %s\"\ndate: %s\n---\n\n# %s\n\n%s\n",
			req.Keyword, req.Tool.Title, data.Date, req.Tool.Title, req.Tool.URL)
	}
	return buf.String()
}

// limitChars limits content to max characters, marking the cut.
func limitChars(content string, max int) string {
	if max <= 0 {
		return ""
	}
	cut := truncateRunes(content, max)
	if cut == content {
		return content
	}
	return cut + "..."
}
