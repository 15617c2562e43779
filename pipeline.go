package main

import (
	"context"
	"fmt"
	"log"
)

const (
	defaultCategory     = "AI Tool"
	defaultTargetLength = 1600
)

// GenerateRequest describes one article to produce
type GenerateRequest struct {
	URL          string
	Keyword      string
	Category     string
	TargetLength int
}

// GenerateResult is what a generate run produced
type GenerateResult struct {
	Path    string
	Tool    ToolInfo
	Facts   *PageFacts
	Content string
}

// Generator runs extraction, synthesis and saving for one URL
type Generator struct {
	extractor   *Extractor
	synthesizer *Synthesizer
	store       *ArticleStore
}

// NewGenerator wires the pipeline stages together
func NewGenerator(extractor *Extractor, synthesizer *Synthesizer, store *ArticleStore) *Generator {
	return &Generator{
		extractor:   extractor,
		synthesizer: synthesizer,
		store:       store,
	}
}

// Generate produces and saves an article. Extraction and synthesis
// failures degrade to defaults; only saving can fail.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	if req.Category == "" {
		req.Category = defaultCategory
	}
	if req.TargetLength <= 0 {
		req.TargetLength = defaultTargetLength
	}

	log.Printf("→ Fetching tool info from %s", req.URL)
	facts, err := g.extractor.Extract(ctx, req.URL)
	if err != nil {
		log.Printf("Warning: could not fetch tool info from %s: %v", req.URL, err)
		facts = nil
	}
	tool := ToolInfoFromFacts(req.URL, facts)
	if req.Keyword == "" {
		req.Keyword = tool.Title
	}

	content := g.synthesizer.Synthesize(ctx, SynthesisRequest{
		Tool:         tool,
		Keyword:      req.Keyword,
		Category:     req.Category,
		TargetLength: req.TargetLength,
		Facts:        facts,
	})

	log.Printf("→ Saving article...")
	path, err := g.store.Save(content, tool)
	if err != nil {
		return nil, fmt.Errorf("saving article: %w", err)
	}
	log.Printf("✓ Generated: %s", path)

	return &GenerateResult{
		Path:    path,
		Tool:    tool,
		Facts:   facts,
		Content: content,
	}, nil
}
