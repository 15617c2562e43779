package main

import (
	"path/filepath"
	"time"
)

// PageFacts represents the structured facts extracted from a product page
type PageFacts struct {
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ContentExcerpt string    `json:"content"`
	Prices         []string  `json:"prices"`
	Features       []string  `json:"features"`
	ExtractedAt    time.Time `json:"extracted_at"`
	Domain         string    `json:"domain"`

	// Markdown rendering of the main content node, used as prompt context.
	Markdown string `json:"-"`
}

// ToolInfo is the reduced projection of PageFacts used as synthesis input
type ToolInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

const (
	defaultToolTitle       = "AI Tool"
	defaultToolDescription = "AI tool description"
)

// DefaultToolInfo is used when extraction fails so synthesis always has input.
func DefaultToolInfo(url string) ToolInfo {
	return ToolInfo{
		Title:       defaultToolTitle,
		Description: defaultToolDescription,
		URL:         url,
	}
}

// ToolInfoFromFacts projects PageFacts onto ToolInfo. A nil facts record
// yields the defaults.
func ToolInfoFromFacts(url string, facts *PageFacts) ToolInfo {
	if facts == nil {
		return DefaultToolInfo(url)
	}
	info := ToolInfo{
		Title:       facts.Title,
		Description: facts.Description,
		URL:         url,
	}
	if info.Title == "" {
		info.Title = defaultToolTitle
	}
	return info
}

// ArticleState is the lifecycle state of an article file
type ArticleState int

const (
	StateDraft ArticleState = iota
	StateFinal
	StateProcessed
)

func (s ArticleState) String() string {
	switch s {
	case StateDraft:
		return "draft"
	case StateFinal:
		return "final"
	case StateProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether the lifecycle allows moving from s to next.
// The only allowed transition is final -> processed.
func (s ArticleState) CanTransition(next ArticleState) bool {
	return s == StateFinal && next == StateProcessed
}

// ArticleFile is an article on disk together with its lifecycle state
type ArticleFile struct {
	Path  string
	State ArticleState
}

// ID returns the base name, which is how the HTTP API refers to articles.
func (f ArticleFile) ID() string {
	return filepath.Base(f.Path)
}

// PublishResult tracks the outcome of publishing one final article
type PublishResult struct {
	Path          string
	Title         string
	PostID        *int64
	ProcessedPath string
	Error         error
	// Warning is set when the CMS accepted the post but the file could not
	// be moved to the processed directory.
	Warning error
}

// Success reports whether the CMS accepted the post.
func (r PublishResult) Success() bool {
	return r.Error == nil && r.PostID != nil
}

// RunSummary aggregates the results of a publish run
type RunSummary struct {
	SuccessCount int
	ErrorCount   int
	Results      []PublishResult
}

// Failed reports whether any item in the run failed.
func (s RunSummary) Failed() bool {
	return s.ErrorCount > 0
}

func (s *RunSummary) add(r PublishResult) {
	s.Results = append(s.Results, r)
	if r.Success() {
		s.SuccessCount++
	} else {
		s.ErrorCount++
	}
}
