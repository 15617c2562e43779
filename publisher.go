package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"
)

// PublishError records which stage failed for one file
type PublishError struct {
	Path  string
	Stage string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Publisher submits final articles to the CMS and archives them
type Publisher struct {
	store    *ArticleStore
	poster   Poster
	limiter  *rate.Limiter
	settings PublisherSettings
}

// NewPublisher creates a publisher. A non-positive rate disables pacing.
func NewPublisher(store *ArticleStore, poster Poster, settings PublisherSettings) *Publisher {
	limit := rate.Inf
	if settings.RequestsPerSecond > 0 {
		limit = rate.Limit(settings.RequestsPerSecond)
	}
	return &Publisher{
		store:    store,
		poster:   poster,
		limiter:  rate.NewLimiter(limit, 1),
		settings: settings,
	}
}

// Run publishes every final article once, one at a time. A failing file is
// recorded and left in place; it never stops the run.
func (p *Publisher) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary

	release, err := p.store.AcquirePublishLock(p.settings.LockTimeout)
	if err != nil {
		return summary, err
	}
	defer release()

	files, err := p.store.ListFinal()
	if err != nil {
		return summary, err
	}
	if len(files) == 0 {
		log.Printf("No new articles to publish")
		return summary, nil
	}

	log.Printf("Publishing %d articles...", len(files))
	for i, file := range files {
		log.Printf("[%d/%d] Processing: %s", i+1, len(files), file.Path)
		summary.add(p.Publish(ctx, file))
	}

	log.Printf("Publish results: %d succeeded, %d failed", summary.SuccessCount, summary.ErrorCount)
	return summary, nil
}

// PublishOne publishes a single final article while holding the run lock.
func (p *Publisher) PublishOne(ctx context.Context, file ArticleFile) (PublishResult, error) {
	release, err := p.store.AcquirePublishLock(p.settings.LockTimeout)
	if err != nil {
		return PublishResult{Path: file.Path}, err
	}
	defer release()

	return p.Publish(ctx, file), nil
}

// Publish submits one final article and archives it on success.
func (p *Publisher) Publish(ctx context.Context, file ArticleFile) PublishResult {
	result := PublishResult{Path: file.Path}

	post, err := p.BuildPost(file.Path)
	if err != nil {
		result.Error = err
		log.Printf("✗ Failed %s: %v", file.Path, err)
		return result
	}
	result.Title = post.Title

	if err := p.limiter.Wait(ctx); err != nil {
		result.Error = &PublishError{Path: file.Path, Stage: "waiting", Err: err}
		log.Printf("✗ Failed %s: %v", file.Path, err)
		return result
	}

	id, err := p.poster.NewPost(ctx, post)
	if err != nil {
		result.Error = &PublishError{Path: file.Path, Stage: "submitting", Err: err}
		log.Printf("✗ Failed %s: %v", file.Path, result.Error)
		return result
	}
	result.PostID = &id
	log.Printf("✓ Published: '%s' (ID: %d)", post.Title, id)

	moved, err := p.store.MarkProcessed(file)
	if err != nil {
		// Published remotely but still final locally; the next run would
		// submit it again.
		result.Warning = err
		log.Printf("Warning: %s was published as post %d but could not be archived: %v", file.Path, id, err)
		return result
	}
	result.ProcessedPath = moved.Path
	return result
}

// BuildPost parses an article file into a CMS post.
func (p *Publisher) BuildPost(path string) (*Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PublishError{Path: path, Stage: "reading", Err: err}
	}

	fm, body := ParseFrontMatter(string(data))
	body = strings.TrimSpace(body)

	html, err := renderMarkdown(body)
	if err != nil {
		return nil, &PublishError{Path: path, Stage: "rendering", Err: err}
	}

	post := &Post{
		Title:      articleTitle(fm, body, path),
		Content:    html,
		Status:     fm.Value("status"),
		Categories: splitList(fm.Value("categories")),
		Tags:       splitList(fm.Value("tags")),
	}
	if post.Status == "" {
		post.Status = p.settings.DefaultStatus
	}
	if len(post.Categories) == 0 {
		post.Categories = append([]string(nil), p.settings.DefaultCategories...)
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if desc := fm.Value("description"); desc != "" {
		post.CustomFields = []CustomField{{Key: "meta_description", Value: desc}}
	}
	return post, nil
}

// articleTitle picks the front matter title, then the first heading, then
// the file name.
func articleTitle(fm *FrontMatter, body, path string) string {
	if title := fm.Value("title"); title != "" {
		return title
	}
	if heading := firstHeading(body); heading != "" {
		return heading
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.ReplaceAll(name, "_", " ")
}
