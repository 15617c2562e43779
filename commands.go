package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// fetchErrorReport is printed by fetch when extraction fails
type fetchErrorReport struct {
	Error       string    `json:"error"`
	URL         string    `json:"url"`
	ExtractedAt time.Time `json:"extracted_at"`
}

func newSynthesizer(ctx context.Context, settings *Settings, creds Credentials) (*Synthesizer, error) {
	backend, err := NewBackend(ctx, settings.Synthesizer, creds)
	if err != nil {
		return nil, err
	}
	prompt, err := settings.WriterPrompt()
	if err != nil {
		return nil, err
	}
	return NewSynthesizer(backend, prompt, settings.Synthesizer.SourceMaxTokens)
}

func newGenerator(ctx context.Context, settings *Settings, creds Credentials) (*Generator, *ArticleStore, error) {
	synthesizer, err := newSynthesizer(ctx, settings, creds)
	if err != nil {
		return nil, nil, fmt.Errorf("creating synthesizer: %w", err)
	}
	store := NewArticleStore(settings.ContentDirectory)
	return NewGenerator(NewExtractor(settings.Extractor), synthesizer, store), store, nil
}

// publisherFactory returns a constructor that fails with a ConfigError
// while CMS credentials are missing.
func publisherFactory(settings *Settings, creds Credentials, store *ArticleStore) func() (*Publisher, error) {
	return func() (*Publisher, error) {
		if err := creds.RequireWordPress(); err != nil {
			return nil, err
		}
		client := NewWordPressClient(creds.WordPressURL, creds.WordPressUsername, creds.WordPressPassword)
		return NewPublisher(store, client, settings.Publisher), nil
	}
}

func runGenerate(ctx context.Context, out io.Writer, req GenerateRequest) error {
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	generator, _, err := newGenerator(ctx, settings, CredentialsFromEnv())
	if err != nil {
		return err
	}

	log.Printf("Generating article: url=%s keyword=%s category=%s target=%d",
		req.URL, req.Keyword, req.Category, req.TargetLength)

	result, err := generator.Generate(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "File: %s\n", result.Path)
	fmt.Fprintf(out, "Length: %d characters\n", len([]rune(result.Content)))
	return nil
}

func runFetch(ctx context.Context, out io.Writer, url string) error {
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	extractor := NewExtractor(settings.Extractor)
	facts, extractErr := extractor.Extract(ctx, url)

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if extractErr != nil {
		if err := enc.Encode(fetchErrorReport{Error: extractErr.Error(), URL: url, ExtractedAt: time.Now()}); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		return extractErr
	}
	if err := enc.Encode(facts); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func runPublish(ctx context.Context, out, errOut io.Writer) error {
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	creds := CredentialsFromEnv()
	store := NewArticleStore(settings.ContentDirectory)
	publisher, err := publisherFactory(settings, creds, store)()
	if err != nil {
		var configErr *ConfigError
		if errors.As(err, &configErr) {
			fmt.Fprintln(errOut, "WordPress credentials are not configured. Set these environment variables:")
			for _, name := range configErr.Missing {
				fmt.Fprintf(errOut, "- %s\n", name)
			}
		}
		return err
	}

	summary, err := publisher.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Results:\n")
	fmt.Fprintf(out, "  Succeeded: %d\n", summary.SuccessCount)
	fmt.Fprintf(out, "  Failed: %d\n", summary.ErrorCount)
	for _, r := range summary.Results {
		if r.Warning != nil {
			fmt.Fprintf(errOut, "Warning: %s: %v\n", r.Path, r.Warning)
		}
	}

	if summary.Failed() {
		return fmt.Errorf("%d of %d articles failed to publish", summary.ErrorCount, len(summary.Results))
	}
	return nil
}

func runServe(ctx context.Context, port int) error {
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	if port > 0 {
		settings.Server.Port = port
	}

	creds := CredentialsFromEnv()
	generator, store, err := newGenerator(ctx, settings, creds)
	if err != nil {
		return err
	}

	server := NewAPIServer(generator, store, publisherFactory(settings, creds, store), settings.Server)
	return server.Run()
}
