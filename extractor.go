package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// ExtractionErrorKind distinguishes transport failures from everything else
type ExtractionErrorKind string

const (
	KindHTTPError    ExtractionErrorKind = "HTTP Error"
	KindGeneralError ExtractionErrorKind = "General Error"
)

// ExtractionError is the typed failure channel of the Extractor
type ExtractionError struct {
	Kind       ExtractionErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// HTTPStatusError represents a non-2xx response
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// Extractor fetches a page and derives PageFacts from it
type Extractor struct {
	client           *http.Client
	userAgent        string
	maxBodyBytes     int64
	markdownMaxChars int
	converter        *md.Converter
	now              func() time.Time
}

// NewExtractor creates an extractor from settings
func NewExtractor(settings ExtractorSettings) *Extractor {
	return &Extractor{
		client:           &http.Client{Timeout: settings.Timeout},
		userAgent:        settings.UserAgent,
		maxBodyBytes:     settings.MaxBodyBytes,
		markdownMaxChars: settings.MarkdownMaxChars,
		converter:        md.NewConverter("", true, nil),
		now:              time.Now,
	}
}

// Extract fetches rawURL and returns its facts. It never panics: anything
// unexpected after the response arrives is reported as a general error.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (facts *PageFacts, err error) {
	debugLog("extracting %s", rawURL)

	body, contentType, err := e.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			facts = nil
			err = &ExtractionError{Kind: KindGeneralError, URL: rawURL, Err: fmt.Errorf("%v", r)}
		}
	}()

	facts, err = e.parse(rawURL, body, contentType)
	if err != nil {
		return nil, &ExtractionError{Kind: KindGeneralError, URL: rawURL, Err: err}
	}
	return facts, nil
}

func (e *Extractor) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &ExtractionError{Kind: KindHTTPError, URL: rawURL, Err: fmt.Errorf("creating request: %w", err)}
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", &ExtractionError{Kind: KindHTTPError, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &ExtractionError{
			Kind:       KindHTTPError,
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        &HTTPStatusError{StatusCode: resp.StatusCode, URL: rawURL},
		}
	}

	var reader io.Reader = resp.Body
	if e.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, e.maxBodyBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", &ExtractionError{Kind: KindHTTPError, URL: rawURL, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if e.maxBodyBytes > 0 && int64(len(body)) > e.maxBodyBytes {
		return nil, "", &ExtractionError{Kind: KindHTTPError, URL: rawURL, Err: fmt.Errorf("response body exceeds %d bytes", e.maxBodyBytes)}
	}

	debugLog("fetched %s: status=%d bytes=%d", rawURL, resp.StatusCode, len(body))
	return body, resp.Header.Get("Content-Type"), nil
}

// parse derives PageFacts from an already fetched body.
func (e *Extractor) parse(rawURL string, body []byte, contentType string) (*PageFacts, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	description, _ := doc.Find(`meta[name="description"]`).First().Attr("content")

	var content, markdown string
	sel, rule := selectMainContent(doc)
	if sel != nil {
		content = normalizeWhitespace(sel.Text())
		if e.converter != nil {
			markdown = truncateRunes(strings.TrimSpace(e.converter.Convert(sel)), e.markdownMaxChars)
		}
	}
	debugLog("main content of %s from %q (%d chars)", rawURL, rule, len(content))

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}

	return &PageFacts{
		URL:            rawURL,
		Title:          title,
		Description:    description,
		ContentExcerpt: truncateRunes(content, maxExcerptChars),
		Prices:         extractPrices(content),
		Features:       extractFeatures(content),
		ExtractedAt:    e.now(),
		Domain:         parsed.Host,
		Markdown:       markdown,
	}, nil
}
