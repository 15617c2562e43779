package main

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxPrices          = 5
	maxFeatures        = 5
	featuresPerKeyword = 3
	maxExcerptChars    = 2000
)

// contentSelector is one entry of the main-content priority list. The first
// selector whose first match has text wins.
type contentSelector struct {
	name     string
	selector string
}

var contentSelectors = []contentSelector{
	{name: "main", selector: "main"},
	{name: "article", selector: "article"},
	{name: "content class", selector: ".content"},
	{name: "content id", selector: "#content"},
	{name: "post", selector: ".post"},
	{name: "entry content", selector: ".entry-content"},
	{name: "article content", selector: ".article-content"},
}

// priceRule is a declarative price pattern
type priceRule struct {
	currency string
	pattern  *regexp.Regexp
}

var priceRules = []priceRule{
	{currency: "USD", pattern: regexp.MustCompile(`(?i)\$\d+(?:\.\d{2})?(?:/month|/mo|/year|/yr)?`)},
	{currency: "JPY", pattern: regexp.MustCompile(`(?i)¥\d+(?:,\d{3})*`)},
	{currency: "EUR", pattern: regexp.MustCompile(`(?i)€\d+(?:\.\d{2})?`)},
	{currency: "free", pattern: regexp.MustCompile(`(?i)Free|無料|フリー`)},
}

// featureKeywords are tried in order; earlier keywords win the shared cap.
var featureKeywords = []string{"feature", "function", "機能", "特徴", "capability", "benefit"}

var featureRules = compileFeatureRules(featureKeywords)

func compileFeatureRules(keywords []string) []*regexp.Regexp {
	rules := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		rules = append(rules, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(kw)+`[^.]*\.`))
	}
	return rules
}

// normalizeWhitespace collapses Unicode whitespace runs to single spaces and trims.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// selectMainContent walks the selector list and falls back to the body.
// It returns the winning selection (nil when there is no body)
// and the name of the rule that matched.
func selectMainContent(doc *goquery.Document) (*goquery.Selection, string) {
	for _, cs := range contentSelectors {
		sel := doc.Find(cs.selector).First()
		if sel.Length() > 0 && sel.Text() != "" {
			return sel, cs.name
		}
	}
	body := doc.Find("body").First()
	if body.Length() > 0 {
		return body, "body"
	}
	return nil, ""
}

// extractPrices runs every price rule in order, deduplicates preserving
// first occurrence and caps the result.
func extractPrices(text string) []string {
	prices := []string{}
	seen := make(map[string]bool)
	for _, rule := range priceRules {
		for _, m := range rule.pattern.FindAllString(text, -1) {
			if seen[m] {
				continue
			}
			seen[m] = true
			prices = append(prices, m)
			if len(prices) == maxPrices {
				return prices
			}
		}
	}
	return prices
}

// extractFeatures collects up to three sentences per keyword and caps the
// combined list.
func extractFeatures(text string) []string {
	features := []string{}
	seen := make(map[string]bool)
	for _, rule := range featureRules {
		for _, m := range rule.FindAllString(text, featuresPerKeyword) {
			if seen[m] {
				continue
			}
			seen[m] = true
			features = append(features, m)
			if len(features) == maxFeatures {
				return features
			}
		}
	}
	return features
}

// truncateRunes cuts s to at most n characters.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
