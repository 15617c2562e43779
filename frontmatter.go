package main

import (
	"strings"
)

const frontMatterDelimiter = "---"

// recognizedKeys are emitted by Serialize, in this order.
var recognizedKeys = []string{"title", "description", "date", "category", "tags", "status"}

// FrontMatter is an ordered set of flat key/value pairs
type FrontMatter struct {
	keys   []string
	values map[string]string
}

// NewFrontMatter creates an empty front matter block
func NewFrontMatter() *FrontMatter {
	return &FrontMatter{values: make(map[string]string)}
}

// Set stores value under key, keeping the position of an existing key.
func (fm *FrontMatter) Set(key, value string) {
	if fm.values == nil {
		fm.values = make(map[string]string)
	}
	if _, ok := fm.values[key]; !ok {
		fm.keys = append(fm.keys, key)
	}
	fm.values[key] = value
}

// Get returns the value for key and whether it was present.
func (fm *FrontMatter) Get(key string) (string, bool) {
	v, ok := fm.values[key]
	return v, ok
}

// Value returns the value for key, or "" if absent.
func (fm *FrontMatter) Value(key string) string {
	return fm.values[key]
}

// Keys returns the keys in insertion order.
func (fm *FrontMatter) Keys() []string {
	return append([]string(nil), fm.keys...)
}

// Len returns the number of keys.
func (fm *FrontMatter) Len() int {
	return len(fm.keys)
}

// ParseFrontMatter splits text into front matter and body. Text that does
// not start with a delimiter line is all body. Lines without a colon are
// skipped; nested or multi-line values are not supported.
func ParseFrontMatter(text string) (*FrontMatter, string) {
	fm := NewFrontMatter()

	first, rest, found := strings.Cut(text, "\n")
	if strings.TrimRight(first, " \t\r") != frontMatterDelimiter {
		return fm, text
	}
	if !found {
		return fm, text
	}

	var header []string
	body, closed := "", false
	for rest != "" {
		line, next, _ := strings.Cut(rest, "\n")
		if strings.TrimRight(line, " \t\r") == frontMatterDelimiter {
			body, closed = next, true
			break
		}
		header = append(header, line)
		rest = next
	}
	if !closed {
		return NewFrontMatter(), text
	}

	for _, line := range header {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fm.Set(key, unquote(strings.TrimSpace(value)))
	}
	return fm, body
}

// SerializeFrontMatter renders the recognized keys and appends body.
// Keys outside the recognized set are not emitted.
func SerializeFrontMatter(fm *FrontMatter, body string) string {
	var sb strings.Builder
	sb.WriteString(frontMatterDelimiter + "\n")
	if fm != nil {
		for _, key := range recognizedKeys {
			value, ok := fm.Get(key)
			if !ok {
				continue
			}
			sb.WriteString(key + ": " + quoteIfNeeded(value) + "\n")
		}
	}
	sb.WriteString(frontMatterDelimiter + "\n")
	sb.WriteString(body)
	return sb.String()
}

func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == last && (first == '"' || first == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// quoteIfNeeded wraps values that would otherwise lose characters on parse.
func quoteIfNeeded(value string) string {
	if value == "" || value != strings.TrimSpace(value) {
		return `"` + value + `"`
	}
	if first := value[0]; first == '"' || first == '\'' {
		return `"` + value + `"`
	}
	return value
}

// splitList splits a comma separated front matter value, accepting the
// bracketed list form. Empty items are dropped.
func splitList(value string) []string {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "[")
	value = strings.TrimSuffix(value, "]")

	var items []string
	for _, item := range strings.Split(value, ",") {
		item = unquote(strings.TrimSpace(item))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
