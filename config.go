package main

import (
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".toolpress"

//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/writer-prompt.md
var defaultWriterPrompt string

//go:embed config/fallback-article.md
var defaultFallbackTemplate string

// ExtractorSettings configures page fetching
type ExtractorSettings struct {
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"user_agent"`
	MaxBodyBytes     int64         `yaml:"max_body_bytes"`
	MarkdownMaxChars int           `yaml:"markdown_max_chars"`
}

// SynthesizerSettings configures the generative backend
type SynthesizerSettings struct {
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	SourceMaxTokens int     `yaml:"source_max_tokens"`
	PromptPath      string  `yaml:"prompt_path"`
}

// PublisherSettings configures CMS publication
type PublisherSettings struct {
	DefaultCategories []string      `yaml:"default_categories"`
	DefaultStatus     string        `yaml:"default_status"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	LockTimeout       time.Duration `yaml:"lock_timeout"`
}

// ServerSettings configures the HTTP service
type ServerSettings struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Settings represents the YAML configuration structure
type Settings struct {
	ContentDirectory string              `yaml:"content_directory"`
	Extractor        ExtractorSettings   `yaml:"extractor"`
	Synthesizer      SynthesizerSettings `yaml:"synthesizer"`
	Publisher        PublisherSettings   `yaml:"publisher"`
	Server           ServerSettings      `yaml:"server"`
}

// Credentials holds secrets that only ever come from the environment
type Credentials struct {
	AnthropicAPIKey   string
	GeminiAPIKey      string
	WordPressURL      string
	WordPressUsername string
	WordPressPassword string
}

// ConfigError reports missing required configuration
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// CredentialsFromEnv reads credentials from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		WordPressURL:      strings.TrimRight(os.Getenv("WORDPRESS_URL"), "/"),
		WordPressUsername: os.Getenv("WORDPRESS_USERNAME"),
		WordPressPassword: os.Getenv("WORDPRESS_PASSWORD"),
	}
}

// RequireWordPress returns a ConfigError naming every missing CMS variable.
func (c Credentials) RequireWordPress() error {
	var missing []string
	if c.WordPressURL == "" {
		missing = append(missing, "WORDPRESS_URL")
	}
	if c.WordPressUsername == "" {
		missing = append(missing, "WORDPRESS_USERNAME")
	}
	if c.WordPressPassword == "" {
		missing = append(missing, "WORDPRESS_PASSWORD")
	}
	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// LoadSettings loads settings. An explicit path must exist; otherwise the
// default location is used and created from the embedded defaults on first run.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		if err := ensureConfigExists(); err != nil {
			return nil, fmt.Errorf("ensuring config files exist: %w", err)
		}
		path = filepath.Join(defaultConfigDir, "settings.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}

	settings, err := parseSettings(data)
	if err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	applyEnvOverrides(settings)
	return settings, nil
}

// parseSettings decodes YAML on top of the embedded defaults so a partial
// file only overrides what it names.
func parseSettings(data []byte) (*Settings, error) {
	var settings Settings
	if err := yaml.Unmarshal([]byte(defaultSettings), &settings); err != nil {
		return nil, fmt.Errorf("embedded settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, err
	}

	if settings.ContentDirectory == "" {
		settings.ContentDirectory = "content"
	}
	if settings.Extractor.Timeout <= 0 {
		log.Printf("Warning: extractor.timeout is %v, defaulting to 30s", settings.Extractor.Timeout)
		settings.Extractor.Timeout = 30 * time.Second
	}
	if settings.Publisher.DefaultStatus == "" {
		settings.Publisher.DefaultStatus = "draft"
	}
	if len(settings.Publisher.DefaultCategories) == 0 {
		settings.Publisher.DefaultCategories = []string{"AI Tools"}
	}
	if settings.Server.Port == 0 {
		settings.Server.Port = 5050
	}
	return &settings, nil
}

func applyEnvOverrides(settings *Settings) {
	if v := os.Getenv("BACKEND_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: ignoring invalid BACKEND_PORT %q", v)
			return
		}
		settings.Server.Port = port
	}
}

// WriterPrompt returns the prompt template (from override file or embedded).
func (s *Settings) WriterPrompt() (string, error) {
	if s.Synthesizer.PromptPath == "" {
		return defaultWriterPrompt, nil
	}
	data, err := os.ReadFile(s.Synthesizer.PromptPath)
	if err != nil {
		return "", fmt.Errorf("reading prompt %s: %w", s.Synthesizer.PromptPath, err)
	}
	return string(data), nil
}

// ensureConfigExists creates the config directory and default settings if needed
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := filepath.Join(defaultConfigDir, "settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}
	return nil
}
