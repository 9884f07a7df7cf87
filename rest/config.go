package rest

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/vitalvas/restdoc/openapi"
	"gopkg.in/yaml.v3"
)

const (
	defaultDocsPath = "/openapi.json"
	defaultYAMLPath = "/openapi.yaml"

	// defaultMaxBodyBytes bounds request bodies read for validation.
	defaultMaxBodyBytes = 1 << 20

	// docsMaxAge is the CORS preflight cache duration of the docs endpoints.
	docsMaxAge = 21600
)

// Config holds the application settings. Zero values select the defaults.
type Config struct {
	// Title of the API (default "OpenApi Rest Documentation").
	Title string `yaml:"title" json:"title"`

	// Contact name. The contact block is documented only together with
	// ContactURL or ContactEmail.
	Contact      string `yaml:"contact" json:"contact"`
	ContactURL   string `yaml:"contact_url" json:"contact_url"`
	ContactEmail string `yaml:"contact_email" json:"contact_email"`

	// Version of the API (default "1.0").
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description" json:"description"`

	// ValidateByDefault enforces expected bodies for methods that never set
	// a validate flag. Nil means true.
	ValidateByDefault *bool `yaml:"validate_by_default" json:"validate_by_default"`

	// BaseModelSchema is a JSON or YAML file whose components seed the
	// document and resolve validator references.
	BaseModelSchema string `yaml:"base_model_schema" json:"base_model_schema"`

	// ServerName and the URL scheme build the single server entry.
	ServerName         string `yaml:"server_name" json:"server_name"`
	PreferredURLScheme string `yaml:"preferred_url_scheme" json:"preferred_url_scheme"`
	PreferSecureURLs   bool   `yaml:"prefer_secure_urls" json:"prefer_secure_urls"`

	// DocsPath serves the JSON document (default "/openapi.json").
	DocsPath string `yaml:"docs_path" json:"docs_path"`

	// YAMLPath serves the YAML document (default "/openapi.yaml"). Set to
	// "-" to disable.
	YAMLPath string `yaml:"yaml_path" json:"yaml_path"`

	// DocsUIPath serves a Swagger UI page when set.
	DocsUIPath string `yaml:"docs_ui_path" json:"docs_ui_path"`

	// MaxBodyBytes limits the request body read for validation (default
	// 1 MiB). Larger bodies are rejected with 413.
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes"`

	// DisableDocs disables every documentation endpoint.
	DisableDocs bool `yaml:"disable_docs" json:"disable_docs"`
}

// LoadConfig reads a YAML (or JSON) configuration file.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

func (c Config) validateByDefault() bool {
	if c.ValidateByDefault == nil {
		return true
	}
	return *c.ValidateByDefault
}

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

func (c Config) docsPath() string {
	if c.DocsPath == "" {
		return defaultDocsPath
	}
	return c.DocsPath
}

func (c Config) yamlPath() string {
	switch c.YAMLPath {
	case "":
		return defaultYAMLPath
	case "-":
		return ""
	}
	return c.YAMLPath
}

// serverURL returns "{scheme}://{server_name}".
func (c Config) serverURL() string {
	scheme := c.PreferredURLScheme
	if scheme == "" {
		scheme = "http"
		if c.PreferSecureURLs {
			scheme = "https"
		}
	}
	return scheme + "://" + c.ServerName
}

func (c Config) info() openapi.Info {
	info := openapi.Info{
		Title:       c.Title,
		Description: c.Description,
		Version:     c.Version,
	}
	if c.Contact != "" {
		info.Contact = &openapi.Contact{
			Name:  c.Contact,
			URL:   c.ContactURL,
			Email: c.ContactEmail,
		}
	}
	return info
}

// Option configures an App.
type Option func(o *options)

type options struct {
	logger    *slog.Logger
	metrics   *Metrics
	baseModel any
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics records request, validation and document build metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBaseModel uses a prepared resolver as the base model, taking
// precedence over Config.BaseModelSchema.
func WithBaseModel(resolver *openapi.Resolver) Option {
	return func(o *options) { o.baseModel = resolver }
}

// WithBaseModelMap uses an in-memory document as the base model.
func WithBaseModelMap(doc map[string]any) Option {
	return func(o *options) { o.baseModel = doc }
}
