package respond

import (
	"errors"
	"fmt"
	"strings"
)

// Content types produced by the formatter.
const (
	ContentTypeJSON       = "application/json"
	ContentTypeNDJSON     = "application/x-ndjson"
	ContentTypeJSONL      = "application/x-jsonl"
	ContentTypeJSONDashL  = "application/json-l"
	ContentTypeJavaScript = "application/javascript"
)

// CallbackConfig controls how a callback-capable decorator finds and applies
// the callback name.
type CallbackConfig struct {
	// QueryCallbacks lists query parameter names searched in order. The first
	// one present with a non-empty value wins.
	QueryCallbacks []string `yaml:"query_callbacks"`

	// Optional makes a missing callback fall back to a plain rendering instead
	// of a 400.
	Optional bool `yaml:"optional"`

	// ContentType is set on callback-wrapped responses.
	ContentType string `yaml:"content_type"`
}

// Config holds the formatter options. It is copied into the Formatter and
// never mutated afterwards.
type Config struct {
	// AddStatus injects StatusField into mapping payloads rendered as JSON.
	AddStatus bool `yaml:"add_status"`

	// AddRecordStatus injects StatusField into every mapping record of an
	// ndjson body.
	AddRecordStatus bool `yaml:"add_record_status"`

	// StatusField is the name of the injected status field.
	StatusField string `yaml:"status_field"`

	// PrettyPrint indents plain JSON bodies. Callback and ndjson bodies stay compact.
	PrettyPrint bool `yaml:"pretty_print"`

	// StringQuotes JSON-quotes string payloads passed to a JSONP callback.
	// When false the string is inserted as-is: the callback name is still
	// validated but the argument is not, so a view returning untrusted text
	// can inject script into the response.
	StringQuotes bool `yaml:"string_quotes"`

	JSONContentType   string `yaml:"json_content_type"`
	NDJSONContentType string `yaml:"ndjson_content_type"`

	JSONP CallbackConfig `yaml:"jsonp"`
	JSONL CallbackConfig `yaml:"jsonl"`
}

// DefaultConfig returns a Config populated with the usual defaults.
func DefaultConfig() Config {
	return Config{
		AddStatus:         true,
		AddRecordStatus:   false,
		StatusField:       "status",
		PrettyPrint:       false,
		StringQuotes:      true,
		JSONContentType:   ContentTypeJSON,
		NDJSONContentType: ContentTypeNDJSON,
		JSONP: CallbackConfig{
			QueryCallbacks: []string{"callback", "jsonp"},
			Optional:       true,
			ContentType:    ContentTypeJavaScript,
		},
		JSONL: CallbackConfig{
			QueryCallbacks: []string{"callback", "jsonl"},
			Optional:       true,
			ContentType:    ContentTypeNDJSON,
		},
	}
}

var ndjsonTypes = map[string]bool{
	ContentTypeNDJSON:    true,
	ContentTypeJSONL:     true,
	ContentTypeJSONDashL: true,
}

// Validate reports the first invalid option.
func (c Config) Validate() error {
	if strings.TrimSpace(c.StatusField) == "" {
		return errors.New("status field name is required")
	}
	if c.JSONContentType == "" {
		return errors.New("json content type is required")
	}
	if !ndjsonTypes[c.NDJSONContentType] {
		return fmt.Errorf("unsupported ndjson content type %q", c.NDJSONContentType)
	}
	if err := c.JSONP.validate(); err != nil {
		return fmt.Errorf("jsonp: %w", err)
	}
	if err := c.JSONL.validate(); err != nil {
		return fmt.Errorf("jsonl: %w", err)
	}
	return nil
}

func (c CallbackConfig) validate() error {
	if len(c.QueryCallbacks) == 0 && !c.Optional {
		return errors.New("at least one callback name is required unless the callback is optional")
	}
	for _, n := range c.QueryCallbacks {
		if strings.TrimSpace(n) == "" {
			return errors.New("empty callback name")
		}
	}
	if c.ContentType == "" {
		return errors.New("callback content type is required")
	}
	return nil
}

func (c Config) clone() Config {
	out := c
	out.JSONP.QueryCallbacks = append([]string(nil), c.JSONP.QueryCallbacks...)
	out.JSONL.QueryCallbacks = append([]string(nil), c.JSONL.QueryCallbacks...)
	return out
}

// Option overrides Config for a single decorated view. cb points at the
// callback section the decorator uses.
type Option func(cfg *Config, cb *CallbackConfig)

// WithCallbacks replaces the callback query parameter names.
func WithCallbacks(names ...string) Option {
	return func(_ *Config, cb *CallbackConfig) {
		cb.QueryCallbacks = append([]string(nil), names...)
	}
}

// WithOptional sets whether the callback may be omitted.
func WithOptional(optional bool) Option {
	return func(_ *Config, cb *CallbackConfig) {
		cb.Optional = optional
	}
}

// WithAddStatus toggles status injection for mapping payloads.
func WithAddStatus(add bool) Option {
	return func(cfg *Config, _ *CallbackConfig) {
		cfg.AddStatus = add
	}
}

// WithRecordStatus toggles status injection for ndjson records.
func WithRecordStatus(add bool) Option {
	return func(cfg *Config, _ *CallbackConfig) {
		cfg.AddRecordStatus = add
	}
}

// WithPrettyPrint toggles indentation of plain JSON bodies.
func WithPrettyPrint(pretty bool) Option {
	return func(cfg *Config, _ *CallbackConfig) {
		cfg.PrettyPrint = pretty
	}
}
