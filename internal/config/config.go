// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/recency-check/internal/verify"
)

// Engine names accepted by Config.Engine.
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
	EngineHTTP     = "http"
)

// Mode names accepted by Config.Mode.
const (
	ModeBoth   = "both"
	ModeBatch  = "batch"
	ModeStream = "stream"
)

// Duration is a time.Duration that reads from JSON and YAML as "30s" style strings.
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(n)
	return nil
}

// UnmarshalYAML accepts either a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return err
		}
		*d = Duration(n)
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config represents the checker configuration that can be loaded from a JSON or YAML file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Target
	URL          string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`                           // Listing to check
	ResponseHost string `json:"response_host,omitempty" yaml:"response_host,omitempty"`                                // Substring identifying navigation responses
	ItemsToCheck int    `json:"items,omitempty" yaml:"items,omitempty" validate:"gte=0"`                               // Number of items to verify
	Engine       string `json:"engine,omitempty" yaml:"engine,omitempty" validate:"omitempty,oneof=chromedp rod http"` // Render engine
	Mode         string `json:"mode,omitempty" yaml:"mode,omitempty" validate:"omitempty,oneof=both batch stream"`     // Drivers to run

	// Page layout
	PageSize     int    `json:"page_size,omitempty" yaml:"page_size,omitempty" validate:"gte=0"`   // Items per page
	ItemTemplate string `json:"item_selector,omitempty" yaml:"item_selector,omitempty"`            // Selector template with {row}
	FirstRow     int    `json:"first_row,omitempty" yaml:"first_row,omitempty" validate:"gte=0"`   // Row of the first item
	RowStride    int    `json:"row_stride,omitempty" yaml:"row_stride,omitempty" validate:"gte=0"` // Rows per item
	NextSelector string `json:"next_selector,omitempty" yaml:"next_selector,omitempty"`            // "More" link

	// Behavior
	Headless          *bool    `json:"headless,omitempty" yaml:"headless,omitempty"`                     // Run the browser headless
	NavigationTimeout Duration `json:"navigation_timeout,omitempty" yaml:"navigation_timeout,omitempty"` // Bound on one navigation
	RemoteURL         string   `json:"remote_url,omitempty" yaml:"remote_url,omitempty"`                 // DevTools URL of a running Chrome (rod engine)
	Format            string   `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
	Verbose           bool     `json:"verbose,omitempty" yaml:"verbose,omitempty"` // Print debug logs
}

// Defaults returns the configuration for checking Hacker News /newest.
func Defaults() Config {
	layout := verify.HackerNewsLayout()
	headless := true
	return Config{
		URL:               "https://news.ycombinator.com/newest",
		ResponseHost:      "news.ycombinator.com",
		ItemsToCheck:      100,
		Engine:            EngineChromedp,
		Mode:              ModeBoth,
		PageSize:          layout.PageSize,
		ItemTemplate:      layout.ItemTemplate,
		FirstRow:          layout.FirstRow,
		RowStride:         layout.RowStride,
		NextSelector:      verify.HackerNewsNextSelector,
		Headless:          &headless,
		NavigationTimeout: Duration(30 * time.Second),
		Format:            "text",
	}
}

// LoadConfig loads configuration from a JSON file, or a YAML file when the
// extension is .yaml or .yml.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.ItemTemplate != "" && !strings.Contains(c.ItemTemplate, verify.RowPlaceholder) {
		return fmt.Errorf("config error: 'item_selector' must contain %s", verify.RowPlaceholder)
	}
	if c.NavigationTimeout < 0 {
		return fmt.Errorf("config error: 'navigation_timeout' must be non-negative")
	}
	if c.RemoteURL != "" && c.Engine != "" && c.Engine != EngineRod {
		return fmt.Errorf("config error: 'remote_url' is only supported by the rod engine")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.URL == "" {
		result.URL = defaults.URL
	}
	if result.ResponseHost == "" {
		result.ResponseHost = defaults.ResponseHost
	}
	if result.Engine == "" {
		result.Engine = defaults.Engine
	}
	if result.Mode == "" {
		result.Mode = defaults.Mode
	}
	if result.ItemTemplate == "" {
		result.ItemTemplate = defaults.ItemTemplate
	}
	if result.NextSelector == "" {
		result.NextSelector = defaults.NextSelector
	}
	if result.RemoteURL == "" {
		result.RemoteURL = defaults.RemoteURL
	}
	if result.Format == "" {
		result.Format = defaults.Format
	}

	// Int fields: use default if zero
	if result.ItemsToCheck == 0 {
		result.ItemsToCheck = defaults.ItemsToCheck
	}
	if result.PageSize == 0 {
		result.PageSize = defaults.PageSize
	}
	if result.FirstRow == 0 {
		result.FirstRow = defaults.FirstRow
	}
	if result.RowStride == 0 {
		result.RowStride = defaults.RowStride
	}
	if result.NavigationTimeout == 0 {
		result.NavigationTimeout = defaults.NavigationTimeout
	}

	// Headless is a pointer so an explicit false survives the merge.
	if result.Headless == nil {
		result.Headless = defaults.Headless
	}

	// Verbose cannot distinguish unset from false, so it is not merged
	// (CLI flags always win for bools)

	return result
}

// Layout returns the page layout described by the configuration.
func (c *Config) Layout() verify.Layout {
	return verify.Layout{
		ItemTemplate: c.ItemTemplate,
		FirstRow:     c.FirstRow,
		RowStride:    c.RowStride,
		PageSize:     c.PageSize,
	}
}

// IsHeadless reports the headless setting, defaulting to true.
func (c *Config) IsHeadless() bool {
	return c.Headless == nil || *c.Headless
}
