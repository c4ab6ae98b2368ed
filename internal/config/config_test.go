package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"url": "https://news.ycombinator.com/newest",
		"items": 60,
		"engine": "rod",
		"mode": "stream",
		"headless": false,
		"navigation_timeout": "45s",
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://news.ycombinator.com/newest", cfg.URL)
	assert.Equal(t, 60, cfg.ItemsToCheck)
	assert.Equal(t, EngineRod, cfg.Engine)
	assert.Equal(t, ModeStream, cfg.Mode)
	require.NotNil(t, cfg.Headless)
	assert.False(t, *cfg.Headless)
	assert.Equal(t, Duration(45*time.Second), cfg.NavigationTimeout)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	content := `
url: https://news.ycombinator.com/newest
items: 45
engine: http
mode: batch
headless: false
navigation_timeout: 10s
next_selector: "a.morelink"
`

	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, 45, cfg.ItemsToCheck)
	assert.Equal(t, EngineHTTP, cfg.Engine)
	assert.Equal(t, ModeBatch, cfg.Mode)
	assert.Equal(t, "a.morelink", cfg.NextSelector)
	assert.False(t, cfg.IsHeadless())
	assert.Equal(t, Duration(10*time.Second), cfg.NavigationTimeout)
}

func TestLoadConfig_LayoutAndBehaviorFields(t *testing.T) {
	content := `
page_size: 25
item_selector: "li:nth-child({row}) .age"
first_row: 2
row_stride: 1
next_selector: "a.next"
remote_url: ws://127.0.0.1:9222
engine: rod
format: json
`

	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, "li:nth-child({row}) .age", cfg.ItemTemplate)
	assert.Equal(t, 2, cfg.FirstRow)
	assert.Equal(t, 1, cfg.RowStride)
	assert.Equal(t, "a.next", cfg.NextSelector)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.RemoteURL)
	assert.Equal(t, "json", cfg.Format)

	merged := cfg.MergeWithDefaults(Defaults())
	layout := merged.Layout()
	assert.Equal(t, "li:nth-child(5) .age", layout.ItemSelector(3))
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("navigation_timeout: [1, 2"), 0644))

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config YAML")
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_BadDuration(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(tmpFile, []byte(`{"navigation_timeout": "soon"}`), 0644))

	_, err := LoadConfig(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		contains string
	}{
		{"unknown engine", Config{Engine: "selenium"}, "Engine"},
		{"unknown mode", Config{Mode: "parallel"}, "Mode"},
		{"bad url", Config{URL: "not a url"}, "URL"},
		{"negative items", Config{ItemsToCheck: -1}, "ItemsToCheck"},
		{"negative page size", Config{PageSize: -3}, "PageSize"},
		{"bad format", Config{Format: "xml"}, "Format"},
		{"template without row", Config{ItemTemplate: "span.age"}, "{row}"},
		{"negative timeout", Config{NavigationTimeout: Duration(-time.Second)}, "navigation_timeout"},
		{"remote url on chromedp", Config{Engine: EngineChromedp, RemoteURL: "ws://127.0.0.1:9222"}, "remote_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Defaults()
	headless := false

	partial := Config{
		URL:          "https://example.com/new",
		ItemsToCheck: 10,
		Headless:     &headless,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "https://example.com/new", merged.URL)
	assert.Equal(t, 10, merged.ItemsToCheck)
	assert.False(t, merged.IsHeadless())

	// Default values should fill in empty fields
	assert.Equal(t, EngineChromedp, merged.Engine)
	assert.Equal(t, ModeBoth, merged.Mode)
	assert.Equal(t, 30, merged.PageSize)
	assert.Equal(t, "news.ycombinator.com", merged.ResponseHost)
	assert.Equal(t, Duration(30*time.Second), merged.NavigationTimeout)
}

func TestMergeWithDefaults_EmptyDefaults(t *testing.T) {
	cfg := Config{Engine: EngineHTTP}

	merged := cfg.MergeWithDefaults(Config{})

	assert.Equal(t, EngineHTTP, merged.Engine)
	assert.Empty(t, merged.URL)
	assert.True(t, merged.IsHeadless())
}

func TestLayout_FromConfig(t *testing.T) {
	cfg := Defaults()
	cfg.PageSize = 10
	layout := cfg.Layout()

	assert.Equal(t, 10, layout.PageSize)
	assert.Contains(t, layout.ItemSelector(1), "tr:nth-child(5)")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("RECENCY_URL", "https://example.com/list")
	t.Setenv("RECENCY_ITEMS", "45")
	t.Setenv("RECENCY_ENGINE", "http")
	t.Setenv("RECENCY_NAV_TIMEOUT", "5s")
	t.Setenv("RECENCY_HEADLESS", "false")
	t.Setenv("RECENCY_PAGE_SIZE", "not-a-number")

	cfg := FromEnv()

	assert.Equal(t, "https://example.com/list", cfg.URL)
	assert.Equal(t, 45, cfg.ItemsToCheck)
	assert.Equal(t, EngineHTTP, cfg.Engine)
	assert.Equal(t, Duration(5*time.Second), cfg.NavigationTimeout)
	require.NotNil(t, cfg.Headless)
	assert.False(t, *cfg.Headless)
	assert.Zero(t, cfg.PageSize)
}

func TestFromEnv_Unset(t *testing.T) {
	cfg := FromEnv()
	assert.Nil(t, cfg.Headless)
	assert.Zero(t, cfg.ItemsToCheck)
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := Duration(90 * time.Second).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))

	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, Duration(time.Second), d)
}
