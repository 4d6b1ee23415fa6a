package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig は環境変数に依存しない既定の設定
func testConfig() Config {
	return Config{
		Source: SourceConfig{
			URL:       DefaultSourceURL,
			Origin:    DefaultSourceOrigin,
			UserAgent: "mext-relay-test",
			Timeout:   5 * time.Second,
		},
		DeepL: DeepLConfig{
			SourceLang:  "JA",
			TargetLang:  "EN-US",
			Timeout:     5 * time.Second,
			Concurrency: 2,
		},
		Tags:     DefaultTagLookup(),
		Timezone: DefaultTimezone,
		Email: EmailConfig{
			SMTPHost:      "smtp.gmail.com",
			SMTPPort:      "587",
			SubjectPrefix: DefaultSubjectPrefix,
		},
		Metrics: MetricsConfig{Job: "mext_relay"},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DEEPL_API_KEY", "")
	t.Setenv("TIMEZONE", "")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceURL, cfg.Source.URL)
	assert.Equal(t, DefaultSourceOrigin, cfg.Source.Origin)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "JA", cfg.DeepL.SourceLang)
	assert.Equal(t, "EN-US", cfg.DeepL.TargetLang)
	assert.Equal(t, 4, cfg.DeepL.Concurrency)
	assert.Equal(t, DefaultTagLookup(), cfg.Tags)
	assert.Equal(t, "[MEXT-NEWS]", cfg.Email.SubjectPrefix)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.SMTPHost)
	assert.Equal(t, "mext_relay", cfg.Metrics.Job)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("DEEPL_API_KEY", "0000:fx")
	t.Setenv("DEEPL_CONCURRENCY", "1")
	t.Setenv("SOURCE_TIMEOUT", "5s")
	t.Setenv("EMAIL_FROM", "relay@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com")
	t.Setenv("EMAIL_ADMIN_TO", "admin@example.com")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0000:fx", cfg.DeepL.APIKey)
	assert.Equal(t, 1, cfg.DeepL.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "relay@example.com", cfg.Email.From)
	assert.Equal(t, "app-password", cfg.Email.Password)
	assert.Equal(t, "a@example.com, b@example.com", cfg.Email.To)
	assert.Equal(t, "admin@example.com", cfg.Email.AdminTo)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("DEEPL_API_KEY", "")
	t.Setenv("TIMEZONE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
source:
  url: https://example.com/news/index.html
  origin: https://example.com
  timeout: 10s
deepl:
  base_url: http://localhost:9000
  concurrency: 8
tags:
  税制等: Taxation
  教育: School Education
logging:
  development: true
metrics:
  pushgateway_url: http://localhost:9091
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/news/index.html", cfg.Source.URL)
	assert.Equal(t, "https://example.com", cfg.Source.Origin)
	assert.Equal(t, 10*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "http://localhost:9000", cfg.DeepL.BaseURL)
	assert.Equal(t, 8, cfg.DeepL.Concurrency)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "http://localhost:9091", cfg.Metrics.PushgatewayURL)

	// 既定のタグ表に追加・上書きされる
	assert.Equal(t, "Taxation", cfg.Tags["税制等"])
	assert.Equal(t, "School Education", cfg.Tags["教育"])
	assert.Equal(t, "Press Release", cfg.Tags["報道発表"])
	assert.Len(t, cfg.Tags, len(DefaultTagLookup())+1)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, testConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"relative source url", func(c *Config) { c.Source.URL = "/b_menu/news/index.html" }},
		{"empty origin", func(c *Config) { c.Source.Origin = "" }},
		{"zero source timeout", func(c *Config) { c.Source.Timeout = 0 }},
		{"empty target lang", func(c *Config) { c.DeepL.TargetLang = "" }},
		{"zero deepl timeout", func(c *Config) { c.DeepL.Timeout = 0 }},
		{"zero concurrency", func(c *Config) { c.DeepL.Concurrency = 0 }},
		{"bad base url", func(c *Config) { c.DeepL.BaseURL = "localhost" }},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigLocation(t *testing.T) {
	t.Parallel()

	loc, err := testConfig().Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestConfigTranslatorConfig(t *testing.T) {
	t.Parallel()

	tc := testConfig().TranslatorConfig()
	assert.Equal(t, "JA", tc.SourceLang)
	assert.Equal(t, "EN-US", tc.TargetLang)
	assert.Equal(t, 2, tc.Concurrency)
	assert.Equal(t, DefaultTagLookup(), tc.Lookup)
}

func TestMergeTags(t *testing.T) {
	t.Parallel()

	got := mergeTags(TagLookup{"a": "A", "b": "B"}, TagLookup{"b": "BB", " c ": "C", "  ": "blank"})
	assert.Equal(t, TagLookup{"a": "A", "b": "BB", "c": "C"}, got)
}
