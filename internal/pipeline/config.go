// =============================================================================
// config.go - パイプライン設定
// =============================================================================
//
// このファイルは設定の読み込み（viper）と検証を行います。
//
// 【設定グループ】
//   - SourceConfig:  一覧ページの取得設定
//   - DeepLConfig:   DeepL翻訳設定
//   - EmailConfig:   メール設定
//   - LoggingConfig: ログ設定
//   - MetricsConfig: メトリクス送信設定
//
// 【読み込み順】（後のものが優先）
//  1. setDefaults のデフォルト値
//  2. 設定ファイル（YAML、-config で指定した場合のみ）
//  3. 環境変数（キーの "." を "_" に置き換えた大文字名、プレフィックスなし）
//
// 例: deepl.api_key -> DEEPL_API_KEY, email.admin_to -> EMAIL_ADMIN_TO
//
// =============================================================================
package pipeline

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// 設定構造体
// =============================================================================

// Config はパイプラインの全設定を保持する
type Config struct {
	Source   SourceConfig  `mapstructure:"source"`
	DeepL    DeepLConfig   `mapstructure:"deepl"`
	Tags     TagLookup     `mapstructure:"tags"`
	Timezone string        `mapstructure:"timezone"`
	Email    EmailConfig   `mapstructure:"email"`
	Logging  LoggingConfig `mapstructure:"logging"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
}

// SourceConfig は一覧ページの取得に関する設定
type SourceConfig struct {
	// URL は新着情報一覧ページ
	URL string `mapstructure:"url"`

	// Origin は相対リンクを絶対URLにする際の基準
	Origin string `mapstructure:"origin"`

	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DeepLConfig はDeepL翻訳に関する設定
type DeepLConfig struct {
	// APIKey が空の場合、翻訳時に ErrMissingCredential になる
	APIKey string `mapstructure:"api_key"`

	// BaseURL はエンドポイントの上書き（空ならAPIキーから自動選択）
	BaseURL string `mapstructure:"base_url"`

	SourceLang  string        `mapstructure:"source_lang"`
	TargetLang  string        `mapstructure:"target_lang"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

// EmailConfig はメール送信の設定を保持する
type EmailConfig struct {
	From     string `mapstructure:"from"`     // 送信元メールアドレス
	Password string `mapstructure:"password"` // Gmailアプリパスワード
	To       string `mapstructure:"to"`       // 送信先（カンマ区切りで複数可）
	AdminTo  string `mapstructure:"admin_to"` // エラー通知先（空ならToに送る）
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort string `mapstructure:"smtp_port"`

	// SubjectPrefix は件名の先頭に付ける文字列（"[MEXT-NEWS]"）
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig はPushgatewayへのメトリクス送信設定
//
// PushgatewayURL が空なら送信しない。
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// =============================================================================
// デフォルト値
// =============================================================================

const (
	// DefaultSourceURL は文部科学省 新着情報一覧
	DefaultSourceURL = "https://www.mext.go.jp/b_menu/news/index.html"

	// DefaultSourceOrigin は文部科学省サイトのオリジン
	DefaultSourceOrigin = "https://www.mext.go.jp"

	// DefaultTimezone は対象日（前日）を決めるタイムゾーン
	DefaultTimezone = "Asia/Tokyo"

	// DefaultSubjectPrefix はメール件名の接頭辞
	DefaultSubjectPrefix = "[MEXT-NEWS]"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url", DefaultSourceURL)
	v.SetDefault("source.origin", DefaultSourceOrigin)
	v.SetDefault("source.user_agent", "mext-relay/1.0 (+https://www.mext.go.jp/b_menu/news/index.html)")
	v.SetDefault("source.timeout", 30*time.Second)

	v.SetDefault("deepl.api_key", "")
	v.SetDefault("deepl.base_url", "")
	v.SetDefault("deepl.source_lang", "JA")
	v.SetDefault("deepl.target_lang", "EN-US")
	v.SetDefault("deepl.timeout", 20*time.Second)
	v.SetDefault("deepl.concurrency", 4)

	v.SetDefault("timezone", DefaultTimezone)

	// 環境変数で上書きできるよう、空値でもキーを登録しておく
	v.SetDefault("email.from", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.to", "")
	v.SetDefault("email.admin_to", "")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", "587")
	v.SetDefault("email.subject_prefix", DefaultSubjectPrefix)

	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "mext_relay")
}

// =============================================================================
// 読み込み・検証
// =============================================================================

// LoadConfig は設定ファイル（任意）と環境変数からConfigを作成する
//
// pathが空の場合はデフォルト値と環境変数のみを使う。
// 設定ファイルの tags: はデフォルトのタグ表に追加・上書きされる。
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Tags = mergeTags(DefaultTagLookup(), cfg.Tags)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate は必須項目と値の範囲を検証する
//
// DeepLのAPIキーとメール設定はここでは検証しない（翻訳なし・メールなしの
// 実行があるため）。それぞれ使う時点でエラーになる。
func (c Config) Validate() error {
	if err := validateAbsURL("source.url", c.Source.URL); err != nil {
		return err
	}
	if err := validateAbsURL("source.origin", c.Source.Origin); err != nil {
		return err
	}
	if c.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be > 0")
	}
	if c.DeepL.SourceLang == "" || c.DeepL.TargetLang == "" {
		return fmt.Errorf("deepl.source_lang and deepl.target_lang must be set")
	}
	if c.DeepL.Timeout <= 0 {
		return fmt.Errorf("deepl.timeout must be > 0")
	}
	if c.DeepL.Concurrency <= 0 {
		return fmt.Errorf("deepl.concurrency must be > 0")
	}
	if c.DeepL.BaseURL != "" {
		if err := validateAbsURL("deepl.base_url", c.DeepL.BaseURL); err != nil {
			return err
		}
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// mergeTags はoverridesの内容をbaseに上書きしたタグ表を返す
func mergeTags(base, overrides TagLookup) TagLookup {
	out := make(TagLookup, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = v
		}
	}
	return out
}

func validateAbsURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return nil
}

// Location は対象日の計算に使うタイムゾーンを返す
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TranslatorConfig はDeepL設定とタグ表から翻訳設定を作る
func (c Config) TranslatorConfig() TranslatorConfig {
	return TranslatorConfig{
		SourceLang:  c.DeepL.SourceLang,
		TargetLang:  c.DeepL.TargetLang,
		Lookup:      c.Tags,
		Concurrency: c.DeepL.Concurrency,
	}
}
