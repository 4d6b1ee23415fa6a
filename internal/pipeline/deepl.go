// =============================================================================
// deepl.go - DeepL API クライアント
// =============================================================================
//
// DeepL API（/v2/translate）でテキストを翻訳します。
//
// =============================================================================
// 【エンドポイントの選択】
// =============================================================================
//
// APIキーの末尾で無料版・有料版を判別する:
//
//	"xxxxxxxx:fx" -> https://api-free.deepl.com （無料版）
//	それ以外      -> https://api.deepl.com      （Pro版）
//
// テスト用に deepl.base_url で上書きできる。
//
// =============================================================================
// 【リクエスト / レスポンス】
// =============================================================================
//
//	POST /v2/translate
//	Authorization: DeepL-Auth-Key <APIキー>
//	Content-Type: application/x-www-form-urlencoded
//
//	text=...&source_lang=JA&target_lang=EN-US
//
//	{"translations":[{"detected_source_language":"JA","text":"..."}]}
//
// 失敗（非2xx、JSON不正、translationsが空）はすべて *TranslationError。
// APIキー未設定は ErrMissingCredential（HTTPリクエストは送らない）。
//
// =============================================================================
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	deeplFreeBaseURL = "https://api-free.deepl.com"
	deeplProBaseURL  = "https://api.deepl.com"
	deeplFreeSuffix  = ":fx"
	deeplPath        = "/v2/translate"

	// deeplMaxResponseBytes はレスポンスボディの読み込み上限
	deeplMaxResponseBytes = 1 << 20
)

// DeepLClient はDeepL APIを呼び出すRemoteTranslator
type DeepLClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewDeepLClient は新しいDeepLクライアントを作成する
//
// cfg.BaseURLが空の場合はAPIキーからエンドポイントを決める。
// APIキーが空でも作成はできる（翻訳時にErrMissingCredentialを返す）。
func NewDeepLClient(cfg DeepLConfig, client *http.Client) *DeepLClient {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &DeepLClient{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

// endpoint は翻訳APIのURLを返す
func (c *DeepLClient) endpoint() string {
	base := c.baseURL
	if base == "" {
		base = deeplBaseURLForKey(c.apiKey)
	}
	return base + deeplPath
}

// deeplBaseURLForKey はAPIキーの末尾（":fx"）から無料版・Pro版を選ぶ
func deeplBaseURLForKey(apiKey string) string {
	if strings.HasSuffix(apiKey, deeplFreeSuffix) {
		return deeplFreeBaseURL
	}
	return deeplProBaseURL
}

// deeplResponse は /v2/translate のレスポンス
type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate はtextをsourceLangからtargetLangへ翻訳する
func (c *DeepLClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingCredential
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("source_lang", sourceLang)
	form.Set("target_lang", targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &TranslationError{Text: text, Err: fmt.Errorf("request creation failed: %w", err)}
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &TranslationError{Text: text, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, deeplMaxResponseBytes))
	if err != nil {
		return "", &TranslationError{Text: text, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TranslationError{
			Text:       text,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("deepl error: %s %s", resp.Status, truncateString(strings.TrimSpace(string(body)), 200)),
		}
	}

	var r deeplResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return "", &TranslationError{Text: text, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse deepl response: %w", err)}
	}
	if len(r.Translations) == 0 {
		return "", &TranslationError{Text: text, StatusCode: resp.StatusCode, Err: errors.New("deepl response has no translations")}
	}
	return r.Translations[0].Text, nil
}
