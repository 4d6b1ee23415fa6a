// =============================================================================
// fetch.go - 一覧ページの取得
// =============================================================================
//
// 新着情報一覧ページをHTTP GETで取得します。取得処理は PageFetcher
// インターフェースで抽象化しており、テストやローカルHTMLファイル（-html）
// から読み込む場合は差し替えられます。
//
// 【実装】
//   - CollyFetcher: gocolly/colly/v2 のコレクタを使った本番用の取得
//   - FileFetcher:  ローカルファイルから読み込む（オフライン検証用）
//
// =============================================================================
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// PageFetcher は一覧ページのHTMLを取得する
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// -----------------------------------------------------------------------------
// CollyFetcher
// -----------------------------------------------------------------------------

// CollyFetcher はcollyで一覧ページを取得する
//
// 非2xxのレスポンスはエラーになる。Shift_JIS等のページもUTF-8に変換して返す。
type CollyFetcher struct {
	base *colly.Collector
}

// NewCollyFetcher は設定済みのCollyFetcherを作成する
func NewCollyFetcher(cfg SourceConfig) *CollyFetcher {
	base := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.DetectCharset(),
	)
	// 同じURLを毎回取得する（1回の実行で1回だが、Lambdaではプロセスが再利用される）
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	})
	base.SetRequestTimeout(cfg.Timeout)
	return &CollyFetcher{base: base}
}

// Fetch はurlのページ本文を文字列で返す
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	collector := f.base.Clone()
	collector.Context = ctx

	var (
		once   sync.Once
		body   string
		result error
	)
	collector.OnResponse(func(r *colly.Response) {
		once.Do(func() { body = string(r.Body) })
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		once.Do(func() { result = fmt.Errorf("fetch %s (status %d): %w", url, status, err) })
	})

	if err := collector.Visit(url); err != nil && result == nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	collector.Wait()

	if result != nil {
		return "", result
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return body, nil
}

// -----------------------------------------------------------------------------
// FileFetcher
// -----------------------------------------------------------------------------

// FileFetcher はURLを無視してローカルのHTMLファイルを返す
//
// 保存済みのページで解析だけを確認したい場合に使う（cmd/pipelineの -html フラグ）。
type FileFetcher struct {
	Path string
}

// Fetch はPathのファイル内容を返す
func (f FileFetcher) Fetch(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read listing file: %w", err)
	}
	return string(b), nil
}
