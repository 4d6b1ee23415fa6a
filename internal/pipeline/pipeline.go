// =============================================================================
// pipeline.go - 1日分のダイジェスト作成
// =============================================================================
//
// 一覧ページの取得からダイジェストの組み立てまでを順に実行します。
//
// 【処理の流れ】
//
//	1. Fetch          一覧ページを取得
//	2. SegmentListing 日付見出しごとに分割
//	3. FindGroup      対象日のグループを選ぶ（なければ0件で終了）
//	4. Parse          グループ内の記事を抽出（0件ならここで終了）
//	5. Translate      タイトル・タグを翻訳（翻訳なしモードでは省略）
//	6. AssembleDigest 原文と翻訳を組み合わせる
//
// 対象日は呼び出し側が決める（通常は東京時間の前日）。
// どの段階のエラーもそのまま返し、一部だけのダイジェストは返さない。
//
// =============================================================================
package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"mext-relay/internal/metrics"
)

// Pipeline は1日分のダイジェストを作成する
type Pipeline struct {
	SourceURL string
	Fetcher   PageFetcher
	Parser    *EntryParser

	// Translator がnilの場合は翻訳しない（翻訳フィールドは空）
	Translator *Translator

	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Options はNewPipelineで差し替え可能な部品
type Options struct {
	// Fetcher がnilの場合はCollyFetcherを使う
	Fetcher PageFetcher

	// Remote がnilの場合はDeepLクライアントを使う
	Remote RemoteTranslator

	// NoTranslate がtrueの場合は翻訳しない（APIキー不要）
	NoTranslate bool

	// HTTPClient はDeepLクライアント用（nilなら設定のタイムアウトで作成）
	HTTPClient *http.Client

	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// NewPipeline は設定からPipelineを組み立てる
func NewPipeline(cfg Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	parser, err := NewEntryParser(cfg.Source.Origin)
	if err != nil {
		return nil, err
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewCollyFetcher(cfg.Source)
	}

	var translator *Translator
	if !opts.NoTranslate {
		remote := opts.Remote
		if remote == nil {
			remote = NewDeepLClient(cfg.DeepL, opts.HTTPClient)
		}
		translator = NewTranslator(remote, cfg.TranslatorConfig(), logger, opts.Metrics)
	}

	return &Pipeline{
		SourceURL:  cfg.Source.URL,
		Fetcher:    fetcher,
		Parser:     parser,
		Translator: translator,
		Logger:     logger,
		Metrics:    opts.Metrics,
	}, nil
}

// Run は対象日のダイジェストを作成する
//
// 対象日の見出しがない場合、または見出しはあるが記事が0件の場合は
// Entriesが空のDigestを返す（エラーではない）。
func (p *Pipeline) Run(ctx context.Context, target CalendarDate) (digest *Digest, err error) {
	log := p.logger().With(zap.Stringer("date", target))

	defer func() {
		if err != nil {
			p.Metrics.RunFailed(ErrorKind(err))
			return
		}
		p.Metrics.RunSucceeded()
	}()

	page, err := p.Fetcher.Fetch(ctx, p.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	log.Debug("listing fetched", zap.String("url", p.SourceURL), zap.Int("bytes", len(page)))

	groups, err := SegmentListing(page)
	if err != nil {
		return nil, fmt.Errorf("segment listing: %w", err)
	}
	p.Metrics.ObserveGroups(len(groups))

	digest = &Digest{Date: target, SourceURL: p.SourceURL, Entries: []DigestEntry{}}

	group, ok := FindGroup(groups, target)
	if !ok {
		log.Info("no date group for target date", zap.Int("groups", len(groups)))
		return digest, nil
	}

	records, err := p.Parser.Parse(group.RawMarkup)
	if err != nil {
		return nil, fmt.Errorf("parse entries for %s: %w", target, err)
	}
	p.Metrics.ObserveEntries(len(records))
	if len(records) == 0 {
		log.Info("date group has no announcements")
		return digest, nil
	}

	translated, err := p.translate(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("translate entries for %s: %w", target, err)
	}

	entries, err := AssembleDigest(records, translated)
	if err != nil {
		return nil, err
	}
	digest.Entries = entries

	log.Info("digest assembled", zap.Int("entries", len(entries)), zap.Bool("translated", p.Translator != nil))
	return digest, nil
}

// translate は翻訳なしモードでは空の翻訳を返す
func (p *Pipeline) translate(ctx context.Context, records []AnnouncementRecord) ([]TranslatedRecord, error) {
	if p.Translator != nil {
		return p.Translator.TranslateRecords(ctx, records)
	}
	out := make([]TranslatedRecord, len(records))
	for i, r := range records {
		out[i] = TranslatedRecord{URL: r.URL, Tags: []string{}}
	}
	return out, nil
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
