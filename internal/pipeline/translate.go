// =============================================================================
// translate.go - タグ・タイトルの翻訳
// =============================================================================
//
// 新着情報のタイトルとタグを翻訳します。
//
// 【翻訳ポリシー】
//   - タグ:     TagLookup にあればその値（API呼び出しなし）、なければDeepLで翻訳
//   - タイトル: 常にDeepLで翻訳
//
// 【並列化】
//
//	タイトル・タグの翻訳は互いに独立しているため、errgroupで並列に呼び出す。
//	結果は元の位置（レコード番号・タグ番号）に書き戻すので順序は変わらない。
//	Concurrency=1 にすると1件ずつ順番に呼び出す。
//
// =============================================================================
package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mext-relay/internal/metrics"
)

// RemoteTranslator は外部翻訳サービス（DeepL）の呼び出し
type RemoteTranslator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// TranslatorConfig は翻訳の設定
type TranslatorConfig struct {
	SourceLang  string    // 翻訳元の言語コード（例: "JA"）
	TargetLang  string    // 翻訳先の言語コード（例: "EN-US"）
	Lookup      TagLookup // タグの翻訳表
	Concurrency int       // 同時に実行する翻訳呼び出し数（1以下は逐次）
}

// Translator はタグの翻訳表とDeepLを組み合わせて翻訳する
type Translator struct {
	remote  RemoteTranslator
	cfg     TranslatorConfig
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewTranslator は新しいTranslatorを作成する
//
// loggerとrecはnilでもよい。
func NewTranslator(remote RemoteTranslator, cfg TranslatorConfig, logger *zap.Logger, rec *metrics.Recorder) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Lookup == nil {
		cfg.Lookup = TagLookup{}
	}
	return &Translator{remote: remote, cfg: cfg, logger: logger, metrics: rec}
}

// TranslateTag はタグを翻訳する
//
// 翻訳表にあるタグはAPIを呼ばずにその値を返す。
func (t *Translator) TranslateTag(ctx context.Context, tag string) (string, error) {
	if v, ok := t.cfg.Lookup[tag]; ok {
		t.metrics.TagLookupHit()
		return v, nil
	}
	t.logger.Debug("tag not in lookup table, translating remotely", zap.String("tag", tag))
	return t.translate(ctx, tag)
}

// TranslateTitle はタイトルを翻訳する（常にAPI呼び出し）
func (t *Translator) TranslateTitle(ctx context.Context, title string) (string, error) {
	return t.translate(ctx, title)
}

func (t *Translator) translate(ctx context.Context, text string) (string, error) {
	t.metrics.RemoteTranslation()
	return t.remote.Translate(ctx, text, t.cfg.SourceLang, t.cfg.TargetLang)
}

// TranslateRecords はレコードを1対1・同じ順序でTranslatedRecordに変換する
//
// いずれかの翻訳が失敗した時点で残りの呼び出しをキャンセルし、そのエラーを返す。
// 一部だけ翻訳された結果は返さない。
func (t *Translator) TranslateRecords(ctx context.Context, records []AnnouncementRecord) ([]TranslatedRecord, error) {
	out := make([]TranslatedRecord, len(records))
	if len(records) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, t.cfg.Concurrency))

	for i, rec := range records {
		out[i] = TranslatedRecord{URL: rec.URL, Tags: make([]string, len(rec.Tags))}

		g.Go(func() error {
			title, err := t.TranslateTitle(gctx, rec.Title)
			if err != nil {
				return err
			}
			out[i].Title = title
			return nil
		})
		for j, tag := range rec.Tags {
			g.Go(func() error {
				v, err := t.TranslateTag(gctx, tag)
				if err != nil {
					return err
				}
				out[i].Tags[j] = v
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
