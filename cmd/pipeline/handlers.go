// =============================================================================
// handlers.go - 実行ハンドラ
// =============================================================================
//
// 【このファイルで提供する機能】
//   - run:              設定読み込みからJSON出力・メール送信までの1回分の実行
//   - resolveTargetDate: -date フラグまたは前日から対象日を決める
//   - writeDigest:      ダイジェストJSONをファイルまたはstdoutに出力
//
// 【終了コード】
//
//	0: 成功（対象日の新着情報が0件の場合も含む）
//	1: 実行失敗（-sendEmail 時は管理者に通知済み）
//
// =============================================================================
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"mext-relay/internal/clock"
	"mext-relay/internal/logging"
	"mext-relay/internal/metrics"
	"mext-relay/internal/pipeline"
)

// run は1回分のパイプラインを実行し、終了コードを返す
func run(ctx context.Context, flags *cliFlags, now time.Time, stdout io.Writer) int {
	cfg, err := pipeline.LoadConfig(flags.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: loading config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: building logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	target, err := resolveTargetDate(flags.Date, now, cfg)
	if err != nil {
		logger.Error("resolve target date", zap.Error(err))
		return 1
	}
	log := logger.With(zap.Stringer("date", target))

	// メール設定は取得より先に検証する
	var sender *pipeline.EmailSender
	if flags.SendEmail {
		sender, err = pipeline.NewEmailSender(cfg.Email, logger)
		if err != nil {
			log.Error("email config", zap.Error(err))
			return 1
		}
	}

	rec := metrics.New()
	defer pushMetrics(cfg, rec, log)

	opts := pipeline.Options{
		NoTranslate: flags.NoTranslate,
		Logger:      logger,
		Metrics:     rec,
	}
	if flags.HTMLFile != "" {
		opts.Fetcher = pipeline.FileFetcher{Path: flags.HTMLFile}
	}

	p, err := pipeline.NewPipeline(cfg, opts)
	if err != nil {
		log.Error("build pipeline", zap.Error(err))
		return 1
	}

	digest, runErr := p.Run(ctx, target)
	if runErr != nil {
		log.Error("pipeline run failed", zap.String("kind", pipeline.ErrorKind(runErr)), zap.Error(runErr))
		if sender != nil {
			if err := sender.SendAdminAlert(ctx, target, runErr); err != nil {
				log.Error("admin alert failed", zap.Error(err))
			}
		}
		return 1
	}

	if err := writeDigest(flags.OutFile, digest, stdout); err != nil {
		log.Error("write output", zap.Error(err))
		return 1
	}

	if sender == nil {
		return 0
	}
	if len(digest.Entries) == 0 {
		log.Info("no announcements for target date, email not sent")
		return 0
	}
	if err := sender.SendDigest(ctx, digest); err != nil {
		log.Error("send digest email", zap.Error(err))
		return 1
	}
	log.Info("digest email sent", zap.Int("entries", len(digest.Entries)))
	return 0
}

// resolveTargetDate は -date の値、なければ設定タイムゾーンでの前日を返す
func resolveTargetDate(raw string, now time.Time, cfg pipeline.Config) (pipeline.CalendarDate, error) {
	if raw != "" {
		return pipeline.ParseCalendarDate(raw)
	}
	loc, err := cfg.Location()
	if err != nil {
		return pipeline.CalendarDate{}, err
	}
	return clock.Yesterday(now, loc), nil
}

// writeDigest はダイジェストをpathまたはstdoutに出力する
func writeDigest(path string, d *pipeline.Digest, stdout io.Writer) error {
	if path != "" {
		return pipeline.WriteDigestFile(path, d)
	}
	return pipeline.WriteDigestJSON(stdout, d)
}

// pushMetrics はPushgatewayが設定されていればメトリクスを送る（失敗は警告のみ）
func pushMetrics(cfg pipeline.Config, rec *metrics.Recorder, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rec.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, nil); err != nil {
		log.Warn("metrics push failed", zap.Error(err))
	}
}
