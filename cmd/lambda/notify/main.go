// =============================================================================
// Lambda: mext-notify
// =============================================================================
//
// 文部科学省「新着情報」の前日分を取得・翻訳し、メール送信するLambda関数
// （EventBridgeのスケジュールで1日1回起動する想定）
//
// 環境変数:
//   - DEEPL_API_KEY:   DeepL APIキー (必須、":fx" で終わる場合は無料版)
//   - EMAIL_FROM:      送信元メールアドレス (必須)
//   - EMAIL_PASSWORD:  Gmailアプリパスワード (必須)
//   - EMAIL_TO:        送信先メールアドレス (必須)
//   - EMAIL_ADMIN_TO:  エラー通知先 (省略時: EMAIL_TO)
//   - TIMEZONE:        前日を決めるタイムゾーン (デフォルト: Asia/Tokyo)
//   - CONFIG_FILE:     YAML設定ファイル (省略可)
//
// イベント:
//
//	{"date": "2024-01-29"}  対象日を指定して再実行する場合のみ。省略時は前日。
//
// =============================================================================
package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata" // Lambdaのランタイムにzoneinfoがない場合に備える

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"mext-relay/internal/clock"
	"mext-relay/internal/logging"
	"mext-relay/internal/metrics"
	"mext-relay/internal/pipeline"
)

// Event はLambdaの入力イベント
type Event struct {
	Date string `json:"date,omitempty"`
}

// Response はLambdaレスポンス
type Response struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Date       string `json:"date,omitempty"`
	Entries    int    `json:"entries"`
	Sent       bool   `json:"sent"`
	ErrorKind  string `json:"errorKind,omitempty"`
}

// notifier はHandlerの依存（テストで差し替える）
type notifier struct {
	clock   clock.Clock
	options pipeline.Options
}

var defaultNotifier = notifier{clock: clock.System{}}

// Handler はLambdaのメインハンドラー
func Handler(ctx context.Context, event Event) (Response, error) {
	return defaultNotifier.handle(ctx, event)
}

func (n notifier) handle(ctx context.Context, event Event) (Response, error) {
	// 1. 設定を読み込む
	cfg, err := pipeline.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error()}, err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	target, err := n.targetDate(event, cfg)
	if err != nil {
		return Response{StatusCode: 400, Message: err.Error()}, err
	}
	log := logger.With(zap.Stringer("date", target))
	log.Info("Starting mext-notify Lambda...")

	sender, err := pipeline.NewEmailSender(cfg.Email, logger)
	if err != nil {
		log.Error("email config", zap.Error(err))
		return Response{StatusCode: 400, Message: err.Error(), Date: target.String()}, err
	}

	rec := metrics.New()
	defer func() {
		if err := rec.Push(context.WithoutCancel(ctx), cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, nil); err != nil {
			log.Warn("metrics push failed", zap.Error(err))
		}
	}()

	// 2. 取得・解析・翻訳
	opts := n.options
	opts.Logger = logger
	opts.Metrics = rec
	p, err := pipeline.NewPipeline(cfg, opts)
	if err != nil {
		return Response{StatusCode: 500, Message: err.Error(), Date: target.String()}, err
	}

	digest, runErr := p.Run(ctx, target)
	if runErr != nil {
		kind := pipeline.ErrorKind(runErr)
		log.Error("pipeline run failed", zap.String("kind", kind), zap.Error(runErr))
		if err := sender.SendAdminAlert(ctx, target, runErr); err != nil {
			log.Error("admin alert failed", zap.Error(err))
		}
		return Response{StatusCode: 500, Message: runErr.Error(), Date: target.String(), ErrorKind: kind}, runErr
	}

	// 3. メール送信（0件の場合は送らない）
	if len(digest.Entries) == 0 {
		log.Info("no announcements for target date, email not sent")
		return Response{
			StatusCode: 200,
			Message:    fmt.Sprintf("No announcements published on %s", target),
			Date:       target.String(),
		}, nil
	}

	if err := sender.SendDigest(ctx, digest); err != nil {
		log.Error("send digest email", zap.Error(err))
		return Response{StatusCode: 500, Message: err.Error(), Date: target.String(), Entries: len(digest.Entries)}, err
	}

	log.Info("digest email sent", zap.Int("entries", len(digest.Entries)))
	return Response{
		StatusCode: 200,
		Message:    fmt.Sprintf("Successfully sent %d announcements for %s", len(digest.Entries), target),
		Date:       target.String(),
		Entries:    len(digest.Entries),
		Sent:       true,
	}, nil
}

// targetDate はイベントの日付、なければ設定タイムゾーンでの前日を返す
func (n notifier) targetDate(event Event, cfg pipeline.Config) (pipeline.CalendarDate, error) {
	if event.Date != "" {
		d, err := pipeline.ParseCalendarDate(event.Date)
		if err != nil {
			return pipeline.CalendarDate{}, fmt.Errorf("event date: %w", err)
		}
		return d, nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return pipeline.CalendarDate{}, err
	}
	return clock.Yesterday(n.clock.Now(), loc), nil
}

func main() {
	lambda.Start(Handler)
}
