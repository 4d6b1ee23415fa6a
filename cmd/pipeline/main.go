// =============================================================================
// main.go - MEXT Relay パイプラインのエントリーポイント
// =============================================================================
//
// このプログラムは、文部科学省「新着情報」の1日分を取得・翻訳し、
// JSON出力またはメールで配信するCLIツールです。
//
// =============================================================================
// 【処理フロー】
// =============================================================================
//
//   ┌─────────────┐    ┌─────────────┐    ┌─────────────┐
//   │  1. 設定    │ -> │  2. 取得    │ -> │  3. 解析    │
//   │  読み込み   │    │  一覧ページ │    │  日付/記事  │
//   └─────────────┘    └─────────────┘    └─────────────┘
//          │                  │                  │
//          v                  v                  v
//   .env / YAML /       colly で取得       和暦見出しごとに
//   環境変数            (-html でファイル)  分割して対象日を抽出
//
//   ┌─────────────┐    ┌─────────────┐
//   │  4. 翻訳    │ -> │  5. 出力    │
//   │  DeepL      │    │  JSON/Mail  │
//   └─────────────┘    └─────────────┘
//
// =============================================================================
// 【CLIフラグ一覧】
// =============================================================================
//
//   -config       設定ファイル（YAML、省略可）
//   -date         対象日 YYYY-MM-DD（省略時: 設定タイムゾーンでの前日）
//   -html         一覧ページを取得せずローカルHTMLファイルから読み込む
//   -out          出力JSONファイルパス（省略時: stdout）
//   -sendEmail    ダイジェストをメール送信（失敗時は管理者に通知）
//   -noTranslate  翻訳しない（DEEPL_API_KEY不要、解析結果の確認用）
//
// 例:
//
//	./pipeline -date=2024-01-29 -out=digest.json
//	./pipeline -sendEmail
//	./pipeline -html=testdata/mext_news.html -date=2024-01-29 -noTranslate
//
// 処理の進捗はログ（stderr）に出力し、stdoutはJSONのみ。
//
// =============================================================================
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // Asia/Tokyo をzoneinfoのない環境でも使えるようにする

	"github.com/joho/godotenv" // .env ファイル読み込み
)

func main() {
	// .env ファイルから環境変数を読み込み
	// ファイルが存在しない場合は警告のみで処理は続行する
	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "WARN: .env file not loaded: %v (using environment variables only)\n", err)
	}

	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, flags, time.Now(), os.Stdout))
}
