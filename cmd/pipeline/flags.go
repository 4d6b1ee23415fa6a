// =============================================================================
// flags.go - CLIフラグ
// =============================================================================
package main

import (
	"flag"
	"fmt"
	"io"

	"mext-relay/internal/pipeline"
)

// cliFlags はCLIフラグの値を保持する
//
// 【注意】取得元・DeepL・メールの設定は pipeline.Config（viper）側にある
type cliFlags struct {
	// ConfigPath はYAML設定ファイル（空なら環境変数とデフォルトのみ）
	ConfigPath string

	// Date は対象日（YYYY-MM-DD、空なら前日）
	Date string

	// HTMLFile が指定された場合、一覧ページを取得せずファイルから読み込む
	HTMLFile string

	// OutFile が指定された場合、ファイルに出力（空の場合はstdout）
	OutFile string

	// SendEmail がtrueの場合、ダイジェストをメール送信する
	SendEmail bool

	// NoTranslate がtrueの場合、翻訳しない
	NoTranslate bool
}

// parseFlags はCLIフラグを解析する
func parseFlags(args []string) (*cliFlags, error) {
	f := &cliFlags{}

	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&f.ConfigPath, "config", "", "optional: path to a YAML config file")
	fs.StringVar(&f.Date, "date", "", "target date YYYY-MM-DD (default: yesterday in the configured timezone)")
	fs.StringVar(&f.HTMLFile, "html", "", "optional: read the listing page from this file instead of fetching it")
	fs.StringVar(&f.OutFile, "out", "", "optional: write the digest JSON to this path (default: stdout)")
	fs.BoolVar(&f.SendEmail, "sendEmail", false, "send the digest via email (admin alert on failure)")
	fs.BoolVar(&f.NoTranslate, "noTranslate", false, "skip translation (no DEEPL_API_KEY needed)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if f.Date != "" {
		if _, err := pipeline.ParseCalendarDate(f.Date); err != nil {
			return nil, fmt.Errorf("-date: %w", err)
		}
	}
	return f, nil
}
