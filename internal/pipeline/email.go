// =============================================================================
// email.go - メール送信モジュール
// =============================================================================
//
// このファイルはGmail SMTPを使用したメール送信機能を提供します。
// 翻訳済みダイジェストの配信と、失敗時の管理者への通知に使います。
//
// =============================================================================
// 【送信するメール】
// =============================================================================
//
//	ダイジェスト: [MEXT-NEWS] 2024-01-29 (4 announcements)      -> email.to
//	エラー通知:   [MEXT-NEWS][ERROR] 2024-01-29                  -> email.admin_to
//
// 対象日の新着情報が0件の場合、ダイジェストは送らない（呼び出し側で判定）。
//
// =============================================================================
// 【必要な環境変数】
// =============================================================================
//
//   EMAIL_FROM     - 送信元メールアドレス（Gmail）
//   EMAIL_PASSWORD - Gmailアプリパスワード（通常のパスワードではない！）
//   EMAIL_TO       - 送信先メールアドレス（カンマ区切りで複数可）
//   EMAIL_ADMIN_TO - エラー通知先（省略時はEMAIL_TO）
//
// =============================================================================
// 【Gmailアプリパスワードについて】
// =============================================================================
//
// Googleアカウントの2段階認証を有効にした上で、
// 「アプリパスワード」を生成する必要があります。
//
// 生成方法:
//   1. https://myaccount.google.com/security にアクセス
//   2. 「2段階認証プロセス」を有効化
//   3. 「アプリパスワード」を選択
//   4. 生成された16文字のパスワードをEMAIL_PASSWORDに設定
//
// =============================================================================
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// sendMailFunc は net/smtp.SendMail と同じシグネチャ（テストで差し替える）
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender はメール送信を担当する
type EmailSender struct {
	config  EmailConfig
	to      []string
	adminTo []string
	logger  *zap.SugaredLogger

	sendMail    sendMailFunc
	maxRetries  int
	backoffBase time.Duration
}

// =============================================================================
// 初期化
// =============================================================================

// NewEmailSender は新しいメール送信者を作成する
//
// 【注意】通常のGmailパスワードは使用できません。
// 必ずアプリパスワードを使用してください。
func NewEmailSender(cfg EmailConfig, logger *zap.Logger) (*EmailSender, error) {
	// 必須パラメータのチェック
	if cfg.From == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required")
	}
	if cfg.Password == "" {
		return nil, fmt.Errorf("EMAIL_PASSWORD is required (use Gmail App Password)")
	}
	to := splitAddresses(cfg.To)
	if len(to) == 0 {
		return nil, fmt.Errorf("EMAIL_TO is required")
	}
	adminTo := splitAddresses(cfg.AdminTo)
	if len(adminTo) == 0 {
		adminTo = to
	}
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "smtp.gmail.com"
	}
	if cfg.SMTPPort == "" {
		cfg.SMTPPort = "587" // TLSポート
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EmailSender{
		config:      cfg,
		to:          to,
		adminTo:     adminTo,
		logger:      logger.Sugar(),
		sendMail:    smtp.SendMail,
		maxRetries:  3,
		backoffBase: time.Second,
	}, nil
}

// splitAddresses はカンマ区切りのメールアドレスを分割する
func splitAddresses(s string) []string {
	var out []string
	for _, addr := range strings.Split(s, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// =============================================================================
// メール送信
// =============================================================================

// SendDigest は翻訳済みダイジェストを送信する
//
// 【処理の流れ】
//  1. メール本文を生成
//  2. 件名を生成（日付と件数を含む）
//  3. RFC 5322準拠のメッセージを構築
//  4. リトライ付きで送信
func (es *EmailSender) SendDigest(ctx context.Context, d *Digest) error {
	if d == nil || len(d.Entries) == 0 {
		return fmt.Errorf("no announcements to send")
	}

	body := es.generateDigestBody(d)

	// 例: "[MEXT-NEWS] 2024-01-29 (4 announcements)"
	subject := fmt.Sprintf("%s %s (%d announcements)", es.config.SubjectPrefix, d.Date, len(d.Entries))

	msg := es.buildEmailMessage(es.to, subject, body)
	return es.sendWithRetry(ctx, es.to, msg)
}

// SendAdminAlert は実行失敗を管理者に通知する
func (es *EmailSender) SendAdminAlert(ctx context.Context, target CalendarDate, runErr error) error {
	if runErr == nil {
		return nil
	}

	subject := fmt.Sprintf("%s[ERROR] %s", es.config.SubjectPrefix, target)

	var sb strings.Builder
	fmt.Fprintf(&sb, "The MEXT news pipeline failed for %s.\n\n", target)
	fmt.Fprintf(&sb, "Kind:  %s\n", ErrorKind(runErr))
	fmt.Fprintf(&sb, "Error: %v\n", runErr)

	// errors.Unwrapで原因を順にたどる
	depth := 0
	for cause := errors.Unwrap(runErr); cause != nil; cause = errors.Unwrap(cause) {
		depth++
		fmt.Fprintf(&sb, "  cause %d: %v\n", depth, cause)
	}
	sb.WriteString("\n---\nGenerated by mext-relay\n")

	msg := es.buildEmailMessage(es.adminTo, subject, sb.String())
	return es.sendWithRetry(ctx, es.adminTo, msg)
}

// =============================================================================
// メール本文生成
// =============================================================================

// generateDigestBody はプレーンテキストのメール本文を生成する
//
// 【出力フォーマット】
//
//	Please find below the DeepL translation of the MEXT announcements published on 2024-01-29.
//	Source: https://www.mext.go.jp/b_menu/news/index.html
//
//	========================================
//	Total: 4 announcements
//	========================================
//
//	[1] Minutes of some meeting
//	    Original: なにかの議事録
//	    URL: https://www.mext.go.jp/b_menu/test/url.html
//	    Tags: Education, Council Information (教育, 審議会情報)
//
//	----------------------------------------
func (es *EmailSender) generateDigestBody(d *Digest) string {
	var sb strings.Builder

	// ヘッダー
	fmt.Fprintf(&sb, "Please find below the DeepL translation of the MEXT announcements published on %s.\n", d.Date)
	if d.SourceURL != "" {
		fmt.Fprintf(&sb, "Source: %s\n", d.SourceURL)
	}
	sb.WriteString("\n========================================\n")
	fmt.Fprintf(&sb, "Total: %d announcements\n", len(d.Entries))
	sb.WriteString("========================================\n\n")

	for i, e := range d.Entries {
		title := e.TranslatedTitle
		if title == "" {
			title = e.Title
		}
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, title)
		if e.TranslatedTitle != "" {
			fmt.Fprintf(&sb, "    Original: %s\n", e.Title)
		}
		fmt.Fprintf(&sb, "    URL: %s\n", e.URL)
		if len(e.Tags) > 0 {
			if len(e.TranslatedTags) == len(e.Tags) {
				fmt.Fprintf(&sb, "    Tags: %s (%s)\n", strings.Join(e.TranslatedTags, ", "), strings.Join(e.Tags, ", "))
			} else {
				fmt.Fprintf(&sb, "    Tags: %s\n", strings.Join(e.Tags, ", "))
			}
		}
		sb.WriteString("\n----------------------------------------\n\n")
	}

	// フッター
	sb.WriteString("Translations are produced automatically by DeepL and may contain errors.\n")
	sb.WriteString("Please refer to the original Japanese pages for authoritative information.\n\n")
	sb.WriteString("Generated by mext-relay\n")

	return sb.String()
}

// =============================================================================
// メールメッセージ構築
// =============================================================================

// buildEmailMessage はRFC 5322準拠のメールメッセージを構築する
//
// 【RFC 5322フォーマット】
//
//	From: sender@example.com\r\n
//	To: recipient@example.com\r\n
//	Subject: =?utf-8?q?...?=\r\n
//	MIME-Version: 1.0\r\n
//	Content-Type: text/plain; charset=UTF-8\r\n
//	\r\n
//	メール本文...
//
// 件名に非ASCII文字がある場合はRFC 2047でエンコードする。
func (es *EmailSender) buildEmailMessage(to []string, subject, body string) []byte {
	var msg strings.Builder

	fmt.Fprintf(&msg, "From: %s\r\n", es.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n") // ヘッダーと本文の区切り
	msg.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))

	return []byte(msg.String())
}

// =============================================================================
// 送信（リトライ付き）
// =============================================================================

// sendWithRetry は指数バックオフでリトライしながらメールを送信する
//
// 待機時間は backoffBase の 2^i 倍（既定: 2秒→4秒）。
// 待機中にctxがキャンセルされた場合はそこで中断する。
func (es *EmailSender) sendWithRetry(ctx context.Context, to []string, msg []byte) error {
	var lastErr error

	for i := 0; i < es.maxRetries; i++ {
		if i > 0 {
			wait := es.backoffBase << i
			es.logger.Infof("Retrying email send in %v...", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fmt.Errorf("email send canceled: %w", ctx.Err())
			}
		}

		err := es.send(to, msg)
		if err == nil {
			return nil
		}

		lastErr = err
		es.logger.Warnf("Email send failed (attempt %d/%d): %v", i+1, es.maxRetries, err)
	}

	return fmt.Errorf("failed to send email after %d retries: %w", es.maxRetries, lastErr)
}

// send はGmail SMTPを使用してメールを送信する
//
// PLAIN認証を使用（TLS（ポート587）で暗号化される）
func (es *EmailSender) send(to []string, msg []byte) error {
	auth := smtp.PlainAuth("", es.config.From, es.config.Password, es.config.SMTPHost)
	addr := es.config.SMTPHost + ":" + es.config.SMTPPort

	if err := es.sendMail(addr, auth, es.config.From, to, msg); err != nil {
		return fmt.Errorf("SMTP send failed: %w (check EMAIL_PASSWORD is a Gmail App Password)", err)
	}
	return nil
}
