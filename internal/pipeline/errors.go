// =============================================================================
// errors.go - エラー型
// =============================================================================
//
// パイプラインを中断させるエラーを定義します。呼び出し側はerrors.As / errors.Is
// で種類を判定し、管理者へのエラー通知メールに含めます。
//
// 【ページ構造の変化について】
//
//	見出しのclass名が変わった等で何もマッチしない場合はエラーではなく
//	「空の結果」として扱う（外部サイトなので一時的な空振りは許容する）。
//
// =============================================================================
package pipeline

import (
	"errors"
	"fmt"
)

// ErrMissingCredential は翻訳APIキーが設定されていない状態で翻訳しようとした
//
// 一部だけ未翻訳のメールを送るより、実行を止めて管理者に通知する。
var ErrMissingCredential = errors.New("DeepL API key is not configured (set DEEPL_API_KEY)")

// ParseError は日付見出しを和暦として解釈できなかった
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse era date %q: %s", e.Input, e.Reason)
}

// MalformedEntryError はリスト項目からタイトル・リンクを取り出せなかった
type MalformedEntryError struct {
	Fragment string
	Reason   string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("malformed entry (%s): %s", e.Reason, truncateString(normalizeWhitespace(e.Fragment), 120))
}

// TranslationError は翻訳APIの呼び出しが失敗した、または結果が使えなかった
//
// StatusCodeはHTTPエラーの場合のみ設定される（それ以外は0）。
type TranslationError struct {
	Text       string
	StatusCode int
	Err        error
}

func (e *TranslationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("translate %q: HTTP %d: %v", truncateString(e.Text, 40), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("translate %q: %v", truncateString(e.Text, 40), e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

// CountMismatchError は原文と翻訳の件数が一致しない（実装・連携上のバグ）
type CountMismatchError struct {
	Originals  int
	Translated int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("record count mismatch: %d originals vs %d translations", e.Originals, e.Translated)
}

// ErrorKind はメトリクスのラベル用にエラーの種類を短い名前で返す
func ErrorKind(err error) string {
	var (
		parseErr    *ParseError
		entryErr    *MalformedEntryError
		translErr   *TranslationError
		mismatchErr *CountMismatchError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &entryErr):
		return "malformed_entry"
	case errors.As(err, &translErr):
		return "translation"
	case errors.As(err, &mismatchErr):
		return "count_mismatch"
	default:
		return "other"
	}
}
