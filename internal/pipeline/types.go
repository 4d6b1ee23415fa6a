// =============================================================================
// types.go - データ構造定義
// =============================================================================
//
// このファイルはmext-relay全体で使用するデータ構造（型）を定義します。
//
// 【このファイルで定義している型】
//   - CalendarDate:       時刻を持たない暦日（yyyy-MM-dd）
//   - AnnouncementGroup:  日付見出しごとの新着情報HTML
//   - AnnouncementRecord: 新着情報1件（原文）
//   - TranslatedRecord:   新着情報1件（翻訳済み）
//   - TagLookup:          タグ翻訳テーブル
//   - DigestEntry:        メール・JSON出力用の原文＋翻訳のペア
//   - Digest:             1回の実行で生成されるダイジェスト全体
//
// 【データの流れ】
//
//	ページHTML -> []AnnouncementGroup -> []AnnouncementRecord
//	           -> []TranslatedRecord  -> Digest
//
// =============================================================================
package pipeline

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// CalendarDate - 暦日
// -----------------------------------------------------------------------------
//
// 時刻・タイムゾーンを持たない日付。文字列表現は常にISO 8601（yyyy-MM-dd）。
// ゼロ値は「未設定」を表し、IsZero()で判定できる。
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// calendarDateLayout はCalendarDateの文字列表現（ISO 8601）
const calendarDateLayout = "2006-01-02"

// NewCalendarDate は年月日からCalendarDateを作成する
//
// 存在しない日付（2月30日、13月など）はエラーになる。
// time.Dateは範囲外の値を正規化してしまうため、正規化後に値が変わっていないかで判定する。
func NewCalendarDate(year int, month time.Month, day int) (CalendarDate, error) {
	if month < time.January || month > time.December {
		return CalendarDate{}, fmt.Errorf("month out of range: %d", month)
	}
	t := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return CalendarDate{}, fmt.Errorf("invalid day %d for %04d-%02d", day, year, month)
	}
	return CalendarDate{Year: year, Month: month, Day: day}, nil
}

// ParseCalendarDate は "2024-01-29" 形式の文字列をCalendarDateに変換する
func ParseCalendarDate(s string) (CalendarDate, error) {
	t, err := time.Parse(calendarDateLayout, s)
	if err != nil {
		return CalendarDate{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf はtime.Timeの（そのタイムゾーンにおける）暦日を返す
func DateOf(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// IsZero は未設定の日付かどうかを返す
func (d CalendarDate) IsZero() bool {
	return d == CalendarDate{}
}

// String はISO 8601形式（yyyy-MM-dd）で日付を返す
func (d CalendarDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText はJSON出力時に "yyyy-MM-dd" 文字列として書き出すためのもの
func (d CalendarDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText は "yyyy-MM-dd" 文字列を読み込む
func (d *CalendarDate) UnmarshalText(b []byte) error {
	parsed, err := ParseCalendarDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// -----------------------------------------------------------------------------
// AnnouncementGroup - 日付見出しごとの新着情報
// -----------------------------------------------------------------------------
//
// 一覧ページの日付見出し（<h3 class="information-date">）1つにつき1つ作られる。
//
// 【フィールドの説明】
//
//	Date:      見出しの和暦を西暦に変換した日付
//	RawMarkup: 直後の<ul class="news_list">の中身（前後の空白は除去済み）
//
// 見出しとリストはあるが記事が0件の場合、RawMarkupは空文字列になる。
// 見出し自体が見つからない場合はグループそのものが存在しない（区別して扱う）。
type AnnouncementGroup struct {
	Date      CalendarDate
	RawMarkup string
}

// -----------------------------------------------------------------------------
// AnnouncementRecord / TranslatedRecord - 新着情報1件
// -----------------------------------------------------------------------------

// AnnouncementRecord は一覧ページから抽出した新着情報1件（原文）
//
// URLは常に絶対URL。Tagsはページ上の出現順で、0件のこともある。
type AnnouncementRecord struct {
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Tags  []string `json:"tags"`
}

// TranslatedRecord はAnnouncementRecordを翻訳したもの
//
// 元のレコード列と同じ順序・同じ件数で生成される。
type TranslatedRecord struct {
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Tags  []string `json:"tags"`
}

// TagLookup はタグ（原文）から翻訳済みタグへの対応表
//
// ここにないタグはDeepLで翻訳される。設定ファイル（tags:）で上書き・追加できる。
type TagLookup map[string]string

// DefaultTagLookup は文科省の新着情報に付く既知タグの英訳表
func DefaultTagLookup() TagLookup {
	return TagLookup{
		"科学技術・学術": "Science, Technology, and Academia",
		"審議会情報":   "Council Information",
		"その他の分野":  "Other Topics",
		"採用案内":    "Recruitment",
		"教育":      "Education",
		"公募情報":    "Public Offering",
		"大臣会見":    "Ministerial Press Conference",
		"報道発表":    "Press Release",
		"分野横断":    "Cross-Disciplinary",
	}
}

// -----------------------------------------------------------------------------
// DigestEntry / Digest - 配信用ダイジェスト
// -----------------------------------------------------------------------------

// DigestEntry は原文と翻訳を1件にまとめたもの（メール本文・JSON出力用）
type DigestEntry struct {
	Title           string   `json:"title"`
	TranslatedTitle string   `json:"translatedTitle"`
	URL             string   `json:"url"`
	Tags            []string `json:"tags"`
	TranslatedTags  []string `json:"translatedTags"`
}

// Digest は1回の実行で生成されるダイジェスト
//
// Entriesはページ上の掲載順。対象日の新着情報がなければ空。
type Digest struct {
	Date      CalendarDate  `json:"date"`
	SourceURL string        `json:"sourceUrl"`
	Entries   []DigestEntry `json:"entries"`
}
