// =============================================================================
// era.go - 和暦 -> 西暦変換
// =============================================================================
//
// 一覧ページの日付見出し（例: "令和6年1月29日"）をCalendarDateに変換します。
//
// 【対応範囲】
//   - 令和のみ（平成以前の見出しは一覧ページに出てこないため非対応）
//   - 年は数字または「元」（元年）
//   - 全角数字（"令和６年１月２９日"）も受け付ける
//
// 【変換ルール】
//
//	令和元年 -> 2019年
//	令和N年  -> 2019 + (N - 1) 年   例: 令和6年 -> 2024年
//
// =============================================================================
package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// reiwaFirstYear は令和元年の西暦
const reiwaFirstYear = 2019

// eraFirstYearMarker は元年を表す文字
const eraFirstYearMarker = "元"

var (
	reEraYear  = regexp.MustCompile(`令和\s*(\d+|元)\s*年`)
	reEraMonth = regexp.MustCompile(`年\s*(\d+)\s*月`)
	reEraDay   = regexp.MustCompile(`月\s*(\d+)\s*日`)
)

// ConvertEraDate は和暦の日付文字列をCalendarDateに変換する
//
// 使用例:
//
//	d, err := ConvertEraDate("令和6年5月31日")  // 2024-05-31
//	d, err := ConvertEraDate("令和元年10月2日") // 2019-10-02
//
// 年・月・日のいずれかが見つからない、または存在しない日付の場合は*ParseErrorを返す。
// 日付を誤るとグループ分けが壊れるため、呼び出し側で握りつぶしてはいけない。
func ConvertEraDate(s string) (CalendarDate, error) {
	// 全角数字・全角スペースを半角に揃える
	folded := width.Fold.String(strings.TrimSpace(s))

	yearMatch := reEraYear.FindStringSubmatch(folded)
	if yearMatch == nil {
		return CalendarDate{}, &ParseError{Input: s, Reason: "era year not found"}
	}
	monthMatch := reEraMonth.FindStringSubmatch(folded)
	if monthMatch == nil {
		return CalendarDate{}, &ParseError{Input: s, Reason: "month not found"}
	}
	dayMatch := reEraDay.FindStringSubmatch(folded)
	if dayMatch == nil {
		return CalendarDate{}, &ParseError{Input: s, Reason: "day not found"}
	}

	year := reiwaFirstYear
	if yearMatch[1] != eraFirstYearMarker {
		n, err := strconv.Atoi(yearMatch[1])
		if err != nil || n < 1 {
			return CalendarDate{}, &ParseError{Input: s, Reason: "invalid era year " + yearMatch[1]}
		}
		year = reiwaFirstYear + n - 1
	}

	month, err := strconv.Atoi(monthMatch[1])
	if err != nil {
		return CalendarDate{}, &ParseError{Input: s, Reason: "invalid month " + monthMatch[1]}
	}
	day, err := strconv.Atoi(dayMatch[1])
	if err != nil {
		return CalendarDate{}, &ParseError{Input: s, Reason: "invalid day " + dayMatch[1]}
	}

	d, err := NewCalendarDate(year, time.Month(month), day)
	if err != nil {
		return CalendarDate{}, &ParseError{Input: s, Reason: err.Error()}
	}
	return d, nil
}
