// =============================================================================
// listing.go - 新着情報一覧ページの日付グループ分割
// =============================================================================
//
// 文科省「新着情報一覧」ページのHTMLを、日付見出しごとのグループに分割します。
//
// 【ページ構造】
//
//	<div class="dateList icon">
//	  <h3 class="information-date">令和6年1月29日</h3>
//	  <ul class="news_list">
//	    <li> ... </li>
//	  </ul>
//	  <h3 class="information-date">令和6年1月26日</h3>
//	  <ul class="news_list"> ... </ul>
//	</div>
//
// 【マッチング規則】
//   - 見出し（h3.information-date）の直後の兄弟要素が ul.news_list の場合のみ採用
//   - 間に挟まる空白テキスト・コメントは無視する
//   - それ以外（class名の変更、間に別要素がある等）はそのグループを黙って読み飛ばす
//
// 正規表現ではなくDOM（goquery + cascadia）で判定するため、属性順や
// class の追加・並び替えには影響されない。
//
// =============================================================================
package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var (
	selDateHeading = cascadia.MustCompile("h3.information-date")
	selNewsList    = cascadia.MustCompile("ul.news_list")
)

// SegmentListing は一覧ページHTMLを日付ごとのAnnouncementGroupに分割する
//
// 戻り値はページ上の出現順（ページは新しい日付が先）。
// 空文字列や、見出しとリストの組が1つもないページでは空スライスを返す（エラーではない）。
//
// 見出しとリストの組は見つかったが見出しの日付が読めない場合は*ParseErrorを返す。
func SegmentListing(page string) ([]AnnouncementGroup, error) {
	if strings.TrimSpace(page) == "" {
		return []AnnouncementGroup{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	groups := []AnnouncementGroup{}
	var segErr error
	doc.FindMatcher(selDateHeading).EachWithBreak(func(_ int, heading *goquery.Selection) bool {
		list := nextElementSibling(heading.Get(0))
		if list == nil || !selNewsList.Match(list) {
			// ページ構造の変化: このグループは存在しないものとして扱う
			return true
		}

		date, err := ConvertEraDate(heading.Text())
		if err != nil {
			segErr = err
			return false
		}

		inner, err := innerHTML(list)
		if err != nil {
			segErr = fmt.Errorf("render news list for %s: %w", date, err)
			return false
		}

		groups = append(groups, AnnouncementGroup{
			Date:      date,
			RawMarkup: strings.TrimSpace(inner),
		})
		return true
	})
	if segErr != nil {
		return nil, segErr
	}
	return groups, nil
}

// FindGroup はdateに一致する最初のグループを返す
//
// 見つからない場合はok=falseを返す。グループはあるが記事0件の場合は
// ok=trueかつRawMarkupが空になる（2つの状態を区別する）。
func FindGroup(groups []AnnouncementGroup, date CalendarDate) (AnnouncementGroup, bool) {
	for _, g := range groups {
		if g.Date == date {
			return g, true
		}
	}
	return AnnouncementGroup{}, false
}

// nextElementSibling は空白テキストとコメントを飛ばして次の兄弟ノードを返す
//
// 空白以外のテキストが挟まっている場合はnilを返す（「直後」ではないため）。
func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		switch s.Type {
		case html.CommentNode:
			continue
		case html.TextNode:
			if strings.TrimSpace(s.Data) == "" {
				continue
			}
			return nil
		case html.ElementNode:
			return s
		default:
			return nil
		}
	}
	return nil
}

// innerHTML はノードの子要素をHTMLとして書き出す
func innerHTML(n *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
