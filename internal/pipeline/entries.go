// =============================================================================
// entries.go - 日付グループ内の新着情報の解析
// =============================================================================
//
// AnnouncementGroup.RawMarkup（<ul class="news_list">の中身）を1件ずつの
// AnnouncementRecordに分解します。
//
// 【1件分のHTML例】
//
//	<li>
//	  <div class="area_tag tag2">
//	    <span class="tag contents_fieldicon_01">教育</span>
//	    <span class="tag genre_10">審議会情報</span>
//	  </div>
//	  <span class="link"><a href="/b_menu/test/url.html">なにかの議事録</a></span>
//	</li>
//
// 【抽出ルール】
//   - タイトル・URL: 最初の a[href]（必須。なければ MalformedEntryError）
//   - タグ:          span.tag すべて（出現順、0件可）
//   - URL:           相対パスはサイトのオリジン（https://www.mext.go.jp）で絶対URL化
//
// =============================================================================
package pipeline

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	selEntryLink = cascadia.MustCompile("a[href]")
	selEntryTag  = cascadia.MustCompile("span.tag")
)

// EntryParser はグループのHTMLを新着情報レコードに分解する
type EntryParser struct {
	origin *url.URL
}

// NewEntryParser は相対URLの解決に使うオリジン（例: "https://www.mext.go.jp"）を指定して作成する
func NewEntryParser(origin string) (*EntryParser, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse site origin %q: %w", origin, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("site origin must be an absolute URL: %q", origin)
	}
	return &EntryParser{origin: u}, nil
}

// Parse はRawMarkupをページ上の順序どおりのAnnouncementRecordに変換する
//
// 空文字列（その日の記事が0件）の場合は空スライスを返す。エラーではない。
// 項目はあるのにリンクが見つからない場合は*MalformedEntryErrorを返す。
func (p *EntryParser) Parse(raw string) ([]AnnouncementRecord, error) {
	if strings.TrimSpace(raw) == "" {
		return []AnnouncementRecord{}, nil
	}

	// <ul>の中身として解析する（<li>が正しく扱われるように）
	list := &html.Node{Type: html.ElementNode, Data: "ul", DataAtom: atom.Ul}
	nodes, err := html.ParseFragment(strings.NewReader(raw), list)
	if err != nil {
		return nil, fmt.Errorf("failed to parse news list: %w", err)
	}

	records := make([]AnnouncementRecord, 0, len(nodes))
	for _, n := range nodes {
		switch n.Type {
		case html.CommentNode:
			continue
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
			// <li>の外に本文がある = 想定しているマークアップではない
			return nil, &MalformedEntryError{Fragment: n.Data, Reason: "text outside of list item"}
		case html.ElementNode:
			rec, err := p.parseItem(n)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// parseItem は1件分（通常は<li>）からタイトル・URL・タグを取り出す
func (p *EntryParser) parseItem(n *html.Node) (AnnouncementRecord, error) {
	item := goquery.NewDocumentFromNode(n).Selection

	link := item.FilterMatcher(selEntryLink)
	if link.Length() == 0 {
		link = item.FindMatcher(selEntryLink).First()
	}
	if link.Length() == 0 {
		return AnnouncementRecord{}, &MalformedEntryError{Fragment: outerHTML(item), Reason: "no link"}
	}

	href := strings.TrimSpace(link.AttrOr("href", ""))
	if href == "" {
		return AnnouncementRecord{}, &MalformedEntryError{Fragment: outerHTML(item), Reason: "empty href"}
	}
	title := normalizeWhitespace(link.Text())
	if title == "" {
		return AnnouncementRecord{}, &MalformedEntryError{Fragment: outerHTML(item), Reason: "empty title"}
	}
	abs, err := p.resolve(href)
	if err != nil {
		return AnnouncementRecord{}, &MalformedEntryError{Fragment: outerHTML(item), Reason: err.Error()}
	}

	tags := []string{}
	item.FindMatcher(selEntryTag).Each(func(_ int, s *goquery.Selection) {
		if tag := normalizeWhitespace(s.Text()); tag != "" {
			tags = append(tags, tag)
		}
	})

	return AnnouncementRecord{Title: title, URL: abs, Tags: tags}, nil
}

// resolve はhrefを絶対URLにする
//
// スキーム付き（https://...）はそのまま、それ以外はオリジン基準で解決する。
func (p *EntryParser) resolve(href string) (string, error) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	if ref.IsAbs() {
		return href, nil
	}
	return p.origin.ResolveReference(ref).String(), nil
}

// outerHTML はエラーメッセージ用に要素のHTMLを返す（失敗時は本文テキスト）
func outerHTML(s *goquery.Selection) string {
	h, err := goquery.OuterHtml(s)
	if err != nil {
		return s.Text()
	}
	return h
}
