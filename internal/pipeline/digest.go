// =============================================================================
// digest.go - ダイジェストの組み立て
// =============================================================================
//
// 原文レコードと翻訳レコードを同じ位置どうしで組み合わせ、メール本文・JSON出力
// に使うDigestEntryを作ります。
//
// 件数が違う場合は実装のバグなので、切り詰めや空埋めはせず
// *CountMismatchError を返します。
//
// =============================================================================
package pipeline

// AssembleDigest は原文と翻訳を1件ずつ組み合わせる
func AssembleDigest(originals []AnnouncementRecord, translated []TranslatedRecord) ([]DigestEntry, error) {
	if len(originals) != len(translated) {
		return nil, &CountMismatchError{Originals: len(originals), Translated: len(translated)}
	}

	entries := make([]DigestEntry, len(originals))
	for i, o := range originals {
		tr := translated[i]
		url := o.URL
		if url == "" {
			url = tr.URL
		}
		entries[i] = DigestEntry{
			Title:           o.Title,
			TranslatedTitle: tr.Title,
			URL:             url,
			Tags:            append([]string{}, o.Tags...),
			TranslatedTags:  append([]string{}, tr.Tags...),
		}
	}
	return entries, nil
}
