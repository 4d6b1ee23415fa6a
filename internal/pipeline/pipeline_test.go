package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mext-relay/internal/metrics"
)

// fakeFetcher は固定のHTML（またはエラー）を返すPageFetcher
type fakeFetcher struct {
	page string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.page, f.err
}

func newTestPipeline(t *testing.T, fetcher PageFetcher, remote RemoteTranslator, noTranslate bool) (*Pipeline, *metrics.Recorder, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zap.DebugLevel)
	rec := metrics.New()
	p, err := NewPipeline(testConfig(), Options{
		Fetcher:     fetcher,
		Remote:      remote,
		NoTranslate: noTranslate,
		Logger:      zap.New(core),
		Metrics:     rec,
	})
	require.NoError(t, err)
	return p, rec, logs
}

func TestPipelineRunTargetDate(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{page: loadListingFixture(t)}
	remote := &fakeRemote{}
	p, rec, _ := newTestPipeline(t, fetcher, remote, false)

	d, err := p.Run(context.Background(), CalendarDate{2024, time.January, 29})
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultSourceURL}, fetcher.urls)
	assert.Equal(t, CalendarDate{2024, time.January, 29}, d.Date)
	assert.Equal(t, DefaultSourceURL, d.SourceURL)
	require.Len(t, d.Entries, 4)

	for i, e := range d.Entries {
		assert.Equal(t, fixtureRecords[i].Title, e.Title)
		assert.Equal(t, "EN<"+fixtureRecords[i].Title+">", e.TranslatedTitle)
		assert.Equal(t, fixtureRecords[i].URL, e.URL)
		assert.Equal(t, fixtureRecords[i].Tags, e.Tags)
		assert.Len(t, e.TranslatedTags, len(e.Tags))
	}
	assert.Equal(t, []string{"Science, Technology, and Academia", "Council Information", "Press Release"}, d.Entries[2].TranslatedTags)

	expected := `
# HELP mext_entries_parsed_total Announcements parsed from the target date group.
# TYPE mext_entries_parsed_total counter
mext_entries_parsed_total 4
# HELP mext_listing_groups_total Date groups found on the listing page.
# TYPE mext_listing_groups_total counter
mext_listing_groups_total 2
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected),
		"mext_entries_parsed_total", "mext_listing_groups_total"))
}

func TestPipelineRunOtherDate(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t, &fakeFetcher{page: loadListingFixture(t)}, &fakeRemote{}, false)

	d, err := p.Run(context.Background(), CalendarDate{2024, time.January, 26})
	require.NoError(t, err)
	require.Len(t, d.Entries, 1)
	assert.Equal(t, "https://www.mext.go.jp/b_menu/daijin/detail/test.html", d.Entries[0].URL)
	assert.Equal(t, []string{"Cross-Disciplinary", "Ministerial Press Conference"}, d.Entries[0].TranslatedTags)
}

func TestPipelineRunAbsentDate(t *testing.T) {
	t.Parallel()

	remote := &fakeRemote{}
	p, _, logs := newTestPipeline(t, &fakeFetcher{page: loadListingFixture(t)}, remote, false)

	d, err := p.Run(context.Background(), CalendarDate{2024, time.January, 27})
	require.NoError(t, err)
	assert.NotNil(t, d.Entries)
	assert.Empty(t, d.Entries)
	assert.Equal(t, 0, remote.callCount())
	assert.Equal(t, 1, logs.FilterMessage("no date group for target date").Len())
}

func TestPipelineRunEmptyGroup(t *testing.T) {
	t.Parallel()

	page := `<h3 class="information-date">令和6年1月29日</h3><ul class="news_list"> </ul>`
	remote := &fakeRemote{}
	p, _, logs := newTestPipeline(t, &fakeFetcher{page: page}, remote, false)

	d, err := p.Run(context.Background(), CalendarDate{2024, time.January, 29})
	require.NoError(t, err)
	assert.Empty(t, d.Entries)
	assert.Equal(t, 0, remote.callCount())
	assert.Equal(t, 1, logs.FilterMessage("date group has no announcements").Len())
}

func TestPipelineRunNoTranslate(t *testing.T) {
	t.Parallel()

	p, rec, _ := newTestPipeline(t, &fakeFetcher{page: loadListingFixture(t)}, nil, true)
	assert.Nil(t, p.Translator)

	d, err := p.Run(context.Background(), CalendarDate{2024, time.January, 29})
	require.NoError(t, err)
	require.Len(t, d.Entries, 4)
	for _, e := range d.Entries {
		assert.Empty(t, e.TranslatedTitle)
		assert.NotNil(t, e.TranslatedTags)
		assert.Empty(t, e.TranslatedTags)
	}

	expected := `
# HELP mext_remote_translations_total Calls made to the remote translation service.
# TYPE mext_remote_translations_total counter
mext_remote_translations_total 0
`
	require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "mext_remote_translations_total"))
}

func TestPipelineRunErrors(t *testing.T) {
	t.Parallel()

	badHeading := `<h3 class="information-date">令和6年2月30日</h3><ul class="news_list"><li><a href="/a.html">A</a></li></ul>`
	badEntry := `<h3 class="information-date">令和6年1月29日</h3><ul class="news_list"><li>リンクなし</li></ul>`

	tests := []struct {
		name     string
		fetcher  *fakeFetcher
		remote   RemoteTranslator
		wantKind string
	}{
		{"fetch failure", &fakeFetcher{err: errors.New("connection reset")}, &fakeRemote{}, "other"},
		{"unreadable heading date", &fakeFetcher{page: badHeading}, &fakeRemote{}, "parse"},
		{"entry without link", &fakeFetcher{page: badEntry}, &fakeRemote{}, "malformed_entry"},
		{"missing credential", &fakeFetcher{page: loadListingFixture(t)}, nil, "missing_credential"},
		{
			"translation failure",
			&fakeFetcher{page: loadListingFixture(t)},
			&fakeRemote{err: &TranslationError{Text: "x", StatusCode: 500, Err: errors.New("boom")}},
			"translation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// remoteがnilの場合はAPIキーなしのDeepLクライアントが使われる
			p, rec, _ := newTestPipeline(t, tt.fetcher, tt.remote, false)

			d, err := p.Run(context.Background(), CalendarDate{2024, time.January, 29})
			require.Error(t, err)
			assert.Nil(t, d)
			assert.Equal(t, tt.wantKind, ErrorKind(err))

			expected := `
# HELP mext_run_failures_total Failed pipeline runs, labeled by error kind.
# TYPE mext_run_failures_total counter
mext_run_failures_total{kind="` + tt.wantKind + `"} 1
`
			require.NoError(t, testutil.GatherAndCompare(rec.Registry(), strings.NewReader(expected), "mext_run_failures_total"))
		})
	}
}

func TestNewPipelineInvalidOrigin(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Source.Origin = "not-a-url"
	_, err := NewPipeline(cfg, Options{})
	require.Error(t, err)
}

func TestNewPipelineDefaults(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(testConfig(), Options{})
	require.NoError(t, err)
	assert.IsType(t, &CollyFetcher{}, p.Fetcher)
	require.NotNil(t, p.Translator)
	assert.IsType(t, &DeepLClient{}, p.Translator.remote)
}
