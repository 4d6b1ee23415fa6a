package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	t.Parallel()

	r := New()
	r.ObserveGroups(3)
	r.ObserveEntries(4)
	r.ObserveEntries(0)
	r.TagLookupHit()
	r.TagLookupHit()
	r.RemoteTranslation()
	r.RunFailed("parse")
	r.RunFailed("parse")
	r.RunFailed("translation")

	assert.Equal(t, 3.0, testutil.ToFloat64(r.groupsFound))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.entriesParsed))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.tagLookupHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.remoteTranslations))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runFailures.WithLabelValues("parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.runFailures.WithLabelValues("translation")))
}

func TestRecorderRegistryExposesCollectors(t *testing.T) {
	t.Parallel()

	r := New()
	r.RemoteTranslation()

	expected := `
# HELP mext_remote_translations_total Calls made to the remote translation service.
# TYPE mext_remote_translations_total counter
mext_remote_translations_total 1
`
	err := testutil.GatherAndCompare(r.Registry(), strings.NewReader(expected), "mext_remote_translations_total")
	require.NoError(t, err)
}

func TestNilRecorderIsNoop(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.ObserveGroups(1)
	r.ObserveEntries(1)
	r.TagLookupHit()
	r.RemoteTranslation()
	r.RunFailed("other")
	r.RunSucceeded()
	assert.Nil(t, r.Registry())
	require.NoError(t, r.Push(context.Background(), "http://unused", "job", nil))
}

func TestPush(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		path.Store(req.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.RunSucceeded()
	require.NoError(t, r.Push(context.Background(), srv.URL, "mext_relay", srv.Client()))
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "/metrics/job/mext_relay", path.Load())
}

func TestPushSkippedWithoutURL(t *testing.T) {
	t.Parallel()

	r := New()
	require.NoError(t, r.Push(context.Background(), "", "job", nil))
}

func TestPushError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "mext_relay", srv.Client())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
