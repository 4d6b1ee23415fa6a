// Package metrics exposes Prometheus collectors for a single pipeline run.
//
// The pipeline runs as a batch job (CLI or scheduled Lambda), so collectors
// live on a private registry and are pushed to a Pushgateway at the end of
// the run instead of being scraped.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder holds the run collectors. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	groupsFound        prometheus.Counter
	entriesParsed      prometheus.Counter
	tagLookupHits      prometheus.Counter
	remoteTranslations prometheus.Counter
	runFailures        *prometheus.CounterVec
	lastSuccess        prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		groupsFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "mext_listing_groups_total",
			Help: "Date groups found on the listing page.",
		}),
		entriesParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mext_entries_parsed_total",
			Help: "Announcements parsed from the target date group.",
		}),
		tagLookupHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "mext_tag_lookup_hits_total",
			Help: "Tags translated from the lookup table without a remote call.",
		}),
		remoteTranslations: factory.NewCounter(prometheus.CounterOpts{
			Name: "mext_remote_translations_total",
			Help: "Calls made to the remote translation service.",
		}),
		runFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mext_run_failures_total",
			Help: "Failed pipeline runs, labeled by error kind.",
		}, []string{"kind"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mext_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
}

// Registry returns the private registry (used by tests and Push).
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveGroups adds n to the listing group counter.
func (r *Recorder) ObserveGroups(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.groupsFound.Add(float64(n))
}

// ObserveEntries adds n to the parsed entry counter.
func (r *Recorder) ObserveEntries(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.entriesParsed.Add(float64(n))
}

// TagLookupHit counts a tag answered by the lookup table.
func (r *Recorder) TagLookupHit() {
	if r == nil {
		return
	}
	r.tagLookupHits.Inc()
}

// RemoteTranslation counts a call to the remote translator.
func (r *Recorder) RemoteTranslation() {
	if r == nil {
		return
	}
	r.remoteTranslations.Inc()
}

// RunFailed counts a failed run under the given error kind.
func (r *Recorder) RunFailed(kind string) {
	if r == nil {
		return
	}
	r.runFailures.WithLabelValues(kind).Inc()
}

// RunSucceeded stamps the last-success gauge with the current time.
func (r *Recorder) RunSucceeded() {
	if r == nil {
		return
	}
	r.lastSuccess.SetToCurrentTime()
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, job string, client *http.Client) error {
	if r == nil || url == "" {
		return nil
	}
	p := push.New(url, job).Gatherer(r.registry)
	if client != nil {
		p = p.Client(client)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
