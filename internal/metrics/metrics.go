package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hitokoto/internal/corpus"
	"hitokoto/internal/db"
	"hitokoto/internal/stats"
)

var (
	requestsDesc = prometheus.NewDesc(
		"hitokoto_requests_in_window",
		"Requests counted inside each sliding window",
		[]string{"window"},
		nil,
	)
	corpusQuotesDesc = prometheus.NewDesc(
		"hitokoto_corpus_quotes",
		"Quotes in the published corpus snapshot",
		nil,
		nil,
	)
	corpusLengthDesc = prometheus.NewDesc(
		"hitokoto_corpus_length_bound",
		"Shortest and longest quote length in the published snapshot",
		[]string{"bound"},
		nil,
	)
	corpusRefreshedDesc = prometheus.NewDesc(
		"hitokoto_corpus_refreshed_timestamp_seconds",
		"Unix time the published snapshot was taken",
		nil,
		nil,
	)
)

// Outcome labels.
const (
	OutcomeOK         = "ok"
	OutcomeNotFound   = "not_found"
	OutcomeBadRequest = "bad_request"
	OutcomeError      = "error"
)

// Collector is a custom Prometheus collector that reads window counts and
// corpus aggregates on each scrape.
type Collector struct {
	cache   *corpus.Cache
	counter stats.Counter
	timeout time.Duration
}

// NewCollector creates a collector over cache and counter. Either may be nil.
func NewCollector(cache *corpus.Cache, counter stats.Counter) *Collector {
	return &Collector{cache: cache, counter: counter, timeout: 2 * time.Second}
}

// Describe sends the metric descriptors to the channel.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- corpusQuotesDesc
	ch <- corpusLengthDesc
	ch <- corpusRefreshedDesc
}

// Collect emits the current window counts and snapshot aggregates.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.cache != nil {
		snap := c.cache.Snapshot()
		ch <- prometheus.MustNewConstMetric(corpusQuotesDesc, prometheus.GaugeValue, float64(snap.Count))
		ch <- prometheus.MustNewConstMetric(corpusLengthDesc, prometheus.GaugeValue, float64(snap.MinLength), "min")
		ch <- prometheus.MustNewConstMetric(corpusLengthDesc, prometheus.GaugeValue, float64(snap.MaxLength), "max")
		if !snap.RefreshedAt.IsZero() {
			ch <- prometheus.MustNewConstMetric(corpusRefreshedDesc, prometheus.GaugeValue, float64(snap.RefreshedAt.Unix()))
		}
	}

	if c.counter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	counts, err := c.counter.Snapshot(ctx)
	if err != nil {
		slog.Error("failed to collect request window metrics", "error", err)
		return
	}
	for _, wc := range counts {
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.GaugeValue, float64(wc.Count), wc.Name)
	}
}

// Recorder counts sampling and refresh outcomes. It satisfies corpus.Observer.
type Recorder struct {
	samples   *prometheus.CounterVec
	refreshes *prometheus.CounterVec
}

// NewRecorder creates a recorder and registers its counters with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hitokoto_samples_total",
			Help: "Sampling calls by mode and outcome",
		}, []string{"mode", "outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hitokoto_cache_refreshes_total",
			Help: "Corpus cache refreshes by trigger and outcome",
		}, []string{"trigger", "outcome"}),
	}
	reg.MustRegister(r.samples, r.refreshes)
	return r
}

// ObserveSample counts one sampling call.
func (r *Recorder) ObserveSample(mode string, err error) {
	r.samples.WithLabelValues(mode, Outcome(err)).Inc()
}

// ObserveRefresh counts one cache refresh.
func (r *Recorder) ObserveRefresh(trigger string, err error) {
	r.refreshes.WithLabelValues(trigger, Outcome(err)).Inc()
}

// Outcome maps an error from the sampling path to a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, db.ErrQuoteNotFound), errors.Is(err, corpus.ErrRangeUnsatisfiable):
		return OutcomeNotFound
	case errors.Is(err, corpus.ErrInvalidRange):
		return OutcomeBadRequest
	default:
		return OutcomeError
	}
}

var (
	recorder     *Recorder
	recorderOnce sync.Once
)

// Init registers the collector and the recorder with the default registry.
// Must be called once at startup; later calls return the first recorder.
func Init(cache *corpus.Cache, counter stats.Counter) *Recorder {
	recorderOnce.Do(func() {
		recorder = NewRecorder(prometheus.DefaultRegisterer)
		prometheus.MustRegister(NewCollector(cache, counter))
	})
	return recorder
}
