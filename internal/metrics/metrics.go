package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Enroll outcomes recorded by RecordEnroll.
const (
	OutcomeEnrolled    = "enrolled"
	OutcomeConflict    = "conflict"
	OutcomeDuplicate   = "duplicate"
	OutcomeIneligible  = "ineligible"
	OutcomeNotFound    = "not_found"
	OutcomeUnavailable = "error"
)

// Metrics holds the planner's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	enrolls      *prometheus.CounterVec
	overLimit    *prometheus.CounterVec
	parseCache   *prometheus.CounterVec
	imports      *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New registers the planner collectors on reg. If reg is nil, the default
// registerer is used. Collectors that are already registered are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		enrolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_enroll_attempts_total",
			Help: "Enroll attempts by outcome",
		}, []string{"outcome"}),
		overLimit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_credit_over_limit_total",
			Help: "Working sets whose credit total exceeded the cap after a change",
		}, []string{"degree_type"}),
		parseCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_time_parse_cache_total",
			Help: "Time text parse cache lookups",
		}, []string{"hit"}),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_imports_total",
			Help: "Catalog import jobs by final status",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	var err error
	if m.enrolls, err = registerCounter(reg, m.enrolls); err != nil {
		return nil, err
	}
	if m.overLimit, err = registerCounter(reg, m.overLimit); err != nil {
		return nil, err
	}
	if m.parseCache, err = registerCounter(reg, m.parseCache); err != nil {
		return nil, err
	}
	if m.imports, err = registerCounter(reg, m.imports); err != nil {
		return nil, err
	}
	if m.httpRequests, err = registerCounter(reg, m.httpRequests); err != nil {
		return nil, err
	}
	if err := reg.Register(m.httpLatency); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		m.httpLatency = are.ExistingCollector.(*prometheus.HistogramVec)
	}

	return m, nil
}

func registerCounter(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec), nil
		}
		return nil, err
	}
	return c, nil
}

// RecordEnroll counts one enroll attempt.
func (m *Metrics) RecordEnroll(outcome string) {
	if m == nil {
		return
	}
	m.enrolls.WithLabelValues(outcome).Inc()
}

// EnrollCounter exposes the counter of one enroll outcome.
func (m *Metrics) EnrollCounter(outcome string) prometheus.Counter {
	return m.enrolls.WithLabelValues(outcome)
}

// RecordOverLimit counts a working set that crossed its credit cap.
func (m *Metrics) RecordOverLimit(degree string) {
	if m == nil {
		return
	}
	m.overLimit.WithLabelValues(degree).Inc()
}

// ObserveParseCache is a schedule.WithCacheObserver callback.
func (m *Metrics) ObserveParseCache(hit bool) {
	if m == nil {
		return
	}
	m.parseCache.WithLabelValues(strconv.FormatBool(hit)).Inc()
}

// RecordImport counts a finished catalog import.
func (m *Metrics) RecordImport(status string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(status).Inc()
}

// RecordHTTP counts and times one served request.
func (m *Metrics) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
