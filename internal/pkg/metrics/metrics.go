// Package metrics 服务指标，由 /metrics 暴露给 Prometheus
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aipara_account"

type Metrics struct {
	actionTotal    *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	httpTotal      *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	pointsReset    prometheus.Counter
	factory        promauto.Factory
}

// New 在 reg 上注册全部指标，reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		actionTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Profile service actions by action and result code.",
		}, []string{"action", "code"}),
		actionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Profile service action latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		httpTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		pointsReset: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_reset_total",
			Help:      "Profiles whose monthly points were reset.",
		}),
		factory: f,
	}
}

// ObserveAction 记录一次 action 调用；m 为 nil 时不做任何事
func (m *Metrics) ObserveAction(action string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if action == "" {
		action = "none"
	}
	m.actionTotal.WithLabelValues(action, strconv.Itoa(code)).Inc()
	m.actionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if path == "" {
		path = "unmatched"
	}
	m.httpTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) AddPointsReset(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pointsReset.Add(float64(n))
}

// TrackConnections 以 count 的返回值作为在线推送连接数，只应调用一次
func (m *Metrics) TrackConnections(count func() int) {
	if m == nil || count == nil {
		return
	}
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Open account event websocket connections.",
	}, func() float64 { return float64(count()) })
}
