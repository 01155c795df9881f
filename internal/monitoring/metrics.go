package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
//
// 所有记录方法都允许在 nil 接收者上调用，未启用监控时直接忽略。
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 账户指标
	AccountsCreated  prometheus.Counter
	AccountsDeleted  prometheus.Counter
	AccountsRestored prometheus.Counter
	AccountsPurged   prometheus.Counter
	AccountsRejected *prometheus.CounterVec

	// 清理任务指标
	PurgeRuns     *prometheus.CounterVec
	PurgeDuration prometheus.Histogram

	// 错误与限流指标
	PanicsTotal     prometheus.Counter
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 在指定注册表上创建监控指标
func NewMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailworker_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailworker_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		AccountsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailworker_accounts_created_total",
			Help: "Total number of accounts created",
		}),

		AccountsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailworker_accounts_deleted_total",
			Help: "Total number of accounts soft-deleted",
		}),

		AccountsRestored: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailworker_accounts_restored_total",
			Help: "Total number of accounts restored",
		}),

		AccountsPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailworker_accounts_purged_total",
			Help: "Total number of accounts physically removed",
		}),

		AccountsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailworker_account_add_rejected_total",
				Help: "Account creation attempts rejected, by reason",
			},
			[]string{"reason"},
		),

		PurgeRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailworker_purge_runs_total",
				Help: "Purge job runs, by result",
			},
			[]string{"result"},
		),

		PurgeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mailworker_purge_duration_seconds",
			Help:    "Purge job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}),

		PanicsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mailworker_panics_total",
			Help: "Total number of recovered panics",
		}),

		RateLimitBlocks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailworker_rate_limit_blocks_total",
				Help: "Requests blocked by rate limiting",
			},
			[]string{"endpoint"},
		),
	}
}

// NewDefaultMetrics 使用独立注册表创建指标，并附带 Go 运行时和进程指标
func NewDefaultMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewMetrics(reg, reg)
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAccountCreated 记录账户创建
func (m *Metrics) RecordAccountCreated() {
	if m == nil {
		return
	}
	m.AccountsCreated.Inc()
}

// RecordAccountDeleted 记录账户软删除
func (m *Metrics) RecordAccountDeleted() {
	if m == nil {
		return
	}
	m.AccountsDeleted.Inc()
}

// RecordAccountsRestored 记录恢复的账户数
func (m *Metrics) RecordAccountsRestored(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.AccountsRestored.Add(float64(n))
}

// RecordAccountRejected 记录被拒绝的创建请求
func (m *Metrics) RecordAccountRejected(reason string) {
	if m == nil {
		return
	}
	m.AccountsRejected.WithLabelValues(reason).Inc()
}

// RecordPurge 记录一次清理任务
func (m *Metrics) RecordPurge(result string, purged int, duration time.Duration) {
	if m == nil {
		return
	}
	m.PurgeRuns.WithLabelValues(result).Inc()
	m.PurgeDuration.Observe(duration.Seconds())
	if purged > 0 {
		m.AccountsPurged.Add(float64(purged))
	}
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(endpoint string) {
	if m == nil {
		return
	}
	m.RateLimitBlocks.WithLabelValues(endpoint).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	if m == nil || m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
