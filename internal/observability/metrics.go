package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/tutorbridge-backend/internal/domain"
	"github.com/yungbote/tutorbridge-backend/internal/platform/envutil"
	"github.com/yungbote/tutorbridge-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiErrors   *Counter

	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec

	turns      *CounterVec
	turnTime   *HistogramVec
	notaryRuns *CounterVec

	jobRuns    *CounterVec
	jobTime    *HistogramVec
	queueDepth *GaugeVec
	dbStats    *GaugeVec
	redisUp    *Gauge
	redisPing  *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current returns the process metrics, or nil when they are disabled. Every
// method is safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	return envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("tb_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"tb_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 90},
		),
		apiInflight: NewGauge("tb_api_inflight_requests", "In-flight API requests."),
		apiErrors:   NewCounter("tb_api_server_errors_total", "API responses with a 5xx status."),

		llmRequests: NewCounterVec("tb_llm_requests_total", "LLM requests by provider/model/status.", []string{"provider", "model", "status"}),
		llmLatency: NewHistogramVec(
			"tb_llm_request_duration_seconds",
			"LLM request latency in seconds.",
			[]string{"provider", "model", "status"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		),
		llmTokens: NewCounterVec("tb_llm_tokens_total", "LLM tokens by provider/model/kind.", []string{"provider", "model", "kind"}),

		turns: NewCounterVec("tb_tutor_turns_total", "Teacher turns by kind and outcome.", []string{"kind", "outcome"}),
		turnTime: NewHistogramVec(
			"tb_tutor_turn_duration_seconds",
			"Teacher turn duration in seconds.",
			[]string{"kind"},
			[]float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		),
		notaryRuns: NewCounterVec("tb_notary_runs_total", "Notary runs by outcome.", []string{"outcome"}),

		jobRuns: NewCounterVec("tb_job_runs_total", "Job handler runs by type/status.", []string{"job_type", "status"}),
		jobTime: NewHistogramVec(
			"tb_job_run_duration_seconds",
			"Job handler duration in seconds.",
			[]string{"job_type", "status"},
			[]float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		),
		queueDepth: NewGaugeVec("tb_job_queue_depth", "Job queue depth by status.", []string{"status"}),
		dbStats:    NewGaugeVec("tb_db_stats", "Database connection pool stats.", []string{"metric"}),
		redisUp:    NewGauge("tb_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing:  NewGauge("tb_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) writers() []interface{ WritePrometheus(io.Writer) error } {
	return []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiErrors,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.turns, m.turnTime, m.notaryRuns,
		m.jobRuns, m.jobTime, m.queueDepth, m.dbStats, m.redisUp, m.redisPing,
	}
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.writers() {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.apiRequests.Inc(orUnknown(method), orUnknown(route), code)
	m.apiLatency.Observe(dur.Seconds(), orUnknown(method), orUnknown(route), code)
	if status >= 500 {
		m.apiErrors.Inc()
	}
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveLLMRequest(provider, model, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	provider, model, status = orUnknown(provider), orUnknown(model), orUnknown(status)
	m.llmRequests.Inc(provider, model, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), provider, model, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), provider, model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), provider, model, "output")
	}
}

// ObserveTurn records one Teacher turn. kind is "message" or "init"; outcome is
// "ok", "fallback" or the tutoring error kind.
func (m *Metrics) ObserveTurn(kind, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.turns.Inc(orUnknown(kind), orUnknown(outcome))
	m.turnTime.Observe(dur.Seconds(), orUnknown(kind))
}

func (m *Metrics) ObserveNotary(outcome string) {
	if m == nil {
		return
	}
	m.notaryRuns.Inc(orUnknown(outcome))
}

func (m *Metrics) ObserveJob(jobType, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(orUnknown(jobType), orUnknown(status))
	m.jobTime.Observe(dur.Seconds(), orUnknown(jobType), orUnknown(status))
}

// StartCollectors samples pool stats, job queue depth and redis health until
// ctx is done. rdb may be nil.
func (m *Metrics) StartCollectors(ctx context.Context, log *logger.Logger, db *gorm.DB, rdb *goredis.Client) {
	if m == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(scrapeInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.collect(ctx, log, db, rdb)
			}
		}
	}()
}

func (m *Metrics) collect(ctx context.Context, log *logger.Logger, db *gorm.DB, rdb *goredis.Client) {
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			stats := sqlDB.Stats()
			m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
			m.dbStats.Set(float64(stats.InUse), "in_use")
			m.dbStats.Set(float64(stats.Idle), "idle")
			m.dbStats.Set(float64(stats.WaitCount), "wait_count")
			m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
		}

		for _, s := range []string{types.JobStatusQueued, types.JobStatusRunning, types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusCanceled} {
			m.queueDepth.Set(0, s)
		}
		var rows []struct {
			Status string
			Count  int64
		}
		if err := db.WithContext(ctx).
			Model(&types.JobRun{}).
			Select("status, count(*) as count").
			Group("status").
			Scan(&rows).Error; err != nil {
			if log != nil {
				log.Warn("metrics: job queue depth query failed", "error", err)
			}
		}
		for _, row := range rows {
			m.queueDepth.Set(float64(row.Count), orUnknown(row.Status))
		}
	}

	if rdb != nil {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if log != nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	}
}
