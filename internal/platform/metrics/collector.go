package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 应用的 Prometheus 指标。每个实例持有独立的 registry，测试之间互不干扰
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	NodesCreated        prometheus.Counter
	NodesRemoved        prometheus.Counter
	EdgesCreated        prometheus.Counter
	EdgesRemoved        prometheus.Counter
	ConnectionsRejected *prometheus.CounterVec
	Validations         *prometheus.CounterVec
	Saves               *prometheus.CounterVec
	Loads               *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

// NewCollector 创建并注册所有指标
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		NodesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_created_total",
			Help:      "Total number of nodes dropped onto a canvas",
		}),
		NodesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_removed_total",
			Help:      "Total number of nodes removed",
		}),
		EdgesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_created_total",
			Help:      "Total number of accepted connections",
		}),
		EdgesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_removed_total",
			Help:      "Total number of removed connections",
		}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_rejected_total",
			Help:      "Connections rejected by the constraint policy",
		}, []string{"kind"}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Structural validation runs by result",
		}, []string{"result"}),
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Flow saves by result",
		}, []string{"result"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Flow loads by outcome",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of open editor sessions",
		}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.NodesCreated,
		c.NodesRemoved,
		c.EdgesCreated,
		c.EdgesRemoved,
		c.ConnectionsRejected,
		c.Validations,
		c.Saves,
		c.Loads,
		c.ActiveSessions,
	)
	return c
}

// Registry 返回底层 registry
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveSave 实现 port.Recorder
func (c *Collector) ObserveSave(ok bool) {
	if ok {
		c.Saves.WithLabelValues("ok").Inc()
	} else {
		c.Saves.WithLabelValues("error").Inc()
	}
}

// ObserveLoad 实现 port.Recorder
func (c *Collector) ObserveLoad(outcome string) {
	c.Loads.WithLabelValues(outcome).Inc()
}

// ObserveValidation 记录一次结构校验
func (c *Collector) ObserveValidation(valid bool) {
	if valid {
		c.Validations.WithLabelValues("valid").Inc()
	} else {
		c.Validations.WithLabelValues("invalid").Inc()
	}
}

// Middleware 记录 HTTP 请求数与耗时，route 使用 chi 的路由模板
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (c *Collector) NodeCreated() { c.NodesCreated.Inc() }
func (c *Collector) NodeRemoved() { c.NodesRemoved.Inc() }
func (c *Collector) EdgeCreated() { c.EdgesCreated.Inc() }
func (c *Collector) EdgeRemoved() { c.EdgesRemoved.Inc() }

// ConnectionRejected 按违规类型计数
func (c *Collector) ConnectionRejected(kind string) {
	c.ConnectionsRejected.WithLabelValues(kind).Inc()
}

// SessionsChanged 更新当前会话数
func (c *Collector) SessionsChanged(n int) {
	c.ActiveSessions.Set(float64(n))
}
