package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"flowbuilder/internal/app/editor"
	"flowbuilder/internal/domain/flow/port"
	applog "flowbuilder/internal/platform/log"
	"flowbuilder/internal/platform/metrics"
)

// ServerConfig 服务配置
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string // CORS 允许的来源，为空时允许全部
	JWTSecret      string   // JWT 签名密钥（为空时不开启鉴权）
	JWTIssuer      string   // JWT 签发者（可选）
}

// DefaultServerConfig 默认配置
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Server HTTP 服务器
type Server struct {
	config  *ServerConfig
	manager *editor.Manager
	gateway *port.Gateway
	metrics *metrics.Collector
	httpSrv *http.Server
}

// NewServer 创建服务器，collector 可为 nil
func NewServer(config *ServerConfig, manager *editor.Manager, gateway *port.Gateway, collector *metrics.Collector) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}
	return &Server{
		config:  config,
		manager: manager,
		gateway: gateway,
		metrics: collector,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.buildRouter(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("Flow builder API server starting on %s", addr)
	return s.httpSrv.ListenAndServe()
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}

// Handler 返回 HTTP Handler（用于测试）
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(s.corsOptions()))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	flowHandler := NewFlowHandler(s.gateway)
	sessionHandler := NewSessionHandler(s.manager)

	r.Group(func(r chi.Router) {
		if strings.TrimSpace(s.config.JWTSecret) != "" {
			r.Use(authMiddleware(&JWTConfig{
				Secret: s.config.JWTSecret,
				Issuer: s.config.JWTIssuer,
			}))
		} else {
			applog.Warn("[API] JWT_SECRET not set, API routes are unauthenticated")
		}
		flowHandler.RegisterRoutes(r)
		sessionHandler.RegisterRoutes(r)
	})
	return r
}

func (s *Server) corsOptions() cors.Options {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
}
