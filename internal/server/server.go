// Package server shares the generated config over HTTP, gated by an optional
// access token.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kyson-dev/sub-optimizer/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options serve 参数
type Options struct {
	Listen     string
	ConfigPath string
	// Token 为空时拒绝所有 /config 请求
	Token string
}

type Server struct {
	opts     Options
	router   *chi.Mux
	requests *prometheus.CounterVec
	gatherer prometheus.Gatherer
}

// New 创建 Server，reg 为 nil 时使用独立的 registry
func New(opts Options, reg *prometheus.Registry) *Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		opts: opts,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sub_optimizer_config_requests_total",
				Help: "Config download requests by response code.",
			},
			[]string{"code"},
		),
		gatherer: reg,
	}
	reg.MustRegister(s.requests)
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/config", s.serveConfig)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// ListenAndServe 阻塞直到 ctx 取消，然后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	if s.opts.Token == "" {
		logger.Warn("No access token configured, every /config request will be refused", "env", "AUTH_TOKEN")
	}

	go func() {
		logger.Info("Config server listening", "addr", s.opts.Listen, "path", s.opts.ConfigPath)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Config server stopping")
		return httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func (s *Server) serveConfig(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.fail(w, http.StatusForbidden, "Forbidden: Invalid token")
		return
	}

	// 每次请求都重新读取，外部定时任务更新文件后立即生效
	data, err := os.ReadFile(s.opts.ConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			s.fail(w, http.StatusNotFound, "config not generated yet")
			return
		}
		logger.Error("Failed to read config", "path", s.opts.ConfigPath, "error", err)
		s.fail(w, http.StatusInternalServerError, "failed to read config")
		return
	}

	logger.Info("Received subscription request", "remote", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.Header().Set("Cache-Control", "max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	s.requests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
}

func (s *Server) authorized(r *http.Request) bool {
	token := r.URL.Query().Get("token")
	if s.opts.Token == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.Token)) == 1
}

func (s *Server) fail(w http.ResponseWriter, code int, msg string) {
	s.requests.WithLabelValues(strconv.Itoa(code)).Inc()
	http.Error(w, msg, code)
}
