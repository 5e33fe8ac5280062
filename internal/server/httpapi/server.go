// Package httpapi exposes the file service over a JSON/multipart REST API.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/atomic"
)

type ServerConfig struct {
	ListenAddr  string
	CORSOrigins []string
	Log         *slog.Logger

	RequestTimeout    time.Duration
	UploadTimeout     time.Duration
	DownloadTimeout   time.Duration
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type Server struct {
	cfg     *ServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv     *http.Server
	handler *Handler
}

func New(cfg *ServerConfig, handler *Handler) *Server {
	srv := &Server{
		cfg:     cfg,
		log:     cfg.Log,
		handler: handler,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.getRouter(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return srv
}

// Handler returns the root router, for tests and embedding.
func (srv *Server) Handler() http.Handler {
	return srv.srv.Handler
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: srv.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	mux.Use(srv.httpLogger)

	mux.Route("/api", func(r chi.Router) {
		r.With(withTimeout(srv.cfg.RequestTimeout)).Get("/health", srv.handler.HandleHealth)
		r.With(withTimeout(srv.cfg.RequestTimeout)).Get("/files", srv.handler.HandleList)
		r.With(withTimeout(srv.cfg.UploadTimeout)).Post("/upload", srv.handler.HandleUpload)
		r.With(withTimeout(srv.cfg.RequestTimeout)).Post("/verify/{file_id}", srv.handler.HandleVerify)
		r.With(withTimeout(srv.cfg.DownloadTimeout)).Post("/download/{file_id}", srv.handler.HandleDownload)
		r.With(withTimeout(srv.cfg.RequestTimeout)).Delete("/delete/{file_id}", srv.handler.HandleDelete)
	})

	mux.Get("/readyz", srv.handleReadinessCheck)
	mux.Get("/drain", srv.handleDrain)
	mux.Get("/undrain", srv.handleUndrain)

	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

// withTimeout puts a deadline on the request context. Unlike chi's Timeout
// middleware it writes nothing itself; the service sees the cancelled context
// and the handler answers with the mapped status.
func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already draining"})
		return
	}
	srv.log.Info("Server marked as not ready")
	writeJSON(w, http.StatusOK, map[string]string{"status": "draining"})
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already ready"})
		return
	}
	srv.log.Info("Server marked as ready")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// RunInBackground listens on the configured address. errc receives the
// listener error, if any; it is never closed.
func (srv *Server) RunInBackground(errc chan<- error) {
	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
			errc <- err
		}
	}()
}

func (srv *Server) Shutdown() {
	srv.isReady.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}
}
