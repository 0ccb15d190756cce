package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"world-builder/internal/domain"
	"world-builder/internal/infra/metrics"
)

// JobRunner запускает задание по имени.
type JobRunner interface {
	Run(ctx context.Context, name domain.JobName, opts domain.JobOptions) (domain.JobResult, error)
}

// Server оборачивает chi.Router с базовыми middlewares.
type Server struct {
	Router chi.Router
	log    zerolog.Logger
	srv    *http.Server
}

// NewServer создаёт административный HTTP сервер: /healthz, /metrics и ручной запуск заданий.
func NewServer(logger zerolog.Logger, runner JobRunner, jobs []domain.JobName, adminToken string) *Server {
	s := &Server{log: logger.With().Str("component", "http").Logger()}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())
	r.Route("/jobs", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(adminToken))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
		})
		r.Post("/{job}", s.runJob(runner))
	})
	s.Router = r
	s.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Minute,
	}
	return s
}

func (s *Server) runJob(runner JobRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := domain.JobName(chi.URLParam(r, "job"))
		q := r.URL.Query()
		opts := domain.JobOptions{
			TargetDate:      q.Get("date"),
			TargetWeekStart: q.Get("week_start"),
			TestUserID:      q.Get("test_user"),
		}
		// задание доводится до конца даже при обрыве соединения
		res, err := runner.Run(context.WithoutCancel(r.Context()), name, opts)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrInvalidOption):
			writeError(w, http.StatusBadRequest, err.Error())
		case err != nil:
			s.log.Error().Err(err).Str("job", string(name)).Msg("http: ручной запуск не удался")
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, res)
		}
	}
}

// Start слушает addr и блокируется до остановки сервера.
// После Shutdown возвращается сразу.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info().Str("addr", ln.Addr().String()).Msg("http: сервер запущен")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown позволяет корректно завершить работу; безопасен до и во время Start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
