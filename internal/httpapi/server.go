package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MimeLyc/subtitle-bot/internal/jobs"
	"github.com/MimeLyc/subtitle-bot/internal/users"
)

// JobSource is the read side of jobs.Queue.
type JobSource interface {
	Get(id string) (*jobs.Job, bool)
	List() []*jobs.Job
	ListByUser(userID int64) []*jobs.Job
}

// UsageSource reports per-user quota without mutating it.
type UsageSource interface {
	Usage(userID int64) users.Usage
}

type LanguageSource interface {
	Get(userID int64) string
}

// Server is the read-only status API.
type Server struct {
	queue     JobSource
	quota     UsageSource
	languages LanguageSource
	metrics   http.Handler

	streamInterval time.Duration

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithLanguages(languages LanguageSource) Option {
	return func(s *Server) {
		s.languages = languages
	}
}

// WithStreamInterval sets how often /api/jobs/stream pushes a snapshot.
func WithStreamInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamInterval = d
		}
	}
}

func NewServer(queue JobSource, quota UsageSource, opts ...Option) *Server {
	s := &Server{
		queue:          queue,
		quota:          quota,
		streamInterval: time.Second,
		mux:            http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/jobs/", s.handleJobDetail)
	s.mux.HandleFunc("/api/users/", s.handleUser)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics)
	}
}
