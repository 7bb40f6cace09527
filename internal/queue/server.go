package queue

import (
	"github.com/hibiken/asynq"

	"github.com/yuelin-song/communitykb/internal/config"
)

// Server runs the worker-side consumer loop.
type Server struct {
	srv *asynq.Server
	mux *asynq.ServeMux
}

func NewServer(cfg config.RedisConfig, concurrency int) *Server {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Server{
		srv: asynq.NewServer(
			asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB},
			asynq.Config{Concurrency: concurrency},
		),
		mux: asynq.NewServeMux(),
	}
}

func (s *Server) Register(taskType string, handler asynq.Handler) {
	s.mux.Handle(taskType, handler)
}

// Run blocks until Shutdown is called.
func (s *Server) Run() error {
	return s.srv.Run(s.mux)
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}
