// Package job dispara las tareas periódicas del servicio sobre robfig/cron.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
)

// Runnable es una tarea que el scheduler ejecuta con un contexto acotado.
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

const DefaultTimeout = 9 * time.Minute

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	mu      sync.Mutex
	started bool
}

// NewScheduler acepta expresiones de 5 campos, segundos opcionales y descriptores (@every 10m).
func NewScheduler(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
	}
}

func (s *Scheduler) Register(spec string, r Runnable) (cron.EntryID, error) {
	if r == nil {
		return 0, errors.New("scheduler: runnable requerido")
	}
	if spec == "" {
		return 0, errors.New("scheduler: expresión cron vacía")
	}
	id, err := s.cron.AddFunc(spec, s.wrap(r))
	if err != nil {
		return 0, fmt.Errorf("scheduler: expresión %q: %w", spec, err)
	}
	s.logger.Info("job registrado", zap.String("job", r.Name()), zap.String("spec", spec))
	return id, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop detiene el cron; el contexto devuelto se cierra cuando terminan los jobs en curso.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.started = false
	return s.cron.Stop()
}

func (s *Scheduler) wrap(r Runnable) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.runOnce(ctx, r)
	}
}

func (s *Scheduler) runOnce(ctx context.Context, r Runnable) {
	start := time.Now()
	err := r.Run(ctx)
	switch {
	case err == nil:
		s.logger.Debug("job completado", zap.String("job", r.Name()), zap.Duration("elapsed", time.Since(start)))
	case apperr.IsPrecondition(err):
		s.logger.Warn("job omitido", zap.String("job", r.Name()), zap.Error(err))
	default:
		s.logger.Error("job falló", zap.String("job", r.Name()), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
	}
}
