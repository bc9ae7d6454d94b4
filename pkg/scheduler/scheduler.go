package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task is a periodic unit of work.
type Task func(ctx context.Context) error

// Scheduler runs named tasks on cron specs. Spec strings accept the standard
// five fields as well as descriptors such as @hourly and @every 5m.
type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New builds a scheduler. Each run gets its own context bounded by timeout.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds task under spec. Overlapping runs of the same task are skipped.
func (s *Scheduler) Register(name, spec string, task Task) error {
	if spec == "" {
		return fmt.Errorf("schedule for %s is empty", name)
	}
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.logger.Sugar()})).Then(cron.FuncJob(func() {
		s.run(name, task)
	}))
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	s.logger.Info("scheduled task registered", zap.String("task", name), zap.String("spec", spec))
	return nil
}

// Len reports the number of registered tasks.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts new runs and waits for running tasks to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := task(ctx); err != nil {
		s.logger.Error("scheduled task failed", zap.String("task", name), zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Info("scheduled task finished", zap.String("task", name), zap.Duration("duration", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger. Routine scheduling chatter is
// demoted to debug.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
