package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/observability"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultTriggerLockTTL = 50 * time.Second

// Trigger is one scheduled job.
type Trigger struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// ConnectivitySource supplies the connectivity snapshot passed to each trigger invocation.
type ConnectivitySource interface {
	Snapshot() Connectivity
}

// TriggerLocker grants a lease that keeps other replicas from firing the same tick.
type TriggerLocker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
}

// Scheduler fires triggers on their cron specs in UTC. Every trigger is skipped while offline.
type Scheduler struct {
	triggers     []Trigger
	connectivity ConnectivitySource
	locker       TriggerLocker
	lockTTL      time.Duration
	metrics      *observability.Metrics
	logger       *zap.Logger
}

func NewScheduler(triggers []Trigger, connectivity ConnectivitySource, logger *zap.Logger) (*Scheduler, error) {
	if len(triggers) == 0 {
		return nil, fmt.Errorf("at least one trigger is required")
	}
	seen := make(map[string]struct{}, len(triggers))
	for _, t := range triggers {
		if strings.TrimSpace(t.Name) == "" || t.Run == nil {
			return nil, fmt.Errorf("trigger needs a name and a run func")
		}
		if _, ok := seen[t.Name]; ok {
			return nil, fmt.Errorf("duplicate trigger %q", t.Name)
		}
		seen[t.Name] = struct{}{}
		if _, err := cron.ParseStandard(t.Spec); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q for trigger %q: %w", t.Spec, t.Name, err)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		triggers:     triggers,
		connectivity: connectivity,
		lockTTL:      defaultTriggerLockTTL,
		logger:       logger,
	}, nil
}

func (s *Scheduler) SetLocker(locker TriggerLocker) {
	if s == nil {
		return
	}
	s.locker = locker
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start registers every trigger and blocks until ctx is done, then waits for running jobs.
func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cronLogger := cronZapLogger{logger: s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	for _, trigger := range s.triggers {
		trigger := trigger
		if _, err := c.AddFunc(trigger.Spec, func() {
			s.fire(ctx, trigger, s.snapshot())
		}); err != nil {
			return fmt.Errorf("failed to schedule trigger %q: %w", trigger.Name, err)
		}
		s.logger.Info("trigger scheduled", zap.String("trigger", trigger.Name), zap.String("spec", trigger.Spec))
	}

	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) snapshot() Connectivity {
	if s.connectivity == nil {
		return Connectivity{Online: true}
	}
	return s.connectivity.Snapshot()
}

func (s *Scheduler) fire(ctx context.Context, trigger Trigger, snapshot Connectivity) {
	logger := s.logger.With(zap.String("trigger", trigger.Name))

	if !snapshot.Online {
		s.metrics.IncTriggerRun(trigger.Name, "offline")
		logger.Warn("offline, skipping trigger", zap.Time("checkedAt", snapshot.CheckedAt))
		return
	}

	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx, "trigger:"+trigger.Name, s.lockTTL)
		if err != nil {
			s.metrics.IncTriggerRun(trigger.Name, "lock_error")
			logger.Error("failed to acquire trigger lock, skipping", zap.Error(err))
			return
		}
		if !acquired {
			s.metrics.IncTriggerRun(trigger.Name, "locked")
			logger.Debug("trigger fired by another replica")
			return
		}
	}

	start := time.Now()
	if err := trigger.Run(ctx); err != nil {
		s.metrics.IncTriggerRun(trigger.Name, "failed")
		logger.Error("trigger failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	s.metrics.IncTriggerRun(trigger.Name, "ran")
	logger.Info("trigger finished", zap.Duration("elapsed", time.Since(start)))
}

type cronZapLogger struct {
	logger *zap.SugaredLogger
}

func (l cronZapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronZapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
