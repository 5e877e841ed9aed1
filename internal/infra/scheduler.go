package infra

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"papertrade/internal/service"
)

// Reconciler replays stored ledgers and reports drift
type Reconciler interface {
	Run(ctx context.Context) (*service.ReconcileReport, error)
}

// Notifier is told about every successful sweep
type Notifier interface {
	SendReconcileReport(ctx context.Context, report *service.ReconcileReport) error
}

// Scheduler runs the periodic reconciliation sweep
type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	notifier   Notifier
	spec       string
	timeout    time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	last    *service.ReconcileReport
}

// NewScheduler creates a scheduler. spec is a standard five-field cron expression.
func NewScheduler(reconciler Reconciler, spec string, logger *zap.Logger) *Scheduler {
	if spec == "" {
		spec = "*/15 * * * *"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:       cron.New(),
		reconciler: reconciler,
		spec:       spec,
		timeout:    5 * time.Minute,
		logger:     logger,
	}
}

// SetNotifier installs n to receive sweep reports. Call before Start.
func (s *Scheduler) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start registers the reconciliation job and starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler", zap.String("schedule", s.spec))

	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.logger.Info("[CRON] Reconciliation triggered")
		if _, err := s.RunNow(ctx); err != nil {
			s.logger.Error("Scheduled reconciliation failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("[OK] Scheduler started")
	return nil
}

// RunNow runs one sweep immediately. Overlapping runs are skipped and
// return the previous report.
func (s *Scheduler) RunNow(ctx context.Context) (*service.ReconcileReport, error) {
	s.mu.Lock()
	if s.running {
		last := s.last
		s.mu.Unlock()
		s.logger.Info("Reconciliation already running, skipping")
		return last, nil
	}
	s.running = true
	s.mu.Unlock()

	report, err := s.reconciler.Run(ctx)

	s.mu.Lock()
	s.running = false
	if err == nil {
		s.last = report
	}
	s.mu.Unlock()

	if err == nil && s.notifier != nil {
		if nerr := s.notifier.SendReconcileReport(ctx, report); nerr != nil {
			s.logger.Warn("Failed to send reconciliation report", zap.Error(nerr))
		}
	}
	return report, err
}

// LastReport returns the most recent successful sweep, or nil
func (s *Scheduler) LastReport() *service.ReconcileReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
	s.logger.Info("[OK] Scheduler stopped")
}
