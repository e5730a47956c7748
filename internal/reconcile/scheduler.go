package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	reconciler *WalletReconciler
	interval   time.Duration
	log        *zap.Logger
	stopCh     chan struct{}
	done       chan struct{}
}

func NewScheduler(reconciler *WalletReconciler, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		reconciler: reconciler,
		interval:   interval,
		log:        log,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting wallet reconciliation scheduler", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

// Stop blocks until the running pass, if any, has returned.
func (s *Scheduler) Stop() {
	s.log.Info("stopping wallet reconciliation scheduler")
	close(s.stopCh)
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.reconciler.RunOnce(ctx); err != nil {
		s.log.Error("initial wallet reconciliation failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.reconciler.RunOnce(ctx); err != nil {
				s.log.Error("wallet reconciliation failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("wallet reconciliation stopped")
			return
		case <-ctx.Done():
			s.log.Info("wallet reconciliation cancelled")
			return
		}
	}
}
