package Workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"TaskManager/ChangeLog"
	"TaskManager/Logging"
	"TaskManager/Metrics"
	"TaskManager/Models"
	"TaskManager/TimeTracking"

	"gorm.io/gorm"
)

const notifyTimeout = 10 * time.Second

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Logger   *slog.Logger
	Metrics  *Metrics.Metrics
	Notifier Notifier
	Now      func() time.Time
}

// Service runs every task and checklist operation inside one transaction
// and keeps statuses, checklist completion and review chains consistent.
type Service struct {
	db       *gorm.DB
	log      *slog.Logger
	metrics  *Metrics.Metrics
	notifier Notifier
	changes  *ChangeLog.Recorder
	gate     *TimeTracking.Gate
	now      func() time.Time

	pending sync.WaitGroup
}

func NewService(db *gorm.DB, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		db:       db,
		log:      logger,
		metrics:  opts.Metrics,
		notifier: opts.Notifier,
		changes:  &ChangeLog.Recorder{Log: logger, Now: now},
		gate:     &TimeTracking.Gate{Now: now},
		now:      now,
	}
}

// DB exposes the underlying store for read-only helpers
func (s *Service) DB() *gorm.DB { return s.db }

// Wait blocks until every dispatched notification has finished
func (s *Service) Wait() { s.pending.Wait() }

// inTx runs fn in a single transaction. Errors that are not *Error are
// wrapped as internal; any error rolls everything back.
func (s *Service) inTx(ctx context.Context, op string, actor uint, fn func(p *propagation) error) error {
	start := time.Now()
	logger := Logging.FromContext(ctx, s.log).With("op", op, "actor", actor)

	var events []Event
	var transitions []Models.TaskStatus
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := &propagation{
			tx:      tx,
			actor:   actor,
			log:     logger,
			changes: s.changes.With(logger),
			gate:    s.gate,
		}
		if err := fn(p); err != nil {
			return err
		}
		events = p.events
		transitions = p.transitions
		return nil
	})
	s.metrics.Observe(op, time.Since(start))

	if err != nil {
		var we *Error
		if !errors.As(err, &we) {
			we = internal(err)
			err = we
		}
		s.metrics.Rejected(op, string(we.Kind))
		if we.Kind == KindInternal {
			logger.Error("operation failed", "error", we.Err)
		} else {
			logger.Info("operation refused", "kind", we.Kind, "reason", we.Message)
		}
		return err
	}

	// only committed transitions are counted
	for _, status := range transitions {
		s.metrics.Transition(status.String())
	}
	s.dispatch(logger, events)
	return nil
}

// dispatch delivers events in the background, after commit
func (s *Service) dispatch(logger *slog.Logger, events []Event) {
	if s.notifier == nil || len(events) == 0 {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		for _, e := range events {
			if err := s.notifier.Notify(ctx, e); err != nil {
				logger.Warn("notification failed", "event", e.Kind, "task_id", e.TaskID, "error", err)
			}
		}
	}()
}

// propagation carries the state of one operation's cascade
type propagation struct {
	tx      *gorm.DB
	actor   uint
	log     *slog.Logger
	changes *ChangeLog.Recorder
	gate    *TimeTracking.Gate
	events  []Event

	transitions []Models.TaskStatus
}

func (p *propagation) emit(e Event) {
	e.ActorID = p.actor
	p.events = append(p.events, e)
}
