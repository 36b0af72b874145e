package CronJobs

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"TaskManager/Logging"

	"github.com/robfig/cron/v3"
)

// LogRetention periodically drops request log lines older than a number of days
type LogRetention struct {
	cronScheduler *cron.Cron
	schedule      string
	days          int
	sink          *Logging.FileSink
	logger        *slog.Logger
	now           func() time.Time

	mu    sync.Mutex
	jobID cron.EntryID
}

// NewLogRetention creates a retention job for the log file behind sink.
// Format of schedule: "0 0 1 * * *" = At 01:00:00 AM every day
func NewLogRetention(schedule string, days int, sink *Logging.FileSink, logger *slog.Logger) *LogRetention {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRetention{
		cronScheduler: cron.New(cron.WithSeconds()),
		schedule:      schedule,
		days:          days,
		sink:          sink,
		logger:        logger.With("job", "log_retention"),
		now:           time.Now,
	}
}

// Start schedules the job and starts the scheduler
func (r *LogRetention) Start() error {
	if r.days <= 0 || r.sink == nil {
		r.logger.Info("log retention disabled")
		return nil
	}
	if err := r.UpdateSchedule(r.schedule); err != nil {
		return err
	}
	r.cronScheduler.Start()
	r.logger.Info("log retention scheduler started", "schedule", r.schedule, "days", r.days)
	return nil
}

// Stop terminates the scheduler and waits for a running trim to finish
func (r *LogRetention) Stop() {
	<-r.cronScheduler.Stop().Done()
	r.logger.Info("log retention scheduler stopped")
}

// UpdateSchedule replaces the current schedule
func (r *LogRetention) UpdateSchedule(schedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.jobID != 0 {
		r.cronScheduler.Remove(r.jobID)
	}
	id, err := r.cronScheduler.AddFunc(schedule, func() {
		if _, err := r.RunNow(); err != nil {
			r.logger.Error("log retention failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}
	r.jobID = id
	r.schedule = schedule
	return nil
}

// RunNow trims the log file immediately and returns how many lines were dropped.
// Lines without a readable timestamp are kept.
func (r *LogRetention) RunNow() (int, error) {
	if r.sink == nil {
		return 0, nil
	}
	cutoff := r.now().AddDate(0, 0, -r.days)
	dropped, err := r.sink.Rewrite(func(line []byte) bool {
		t, ok := Logging.LineTime(line)
		return !ok || !t.Before(cutoff)
	})
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		r.logger.Info("log file trimmed", "dropped", dropped, "cutoff", cutoff)
	}
	return dropped, nil
}
