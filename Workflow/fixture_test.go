package Workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"TaskManager/Logging"
	"TaskManager/Metrics"
	"TaskManager/Models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	alice uint = 1
	bob   uint = 2
	carol uint = 3
)

type inbox struct {
	mu     sync.Mutex
	events []Event
}

func (i *inbox) Notify(_ context.Context, e Event) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.events = append(i.events, e)
	return nil
}

func (i *inbox) received() []Event {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]Event(nil), i.events...)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	svc   *Service
	inbox *inbox
	stats *Metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := Models.OpenInMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	in := &inbox{}
	stats := Metrics.New()
	svc := NewService(db, Options{
		Logger:   Logging.Discard(),
		Metrics:  stats,
		Notifier: in,
		Now: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Minute)
		},
	})
	return &fixture{t: t, ctx: context.Background(), db: db, svc: svc, inbox: in, stats: stats}
}

// task creates a Normal task owned by alice with one checklist per name
func (f *fixture) task(name string, reviewRequired bool, checklists ...string) *CreateTaskResult {
	f.t.Helper()
	res, err := f.svc.CreateTask(f.ctx, alice, CreateTaskInput{
		Name:             name,
		AssignedTo:       bob,
		IsReviewRequired: reviewRequired,
		ChecklistNames:   checklists,
	})
	require.NoError(f.t, err)
	return res
}

// subtask nests a new task with a single checklist under checklistID
func (f *fixture) subtask(name string, checklistID uint) *CreateTaskResult {
	f.t.Helper()
	res, err := f.svc.CreateTask(f.ctx, alice, CreateTaskInput{
		Name:           name,
		AssignedTo:     bob,
		ChecklistNames: []string{name + " work"},
		ChecklistID:    &checklistID,
	})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) startTimer(taskID uint) {
	f.t.Helper()
	_, err := f.svc.StartTimer(f.ctx, alice, taskID)
	require.NoError(f.t, err)
}

// check starts a session when none is open and marks the checklist complete or not
func (f *fixture) check(checklistID uint, completed bool) *CompletionResult {
	f.t.Helper()
	owner, err := checklistOwner(f.db, checklistID)
	require.NoError(f.t, err)
	require.NotNil(f.t, owner)
	if completed {
		open, err := f.svc.gate.HasOpenSession(f.db, owner.ID)
		require.NoError(f.t, err)
		if !open {
			f.startTimer(owner.ID)
		}
	}
	res, err := f.svc.UpdateChecklistCompletion(f.ctx, alice, checklistID, completed)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) load(taskID uint) Models.Task {
	f.t.Helper()
	var task Models.Task
	require.NoError(f.t, f.db.First(&task, taskID).Error)
	return task
}

func (f *fixture) checklist(id uint) Models.Checklist {
	f.t.Helper()
	var checklist Models.Checklist
	require.NoError(f.t, f.db.First(&checklist, id).Error)
	return checklist
}

func (f *fixture) status(taskID uint) Models.TaskStatus {
	f.t.Helper()
	return f.load(taskID).Status
}

func (f *fixture) openSessions(taskID uint) int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.db.Model(&Models.TaskTimeLog{}).
		Where("task_id = ? AND end_time IS NULL", taskID).Count(&count).Error)
	return count
}

func (f *fixture) logCount() int64 {
	f.t.Helper()
	var tasks, checklists int64
	require.NoError(f.t, f.db.Model(&Models.TaskUpdateLog{}).Count(&tasks).Error)
	require.NoError(f.t, f.db.Model(&Models.ChecklistUpdateLog{}).Count(&checklists).Error)
	return tasks + checklists
}

// rerun drives update_parent_task_status directly on taskID
func (f *fixture) rerun(taskID uint) {
	f.t.Helper()
	err := f.svc.inTx(f.ctx, "rerun", alice, func(p *propagation) error {
		return p.updateParentTaskStatus(taskID, newWave())
	})
	require.NoError(f.t, err)
}

func ptr[T any](v T) *T { return &v }

// assertDerivedChecklists checks that every checklist with live subtasks is
// complete exactly when all of them are Completed
func (f *fixture) assertDerivedChecklists() {
	f.t.Helper()
	var checklists []Models.Checklist
	require.NoError(f.t, f.db.Where("is_delete = ?", false).Find(&checklists).Error)
	for _, c := range checklists {
		subtasks, err := checklistSubtasks(f.db, c.ID)
		require.NoError(f.t, err)
		if len(subtasks) == 0 {
			continue
		}
		all := true
		for _, st := range subtasks {
			all = all && st.Status == Models.StatusCompleted
		}
		require.Equal(f.t, all, c.IsCompleted, "checklist %d", c.ID)
	}
}

// counter reads the value of a counter series from the fixture's registry
func (f *fixture) counter(name string, labels map[string]string) float64 {
	f.t.Helper()
	families, err := f.stats.Registry.Gather()
	require.NoError(f.t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
					continue series
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
