package Workflow

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"TaskManager/Logging"
	"TaskManager/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// snapshot is every row a cascade may touch
type snapshot struct {
	Tasks         []Models.Task
	Checklists    []Models.Checklist
	Sessions      []Models.TaskTimeLog
	TaskLogs      int64
	ChecklistLogs int64
}

func (f *fixture) snapshot() snapshot {
	f.t.Helper()
	var s snapshot
	require.NoError(f.t, f.db.Order("id").Find(&s.Tasks).Error)
	require.NoError(f.t, f.db.Order("id").Find(&s.Checklists).Error)
	require.NoError(f.t, f.db.Order("id").Find(&s.Sessions).Error)
	require.NoError(f.t, f.db.Model(&Models.TaskUpdateLog{}).Count(&s.TaskLogs).Error)
	require.NoError(f.t, f.db.Model(&Models.ChecklistUpdateLog{}).Count(&s.ChecklistLogs).Error)
	return s
}

// failNthUpdate makes the nth UPDATE issued through db fail. It returns a
// counter of the updates seen so far.
func failNthUpdate(t *testing.T, db *gorm.DB, n int, cause error) *int {
	t.Helper()
	seen := 0
	name := "test:fail_update_" + t.Name()
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		seen++
		if seen == n {
			tx.AddError(cause)
		}
	}))
	t.Cleanup(func() { _ = db.Callback().Update().Remove(name) })
	return &seen
}

func TestCascadeFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	parent := f.task("Launch", false, "Milestones")
	f.startTimer(parent.Task.ID)
	design := f.subtask("Design", parent.Checklists[0].ID)
	f.startTimer(design.Task.ID)

	completed := map[string]string{"status": string(Models.StatusCompleted)}
	before := f.snapshot()
	transitions := f.counter("taskmanager_task_status_transitions_total", completed)

	cause := errors.New("disk I/O error")
	seen := failNthUpdate(t, f.db, 4, cause)

	_, err := f.svc.UpdateChecklistCompletion(f.ctx, alice, design.Checklists[0].ID, true)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Internal Server Error", MessageOf(err))
	assert.GreaterOrEqual(t, *seen, 4)

	assert.Equal(t, before, f.snapshot())
	assert.Equal(t, transitions, f.counter("taskmanager_task_status_transitions_total", completed))
	assert.Equal(t, 1.0, f.counter("taskmanager_workflow_rejections_total",
		map[string]string{"op": "update_checklist_completion", "kind": string(KindInternal)}))

	// the same call goes through once the store recovers
	res, err := f.svc.UpdateChecklistCompletion(f.ctx, alice, design.Checklists[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, Models.StatusCompleted, res.Status)
	assert.Equal(t, Models.StatusCompleted, f.status(design.Task.ID))
	assert.True(t, f.checklist(parent.Checklists[0].ID).IsCompleted)
	assert.Equal(t, Models.StatusCompleted, f.status(parent.Task.ID))
	assert.Greater(t, f.counter("taskmanager_task_status_transitions_total", completed), transitions)
	f.assertDerivedChecklists()
}

func TestChangeLogFailureCarriesOperation(t *testing.T) {
	f := newFixture(t)
	res := f.task("Report", false, "Draft")
	f.startTimer(res.Task.ID)
	require.NoError(t, f.db.Migrator().DropTable(&Models.ChecklistUpdateLog{}))

	var buf bytes.Buffer
	svc := NewService(f.db, Options{Logger: slog.New(Logging.NewHandler(&buf, "json", slog.LevelInfo))})
	_, err := svc.UpdateChecklistCompletion(f.ctx, alice, res.Checklists[0].ID, true)
	require.NoError(t, err)
	assert.True(t, f.checklist(res.Checklists[0].ID).IsCompleted)

	var failure string
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if bytes.Contains(line, []byte("failed to record field change")) {
			failure = string(line)
			break
		}
	}
	require.NotEmpty(t, failure)
	assert.Contains(t, failure, `"op":"update_checklist_completion"`)
	assert.Contains(t, failure, `"actor":1`)
	assert.Contains(t, failure, `"checklist_id":`)
}
