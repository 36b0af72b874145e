package Workflow

import (
	"testing"

	"TaskManager/Models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteSubtaskCompletesChecklist(t *testing.T) {
	f := newFixture(t)
	parent := f.task("Launch", false, "Milestones")
	f.startTimer(parent.Task.ID)
	design := f.subtask("Design", parent.Checklists[0].ID)
	build := f.subtask("Build", parent.Checklists[0].ID)
	f.check(design.Checklists[0].ID, true)
	require.Equal(t, Models.StatusInProgress, f.status(parent.Task.ID))

	res, err := f.svc.Delete(f.ctx, alice, DeleteInput{TaskID: &build.Task.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{build.Task.ID}, res.Tasks)
	assert.Equal(t, []uint{build.Checklists[0].ID}, res.Checklists)
	require.NotNil(t, res.ParentTaskID)
	assert.Equal(t, parent.Task.ID, *res.ParentTaskID)
	assert.Equal(t, Models.StatusCompleted, *res.ParentStatus)
	assert.Equal(t, "1/1", *res.ParentProgress)

	assert.True(t, f.load(build.Task.ID).IsDelete)
	assert.True(t, f.checklist(build.Checklists[0].ID).IsDelete)
	assert.True(t, f.checklist(parent.Checklists[0].ID).IsCompleted)
	f.assertDerivedChecklists()

	var logs int64
	require.NoError(t, f.db.Model(&Models.TaskUpdateLog{}).
		Where("task_id = ? AND field_name = ?", build.Task.ID, "is_delete").Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
}

func TestDeleteChecklistCascades(t *testing.T) {
	f := newFixture(t)
	parent := f.task("Launch", false, "Milestones", "Sign-off")
	f.startTimer(parent.Task.ID)
	design := f.subtask("Design", parent.Checklists[0].ID)
	f.check(parent.Checklists[1].ID, true)
	require.Equal(t, Models.StatusInProgress, f.status(parent.Task.ID))

	res, err := f.svc.Delete(f.ctx, alice, DeleteInput{ChecklistID: &parent.Checklists[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{design.Task.ID}, res.Tasks)
	assert.Equal(t, []uint{parent.Checklists[0].ID, design.Checklists[0].ID}, res.Checklists)
	assert.Equal(t, Models.StatusCompleted, *res.ParentStatus)
	assert.Equal(t, "1/1", *res.ParentProgress)
	assert.Equal(t, Models.StatusCompleted, f.status(parent.Task.ID))
}

func TestDeleteTaskTakesItsReviewAlong(t *testing.T) {
	f := newFixture(t)
	res := f.task("Report", true, "Draft")
	require.NotNil(t, res.ReviewTaskID)

	out, err := f.svc.Delete(f.ctx, alice, DeleteInput{TaskID: &res.Task.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{res.Task.ID, *res.ReviewTaskID}, out.Tasks)
	assert.Equal(t, []uint{res.Checklists[0].ID}, out.Checklists)
	assert.Nil(t, out.ParentTaskID)
	assert.True(t, f.load(*res.ReviewTaskID).IsDelete)

	_, err = f.svc.GetTask(f.ctx, alice, res.Task.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDeleteGuards(t *testing.T) {
	f := newFixture(t)
	parent := f.task("Launch", false, "Milestones")

	_, err := f.svc.Delete(f.ctx, alice, DeleteInput{})
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = f.svc.Delete(f.ctx, alice, DeleteInput{TaskID: ptr(uint(999))})
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = f.svc.Delete(f.ctx, bob, DeleteInput{TaskID: &parent.Task.ID})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Delete(f.ctx, carol, DeleteInput{ChecklistID: &parent.Checklists[0].ID})
	assert.Equal(t, KindForbidden, KindOf(err))

	assert.False(t, f.load(parent.Task.ID).IsDelete)
	assert.False(t, f.checklist(parent.Checklists[0].ID).IsDelete)
}

func TestDeleteWithoutTargetIsCountedAsRejected(t *testing.T) {
	f := newFixture(t)
	rejected := map[string]string{"op": "delete", "kind": string(KindInvalidState)}

	_, err := f.svc.Delete(f.ctx, alice, DeleteInput{})
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, "Provide either task_id or checklist_id", MessageOf(err))
	assert.Equal(t, 1.0, f.counter("taskmanager_workflow_rejections_total", rejected))

	_, err = f.svc.Delete(f.ctx, alice, DeleteInput{TaskID: ptr(uint(1)), ChecklistID: ptr(uint(1))})
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, 2.0, f.counter("taskmanager_workflow_rejections_total", rejected))
}

func TestStartTimerTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	res := f.task("Launch", false, "Milestones")

	entry, err := f.svc.StartTimer(f.ctx, bob, res.Task.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, entry.UserID)
	assert.True(t, entry.IsOpen())

	_, err = f.svc.StartTimer(f.ctx, alice, res.Task.ID)
	require.Error(t, err)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, "Time tracking already in progress for this task", MessageOf(err))
	assert.Equal(t, int64(1), f.openSessions(res.Task.ID))

	_, err = f.svc.StartTimer(f.ctx, carol, res.Task.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.StartTimer(f.ctx, alice, 999)
	assert.Equal(t, KindNotFound, KindOf(err))
}
