package Models

import (
	"testing"

	"TaskManager/Config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCreatesTables(t *testing.T) {
	db, err := OpenInMemory(t.Name())
	require.NoError(t, err)

	for _, model := range []any{&User{}, &Task{}, &Checklist{}, &TaskChecklistLink{}, &TaskTimeLog{}, &TaskUpdateLog{}, &ChecklistUpdateLog{}} {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
}

func TestTaskPermissions(t *testing.T) {
	task := Task{CreatedBy: 1, AssignedTo: 2}
	assert.True(t, task.CanModify(1))
	assert.True(t, task.CanModify(2))
	assert.False(t, task.CanModify(3))
	assert.False(t, task.IsReview())

	task.TaskType = TaskTypeReview
	assert.True(t, task.IsReview())
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(Config.Database{
		Host:     "db.internal",
		Port:     3306,
		User:     "tm",
		Password: "pw",
		Name:     "taskmanager",
	})
	assert.Contains(t, dsn, "tm:pw@tcp(db.internal:3306)/taskmanager")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect(Config.Database{Driver: "oracle"})
	assert.Error(t, err)
}
