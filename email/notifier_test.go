package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"TaskManager/Models"
	"TaskManager/Workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotifier(t *testing.T) (*Notifier, *[]Models.EmailMessage) {
	t.Helper()
	db, err := Models.OpenInMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, db.Create(&Models.User{ID: 5, Username: "dana", Email: "dana@example.com", PasswordHash: []byte("x")}).Error)

	var sent []Models.EmailMessage
	n := NewNotifier(Models.EmailConfig{SMTPServer: "smtp.example.com", SMTPPort: 587, FromEmail: "tasks@example.com", FromName: "Tasks"}, db)
	n.Send = func(_ Models.EmailConfig, m Models.EmailMessage) error {
		sent = append(sent, m)
		return nil
	}
	return n, &sent
}

func TestNotifyMailsReviewer(t *testing.T) {
	n, sent := newNotifier(t)

	require.NoError(t, n.Notify(context.Background(), Workflow.Event{
		Kind:     Workflow.EventReviewReady,
		TaskID:   11,
		TaskName: "Review: Paint fence",
		UserID:   5,
	}))

	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Equal(t, []string{"dana@example.com"}, msg.To)
	assert.Equal(t, "Ready for review: Review: Paint fence", msg.Subject)
	assert.Contains(t, msg.Body, "task #11")
}

func TestNotifySkipsUnknownUser(t *testing.T) {
	n, sent := newNotifier(t)

	require.NoError(t, n.Notify(context.Background(), Workflow.Event{Kind: Workflow.EventReviewRequested, UserID: 404}))
	assert.Empty(t, *sent)
}

func TestNotifyWrapsSendFailure(t *testing.T) {
	n, _ := newNotifier(t)
	n.Send = func(Models.EmailConfig, Models.EmailMessage) error { return errors.New("relay down") }

	err := n.Notify(context.Background(), Workflow.Event{Kind: Workflow.EventReviewRequested, TaskID: 2, UserID: 5})
	assert.ErrorContains(t, err, "relay down")
	assert.ErrorContains(t, err, "dana@example.com")
}

func TestBuildMessage(t *testing.T) {
	got := buildMessage(
		Models.EmailConfig{FromEmail: "tasks@example.com", FromName: "Tasks"},
		Models.EmailMessage{
			To:      []string{"a@example.com", "b@example.com"},
			BCC:     []string{"hidden@example.com"},
			Subject: "Hello",
			Body:    "body text",
		},
	)

	head, body, found := strings.Cut(got, "\r\n\r\n")
	require.True(t, found)
	assert.Equal(t, "body text", body)
	assert.Equal(t, []string{
		"Content-Type: text/plain; charset=UTF-8",
		"From: Tasks <tasks@example.com>",
		"Subject: Hello",
		"To: a@example.com, b@example.com",
	}, strings.Split(head, "\r\n"))
	assert.NotContains(t, got, "hidden@example.com")
}
