package email

import (
	"context"
	"fmt"

	"TaskManager/Models"
	"TaskManager/Workflow"

	"gorm.io/gorm"
)

// Notifier mails review events to the user they concern
type Notifier struct {
	Config Models.EmailConfig
	DB     *gorm.DB
	// Send delivers a message; SendEmail when nil
	Send func(Models.EmailConfig, Models.EmailMessage) error
}

// NewNotifier creates a notifier relaying through config
func NewNotifier(config Models.EmailConfig, db *gorm.DB) *Notifier {
	return &Notifier{Config: config, DB: db, Send: SendEmail}
}

// Notify implements Workflow.Notifier. Users without an email address are skipped.
func (n *Notifier) Notify(ctx context.Context, e Workflow.Event) error {
	var user Models.User
	if err := n.DB.WithContext(ctx).Limit(1).Find(&user, e.UserID).Error; err != nil {
		return fmt.Errorf("loading recipient: %w", err)
	}
	if user.ID == 0 || user.Email == "" {
		return nil
	}

	msg, ok := reviewMessage(user, e)
	if !ok {
		return nil
	}
	send := n.Send
	if send == nil {
		send = SendEmail
	}
	if err := send(n.Config, msg); err != nil {
		return fmt.Errorf("sending review mail to %s: %w", user.Email, err)
	}
	return nil
}

func reviewMessage(user Models.User, e Workflow.Event) (Models.EmailMessage, bool) {
	var subject, body string
	switch e.Kind {
	case Workflow.EventReviewReady:
		subject = fmt.Sprintf("Ready for review: %s", e.TaskName)
		body = fmt.Sprintf("Hi %s,\n\nThe work behind \"%s\" (task #%d) is complete and waiting for your review.\n", user.Username, e.TaskName, e.TaskID)
	case Workflow.EventReviewRequested:
		subject = fmt.Sprintf("Review requested: %s", e.TaskName)
		body = fmt.Sprintf("Hi %s,\n\nYou have been asked to review \"%s\" (task #%d).\n", user.Username, e.TaskName, e.TaskID)
	default:
		return Models.EmailMessage{}, false
	}
	return Models.EmailMessage{
		To:      []string{user.Email},
		Subject: subject,
		Body:    body,
	}, true
}
