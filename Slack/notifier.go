package Slack

import (
	"context"
	"fmt"

	"TaskManager/Models"
	"TaskManager/Workflow"

	"github.com/slack-go/slack"
	"gorm.io/gorm"
)

// Notifier posts review events to a Slack channel
type Notifier struct {
	client  *slack.Client
	channel string
	db      *gorm.DB
}

// NewNotifier creates a notifier posting as the bot behind token.
// Extra options (e.g. slack.OptionAPIURL) are passed to the client.
func NewNotifier(token, channel string, db *gorm.DB, opts ...slack.Option) *Notifier {
	return &Notifier{
		client:  slack.New(token, opts...),
		channel: channel,
		db:      db,
	}
}

// Notify implements Workflow.Notifier
func (n *Notifier) Notify(ctx context.Context, e Workflow.Event) error {
	text := n.message(ctx, e)
	if text == "" {
		return nil
	}
	if _, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	return nil
}

func (n *Notifier) message(ctx context.Context, e Workflow.Event) string {
	who := n.username(ctx, e.UserID)
	switch e.Kind {
	case Workflow.EventReviewReady:
		return fmt.Sprintf(":mag: *%s* (#%d) is ready for review by %s", e.TaskName, e.TaskID, who)
	case Workflow.EventReviewRequested:
		return fmt.Sprintf(":memo: Review requested from %s: *%s* (#%d)", who, e.TaskName, e.TaskID)
	default:
		return ""
	}
}

// username falls back to the id when the user cannot be loaded
func (n *Notifier) username(ctx context.Context, id uint) string {
	if n.db != nil {
		var user Models.User
		if err := n.db.WithContext(ctx).Select("id", "username").Limit(1).Find(&user, id).Error; err == nil && user.ID != 0 {
			return "@" + user.Username
		}
	}
	return fmt.Sprintf("user #%d", id)
}
