package Workflow

import (
	"context"
	"errors"
)

// EventKind names a notification-worthy workflow change
type EventKind string

const (
	// EventReviewReady fires when a review task becomes To_Do
	EventReviewReady EventKind = "review_ready"
	// EventReviewRequested fires when a chained review task is created
	EventReviewRequested EventKind = "review_requested"
)

// Event is delivered to notifiers after the transaction that produced it commits
type Event struct {
	Kind     EventKind
	TaskID   uint
	TaskName string
	UserID   uint
	ActorID  uint
}

// Notifier delivers events to people. Failures are logged by the caller, never surfaced.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Notifiers fans an event out to every notifier
type Notifiers []Notifier

func (n Notifiers) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, notifier := range n {
		if err := notifier.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
