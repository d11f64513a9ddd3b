package pipeline

import (
	"context"
	"time"
)

// Notifier pushes text to the requester identified by sessionID.
type Notifier interface {
	Notify(ctx context.Context, sessionID, text string) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, sessionID, text string) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, sessionID, text string) error {
	return f(ctx, sessionID, text)
}

// NotificationKind tells the acknowledgment, progress updates and the
// final answer of a run apart.
type NotificationKind string

const (
	NotificationAck    NotificationKind = "ack"
	NotificationStatus NotificationKind = "status"
	NotificationFinal  NotificationKind = "final"
)

// Observer receives run lifecycle events. Implementations must be safe for
// concurrent use since detached runs report from pool workers.
type Observer interface {
	// StageFinished reports the time spent reaching state.
	StageFinished(state State, elapsed time.Duration)

	// RunFinished reports the terminal outcome of a run.
	RunFinished(outcome Outcome, elapsed time.Duration)

	// NotificationFailed reports a notification that could not be delivered.
	NotificationFailed(kind NotificationKind)
}

type noopObserver struct{}

func (noopObserver) StageFinished(State, time.Duration) {}
func (noopObserver) RunFinished(Outcome, time.Duration) {}
func (noopObserver) NotificationFailed(NotificationKind) {}
