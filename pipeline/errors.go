package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSearcherRequired is returned when a searcher is not provided.
	ErrSearcherRequired = errors.New("searcher required")

	// ErrComparatorRequired is returned when a comparator is not provided.
	ErrComparatorRequired = errors.New("comparator required")

	// ErrNotifierRequired is returned by Run and Submit when the pipeline
	// was built without a notifier.
	ErrNotifierRequired = errors.New("notifier required")

	// ErrEmptyText is returned by Rank when the text has no content left
	// after cleaning.
	ErrEmptyText = errors.New("text is empty")

	// ErrPipelineBusy is returned by Submit when every worker is occupied.
	ErrPipelineBusy = errors.New("pipeline busy")

	// ErrPipelineClosed is returned by Submit after Release.
	ErrPipelineClosed = errors.New("pipeline closed")

	// ErrDelivery matches any *DeliveryError.
	ErrDelivery = errors.New("notification delivery failed")
)

// DeliveryError reports a notification that could not be pushed to a session.
type DeliveryError struct {
	SessionID string
	Kind      NotificationKind
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %s notification to %s: %v", e.Kind, e.SessionID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

func (e *DeliveryError) Is(target error) bool { return target == ErrDelivery }
