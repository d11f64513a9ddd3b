package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrReasoningService matches any *ReasoningServiceError.
	ErrReasoningService = errors.New("reasoning service unavailable")

	// ErrMissingCredentials indicates no API key is configured.
	ErrMissingCredentials = errors.New("reasoning service credentials not configured")

	// ErrEmptyResponse indicates the service answered without any content.
	ErrEmptyResponse = errors.New("reasoning service returned no content")

	// ErrMalformedVerdict indicates the response does not have the expected shape.
	ErrMalformedVerdict = errors.New("malformed relevance verdict")
)

// ReasoningServiceError reports a failed call to the reasoning service.
type ReasoningServiceError struct {
	// Timeout is set when the call was cancelled by its deadline.
	Timeout bool
	Err     error
}

func (e *ReasoningServiceError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timed out: %v", ErrReasoningService, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrReasoningService, e.Err)
}

func (e *ReasoningServiceError) Unwrap() error { return e.Err }

func (e *ReasoningServiceError) Is(target error) bool { return target == ErrReasoningService }
