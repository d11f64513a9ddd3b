// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrProviderTimeout matches any *ProviderTimeoutError.
	ErrProviderTimeout = errors.New("search provider timed out")

	// ErrProviderFailed matches any *ProviderError.
	ErrProviderFailed = errors.New("search provider failed")

	// ErrProviderNotConfigured is returned by a provider whose credentials are incomplete.
	ErrProviderNotConfigured = errors.New("search provider not configured")

	// ErrNilProvider is returned when a nil provider is passed to NewAggregator.
	ErrNilProvider = errors.New("search provider is nil")
)

// ProviderTimeoutError reports a provider call cancelled by its deadline.
type ProviderTimeoutError struct {
	Provider string
	Timeout  time.Duration
	Err      error
}

func (e *ProviderTimeoutError) Error() string {
	return fmt.Sprintf("%s: no response within %s", e.Provider, e.Timeout)
}

func (e *ProviderTimeoutError) Unwrap() error { return e.Err }

func (e *ProviderTimeoutError) Is(target error) bool { return target == ErrProviderTimeout }

// ProviderError reports a non-success response or an undecodable payload.
// StatusCode is zero when the failure happened before a response arrived.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + ": "
	if e.StatusCode != 0 {
		msg += fmt.Sprintf("status %d: ", e.StatusCode)
	}
	msg += e.Description
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderFailed }
