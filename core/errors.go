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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidURL indicates a result URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrEmptyURL indicates the URL field is empty.
	ErrEmptyURL = errors.New("url cannot be empty")

	// ErrInvalidSourceType indicates an unknown source type name.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidComparison indicates a ComparisonResult failed validation.
	ErrInvalidComparison = errors.New("invalid comparison result")

	// ErrScoreOutOfRange indicates a relevance score outside [0,100].
	ErrScoreOutOfRange = errors.New("relevance score out of range")
)
