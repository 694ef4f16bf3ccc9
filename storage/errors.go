// Copyright 2025 Candlekeep Labs
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


package storage

import (
	"errors"
	"fmt"

	"github.com/candlekeep/oracle/core"
)

var (
	// ErrNotFound is returned when a requested chunk does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when an operation is attempted on a closed backend.
	ErrClosed = errors.New("storage backend is closed")
)

// QueryError is a typed failure from the tabular executor. Kind is one of
// core.FailureSyntax, core.FailureExecution, or core.FailureTimeout; Message
// is the store's error text, preserved verbatim for the repair prompt.
type QueryError struct {
	Kind    core.FailureKind
	Message string
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// NewSyntaxError creates a QueryError for a malformed statement.
func NewSyntaxError(message string) *QueryError {
	return &QueryError{Kind: core.FailureSyntax, Message: message}
}

// NewExecutionError creates a QueryError for a statement that failed to run.
func NewExecutionError(message string) *QueryError {
	return &QueryError{Kind: core.FailureExecution, Message: message}
}

// NewTimeoutError creates a QueryError for a statement that exceeded its deadline.
func NewTimeoutError(message string) *QueryError {
	return &QueryError{Kind: core.FailureTimeout, Message: message}
}

// FailureKindOf extracts the failure kind from an executor error.
// Unclassified errors are reported as execution failures.
func FailureKindOf(err error) core.FailureKind {
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return queryErr.Kind
	}
	return core.FailureExecution
}
