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


package core

import (
	"fmt"
	"strings"
)

// ValidateQuery validates a Query according to domain rules.
//
// Validation rules:
//   - Question must not be empty or whitespace-only
//
// NOT validated:
//   - SessionID (opaque, any value including empty is valid)
func ValidateQuery(query *Query) error {
	if query == nil {
		return fmt.Errorf("%w: query is nil", ErrInvalidQuery)
	}

	if strings.TrimSpace(query.Question) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrEmptyQuestion)
	}

	return nil
}

// ValidateChunk validates a TextChunk according to domain rules.
//
// Validation rules:
//   - Text must not be empty
//   - Source must not be empty
//
// NOT validated (populated at index time):
//   - Vector (can be empty until embedded)
//   - ID (derived from content when the chunk is stored)
func ValidateChunk(chunk *TextChunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkText)
	}

	if chunk.Source == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyChunkSource)
	}

	return nil
}
