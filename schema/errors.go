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


package schema

import "errors"

var (
	// ErrNilDescriptor is returned when a descriptor is nil.
	ErrNilDescriptor = errors.New("schema descriptor is nil")

	// ErrEmptyTable is returned when the table name is empty.
	ErrEmptyTable = errors.New("schema table name cannot be empty")

	// ErrNoFields is returned when a descriptor declares no fields.
	ErrNoFields = errors.New("schema must declare at least one field")

	// ErrEmptyFieldName is returned when a field has no name.
	ErrEmptyFieldName = errors.New("schema field name cannot be empty")

	// ErrEmptyFieldType is returned when a field has no type.
	ErrEmptyFieldType = errors.New("schema field type cannot be empty")

	// ErrDuplicateField is returned when a field name is declared twice.
	ErrDuplicateField = errors.New("duplicate schema field")
)
