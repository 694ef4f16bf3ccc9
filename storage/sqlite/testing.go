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


package sqlite

import (
	"context"

	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/schema"
)

// NewMemoryStore creates an in-memory monster store populated with the given
// rows and returns an executor over it, for testing. The caller must close
// the loader (which owns the shared handle); closing the executor is a
// no-op beyond that.
func NewMemoryStore(ctx context.Context, descriptor *schema.Descriptor, rows core.Rows) (*Executor, *Loader, error) {
	loader, err := OpenLoader("")
	if err != nil {
		return nil, nil, err
	}

	if err := loader.CreateTable(ctx, descriptor); err != nil {
		loader.Close()
		return nil, nil, err
	}

	if err := loader.Insert(ctx, descriptor, rows); err != nil {
		loader.Close()
		return nil, nil, err
	}

	return NewExecutor(loader.DB()), loader, nil
}
