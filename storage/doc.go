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


// Package storage defines the two store collaborators behind the oracle
// engine: the tabular executor for monster statistics and the chunk index
// for embedded lore text.
//
// The engine depends only on the interfaces in this package. Concrete
// backends live in sub-packages:
//
//   - storage/sqlite: read-only TabularExecutor over an SQLite database
//   - storage/badger: ChunkIndex over BadgerDB with cosine-similarity scan
//
// Executor failures are typed (QueryError) so the structured retriever can
// tell a malformed statement from a valid one that failed to run, and feed
// the store's error text back into statement repair.
package storage
