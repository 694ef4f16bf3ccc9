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


// Package ai provides abstractions for the language model services used by
// the oracle engine.
//
// This package defines interfaces for text completion and embedding
// generation. The router, retrievers, and synthesizer depend on these
// abstractions rather than on any concrete provider, which keeps every
// LLM-facing component testable with fakes.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Completer: Stateless text completion with per-request constraints
//   - Embedder: Generates vector embeddings from text
//   - Provider: Aggregates AI services for convenient initialization
//
// Completions are free text from a generative service and must be treated as
// untrusted input: every consumer validates the completion against its
// expected shape (a route label, a statement, a JSON array) and applies its
// documented fallback on mismatch instead of propagating malformed data.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// Public constructors (openai.NewProvider, openai.NewCompleter, etc.) return
// interface types to enforce abstraction. Mock constructors return concrete
// types to enable behavior injection and call-count assertions.
package ai
