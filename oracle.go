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


// Package oracle answers natural-language questions about a tabletop-RPG
// world from two evidence sources: a tabular monster store and a semantic
// index of rules and lore prose. It wires the query router, the two
// retrievers, and the synthesis engine over a single configuration surface.
package oracle

import (
	"context"
	"log/slog"
	"time"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/ai/openai"
	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/engine"
	"github.com/candlekeep/oracle/router"
	"github.com/candlekeep/oracle/schema"
	"github.com/candlekeep/oracle/storage"
	"github.com/candlekeep/oracle/storage/badger"
	"github.com/candlekeep/oracle/storage/sqlite"
	"github.com/candlekeep/oracle/structured"
	"github.com/candlekeep/oracle/unstructured"
)

// Oracle owns the engine and the handles it retrieves from.
type Oracle struct {
	backend   *badger.Backend
	index     *badger.ChunkRepository
	executor  storage.TabularExecutor
	provider  ai.Provider
	retriever *unstructured.Retriever
	engine    *engine.Engine
	logger    *slog.Logger
}

// Option configures an Oracle.
type Option func(*options)

type options struct {
	aiConfig      *ai.Config
	provider      ai.Provider
	descriptor    *schema.Descriptor
	executor      storage.TabularExecutor
	inMemoryIndex bool
	branchTimeout time.Duration
}

// WithAIConfig sets the model endpoints and names.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider, bypassing aiConfig.
// Used by tests to substitute mock services.
func WithProvider(provider ai.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithSchema overrides the structured store descriptor.
// Default is schema.Monsters().
func WithSchema(descriptor *schema.Descriptor) Option {
	return func(o *options) {
		o.descriptor = descriptor
	}
}

// WithExecutor injects a pre-built tabular executor, bypassing storePath.
// Used by tests to substitute an in-memory store.
func WithExecutor(executor storage.TabularExecutor) Option {
	return func(o *options) {
		o.executor = executor
	}
}

// WithInMemoryIndex keeps the chunk index in memory instead of on disk.
func WithInMemoryIndex() Option {
	return func(o *options) {
		o.inMemoryIndex = true
	}
}

// WithBranchTimeout overrides the per-branch retrieval timeout.
func WithBranchTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.branchTimeout = timeout
	}
}

// New opens the monster store at storePath and the chunk index at indexPath
// and builds the answer engine over them.
func New(storePath, indexPath string, opts ...Option) (*Oracle, error) {
	o := &options{
		aiConfig:   ai.DefaultConfig(),
		descriptor: schema.Monsters(),
	}
	for _, opt := range opts {
		opt(o)
	}

	executor := o.executor
	if executor == nil {
		var err error
		executor, err = sqlite.Open(storePath)
		if err != nil {
			return nil, err
		}
	}

	backend, err := badger.OpenBackend(indexPath, o.inMemoryIndex)
	if err != nil {
		executor.Close()
		return nil, err
	}
	index := badger.NewChunkRepository(backend)

	provider := o.provider
	if provider == nil {
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			backend.Close()
			executor.Close()
			return nil, err
		}
	}

	classifier := router.NewClassifier(provider.Completer())

	structuredRetriever, err := structured.NewRetriever(provider.Completer(), executor, o.descriptor)
	if err != nil {
		provider.Close()
		backend.Close()
		executor.Close()
		return nil, err
	}

	unstructuredRetriever, err := unstructured.NewRetriever(provider.Completer(), provider.Embedder(), index)
	if err != nil {
		provider.Close()
		backend.Close()
		executor.Close()
		return nil, err
	}

	engineOpts := []engine.Option{}
	if o.branchTimeout > 0 {
		engineOpts = append(engineOpts, engine.WithBranchTimeout(o.branchTimeout))
	}
	eng, err := engine.New(classifier, structuredRetriever, unstructuredRetriever,
		provider.Completer(), engineOpts...)
	if err != nil {
		unstructuredRetriever.Release()
		provider.Close()
		backend.Close()
		executor.Close()
		return nil, err
	}

	return &Oracle{
		backend:   backend,
		index:     index,
		executor:  executor,
		provider:  provider,
		retriever: unstructuredRetriever,
		engine:    eng,
		logger:    slog.Default(),
	}, nil
}

// Answer runs one question through routing, retrieval, and synthesis.
// The returned envelope is always complete; Success is false when no
// grounded answer could be produced.
func (o *Oracle) Answer(ctx context.Context, question, sessionID string) *core.ResponseEnvelope {
	return o.engine.Answer(ctx, &core.Query{Question: question, SessionID: sessionID})
}

// Narrate produces free-form prose for a creative prompt. The style tag
// selects a narrator persona; unrecognized tags narrate in the neutral voice.
func (o *Oracle) Narrate(ctx context.Context, prompt, styleTag string) (string, error) {
	return o.engine.Narrate(ctx, prompt, core.ParseStyle(styleTag))
}

// ChunkRepository exposes the index write path for seeding tools and tests.
func (o *Oracle) ChunkRepository() *badger.ChunkRepository {
	return o.index
}

// Close releases the provider, the store, and the index.
// Calling Close more than once is a no-op.
func (o *Oracle) Close() error {
	if o.backend.IsClosed() {
		return nil
	}
	o.retriever.Release()

	if err := o.provider.Close(); err != nil {
		o.logger.Error("error closing AI provider", "err", err)
	}
	if err := o.executor.Close(); err != nil {
		o.logger.Error("error closing monster store", "err", err)
		return err
	}
	if err := o.backend.Close(); err != nil {
		o.logger.Error("error closing chunk index", "err", err)
		return err
	}
	return nil
}
