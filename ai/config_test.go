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
package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "qwen2.5:3b", cfg.CompletionModel)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("with shared host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.CompletionHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithCompletionHost("http://completions:9100/v1"),
			WithEmbeddingHost("http://embeddings:9200/v1"),
		)

		assert.Equal(t, "http://completions:9100/v1", cfg.CompletionHost)
		assert.Equal(t, "http://embeddings:9200/v1", cfg.EmbeddingHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithCompletionModel("gpt-4o-mini"),
			WithEmbeddingModel("text-embedding-3-small"),
		)

		assert.Equal(t, "gpt-4o-mini", cfg.CompletionModel)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	})
}

func TestConfig_Normalize(t *testing.T) {
	t.Run("adds v1 suffix", func(t *testing.T) {
		cfg := &Config{
			CompletionHost: "http://localhost:11434",
			EmbeddingHost:  "http://localhost:11434/",
		}
		cfg.Normalize()

		assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})

	t.Run("leaves canonical hosts unchanged", func(t *testing.T) {
		cfg := &Config{
			CompletionHost: "http://localhost:11434/v1",
			EmbeddingHost:  "http://localhost:11434/v1",
		}
		cfg.Normalize()

		assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("missing completion host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CompletionHost = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EmbeddingHost = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing completion model", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CompletionModel = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing embedding model", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EmbeddingModel = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("validate normalizes hosts", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CompletionHost = "http://localhost:11434"
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.CompletionHost)
	})
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "SELECT name FROM monsters", "SELECT name FROM monsters"},
		{"plain fence", "```\nSELECT name FROM monsters\n```", "SELECT name FROM monsters"},
		{"sql fence", "```sql\nSELECT name FROM monsters\n```", "SELECT name FROM monsters"},
		{"json fence", "```json\n[\"a\", \"b\"]\n```", "[\"a\", \"b\"]"},
		{"leading whitespace", "  ```sql\nSELECT 1\n```  ", "SELECT 1"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.in))
		})
	}
}
