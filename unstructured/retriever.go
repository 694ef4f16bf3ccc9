// Package unstructured retrieves lore evidence from the semantic chunk
// index. A question is expanded into paraphrased sub-queries, each variant
// is searched concurrently, and the union is merged by chunk identifier
// keeping each chunk's best score.
package unstructured

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/candlekeep/oracle/ai"
	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/storage"
)

const (
	// DefaultExpansions is the number of paraphrased variants requested
	// from the model, in addition to the original question.
	DefaultExpansions = 3

	// DefaultTopK is the size of the final merged result set.
	DefaultTopK = 5

	// DefaultMinSimilarity filters out weak matches.
	DefaultMinSimilarity = 0.60

	expansionTemperature = 0.7
)

const expansionSystemPrompt = `You are a search assistant for a Dungeons & Dragons knowledge base. Rephrase the user's question into alternative phrasings that could surface relevant rules or lore passages a literal search would miss. Use different vocabulary and sentence structure for each variant while preserving the question's meaning.

Respond with a JSON array of strings and nothing else.`

// Retriever retrieves ranked lore chunks for a question.
// Safe for concurrent use; per-variant searches share the worker pool.
type Retriever struct {
	completer     ai.Completer
	embedder      ai.Embedder
	index         storage.ChunkIndex
	pool          *ants.Pool
	expansions    int
	topK          int
	minSimilarity float32
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithExpansions sets the number of paraphrased variants requested.
// Zero disables expansion, searching only the original question.
func WithExpansions(n int) Option {
	return func(r *Retriever) error {
		if n < 0 {
			return fmt.Errorf("expansions must be non-negative, got %d", n)
		}
		r.expansions = n
		return nil
	}
}

// WithTopK sets the size of the final merged result set.
func WithTopK(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return fmt.Errorf("top-k must be at least 1, got %d", k)
		}
		r.topK = k
		return nil
	}
}

// WithMinSimilarity sets the similarity floor for index matches.
func WithMinSimilarity(threshold float32) Option {
	return func(r *Retriever) error {
		r.minSimilarity = threshold
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "unstructured-retriever")
		return nil
	}
}

// NewRetriever creates an unstructured retriever over the given collaborators.
func NewRetriever(completer ai.Completer, embedder ai.Embedder, index storage.ChunkIndex, opts ...Option) (*Retriever, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		return nil, ErrIndexRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	r := &Retriever{
		completer:     completer,
		embedder:      embedder,
		index:         index,
		pool:          pool,
		expansions:    DefaultExpansions,
		topK:          DefaultTopK,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default().With("component", "unstructured-retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return r, nil
}

// Release frees the worker pool. The retriever must not be used afterwards.
func (r *Retriever) Release() {
	r.pool.Release()
}

// Expansions returns the configured number of paraphrased variants.
func (r *Retriever) Expansions() int {
	return r.expansions
}

// Retrieve expands the question, searches the index per variant, and returns
// the merged ranked chunks. A chunk retrieved under multiple variants keeps
// its maximum similarity score, and no chunk identifier appears twice. An
// empty result set is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]*core.ChunkMatch, error) {
	variants := r.expand(ctx, question)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		matches  []*core.ChunkMatch
		firstErr error
		failures int
	)

	record := func(found []*core.ChunkMatch, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		matches = append(matches, found...)
	}

	for _, variant := range variants {
		wg.Add(1)
		submitErr := r.pool.Submit(func() {
			defer wg.Done()
			found, err := r.search(ctx, variant)
			if err != nil {
				r.logger.Warn("variant search failed", "variant", variant, "err", err)
			}
			record(found, err)
		})
		if submitErr != nil {
			wg.Done()
			record(nil, submitErr)
		}
	}
	wg.Wait()

	// Partial variant failures only degrade recall. Fail the retrieval
	// only when every variant failed.
	if failures == len(variants) {
		return nil, firstErr
	}

	merged := mergeMatches(matches)
	if len(merged) > r.topK {
		merged = merged[:r.topK]
	}

	r.logger.Debug("retrieval complete",
		"variants", len(variants), "chunks", len(merged))
	return merged, nil
}

// expand asks the model for paraphrased variants of the question. The
// original question is always the first variant; a completion failure or an
// unparseable response degrades to searching the original alone.
func (r *Retriever) expand(ctx context.Context, question string) []string {
	variants := []string{question}
	if r.expansions == 0 {
		return variants
	}

	response, err := r.completer.Complete(ctx, ai.CompletionRequest{
		System: expansionSystemPrompt,
		Prompt: fmt.Sprintf("Produce %d rephrasings of this question:\n%s",
			r.expansions, question),
		Temperature: expansionTemperature,
		JSONMode:    true,
	})
	if err != nil {
		r.logger.Warn("query expansion failed, searching original question only", "err", err)
		return variants
	}

	var parsed []string
	if err := json.Unmarshal([]byte(ai.StripCodeFence(response)), &parsed); err != nil {
		r.logger.Warn("unparseable expansion response, searching original question only",
			"err", err)
		return variants
	}

	for _, variant := range parsed {
		variant = strings.TrimSpace(variant)
		if variant == "" || strings.EqualFold(variant, question) {
			continue
		}
		variants = append(variants, variant)
		if len(variants) == r.expansions+1 {
			break
		}
	}
	return variants
}

// search embeds one variant and queries the index.
func (r *Retriever) search(ctx context.Context, variant string) ([]*core.ChunkMatch, error) {
	vector, err := r.embedder.EmbedText(ctx, variant)
	if err != nil {
		return nil, fmt.Errorf("embedding variant: %w", err)
	}
	return r.index.FindSimilar(ctx, vector, r.minSimilarity, r.topK)
}

// mergeMatches deduplicates by chunk identifier, keeping each chunk's
// maximum score, and sorts descending by score.
func mergeMatches(matches []*core.ChunkMatch) []*core.ChunkMatch {
	best := make(map[core.ID]*core.ChunkMatch, len(matches))
	for _, match := range matches {
		current, ok := best[match.Chunk.Id]
		if !ok || match.Score > current.Score {
			best[match.Chunk.Id] = match
		}
	}

	merged := make([]*core.ChunkMatch, 0, len(best))
	for _, match := range best {
		merged = append(merged, match)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Chunk.Id < merged[j].Chunk.Id
	})
	return merged
}
