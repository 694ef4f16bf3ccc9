package badger

import (
	"context"
	"errors"

	"github.com/candlekeep/oracle/core"
	"github.com/candlekeep/oracle/storage"
	"github.com/dgraph-io/badger/v4"
)

// ChunkRepository implements storage.ChunkIndex for BadgerDB and additionally
// exposes the write path used by the seeder and by tests. The engine itself
// only ever sees the ChunkIndex interface.
type ChunkRepository struct {
	backend *Backend
}

var _ storage.ChunkIndex = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) *ChunkRepository {
	return &ChunkRepository{backend: backend}
}

// Close is a no-op; the repository holds no resources beyond the backend.
func (r *ChunkRepository) Close() error {
	return nil
}

// FindSimilar delegates to the backend.
func (r *ChunkRepository) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error) {
	return r.backend.FindSimilar(ctx, vector, minSimilarity, limit)
}

// AddChunks stores one or more lore chunks. IDs are derived from chunk
// content, so storing the same text twice overwrites rather than duplicates.
// Each chunk is validated before any write happens.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.TextChunk) ([]*core.TextChunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if chunk.Id == 0 {
				chunk.Id = core.IDFromContent(chunk.Text)
			}

			key := makeChunkKey(chunk.Id)
			value := storage.MarshalChunk(chunk)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// GetChunk retrieves a single chunk by ID.
// Returns storage.ErrNotFound if the chunk doesn't exist.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.TextChunk, error) {
	var chunk *core.TextChunk

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			chunk, err = storage.UnmarshalChunk(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return chunk, nil
}

// Count returns the number of stored chunks.
func (r *ChunkRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}

	return count, nil
}
