package badger

import (
	"fmt"

	"github.com/candlekeep/oracle/core"
)

// Key prefixes for different data types
const (
	chunkRecordPrefix = "lorchk"
)

// makeChunkKey generates a key for a lore chunk by ID.
func makeChunkKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", chunkRecordPrefix, id))
}
