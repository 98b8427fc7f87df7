package state

import (
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
)

// QueryBlockByHash walks the chain in index order and returns the first block
// whose hash matches. ErrNotFound is returned when no block matches, which
// includes any string that is not shaped like a hash.
func (s *State) QueryBlockByHash(hash string) (database.Block, error) {
	if !digest.IsHash(hash) {
		return database.Block{}, fmt.Errorf("hash %q: %w", hash, ErrNotFound)
	}

	iter := s.storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return database.Block{}, fmt.Errorf("reading block: %w", err)
		}

		if block.Hash == hash {
			return block, nil
		}
	}

	return database.Block{}, fmt.Errorf("hash %q: %w", hash, ErrNotFound)
}

// QueryBlockByIndex returns the block stored at the specified index.
func (s *State) QueryBlockByIndex(index uint64) (database.Block, error) {
	block, err := s.storage.GetBlock(index)
	if err != nil {
		return database.Block{}, fmt.Errorf("index %d: %w", index, ErrNotFound)
	}

	return block, nil
}
