package state

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// RetrieveDifficulty returns the difficulty the chain mines blocks with.
func (s *State) RetrieveDifficulty() uint {
	return s.difficulty
}

// RetrieveGenesis returns a copy of the genesis block.
func (s *State) RetrieveGenesis() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.genesis
}

// RetrieveLatestBlock returns a copy of the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latestBlock
}

// RetrieveBlockCount returns the number of blocks in the chain, including
// the genesis block.
func (s *State) RetrieveBlockCount() int {
	return s.storage.Count()
}

// RetrieveBlocks returns a copy of every block in the chain in index order.
func (s *State) RetrieveBlocks() ([]database.Block, error) {
	blocks := make([]database.Block, 0, s.storage.Count())

	iter := s.storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}

	return blocks, nil
}
