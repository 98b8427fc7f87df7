package state

import (
	"context"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// AppendBlock mines a new block holding the specified data on top of the
// latest block and adds it to the chain. The payload is never rejected, the
// only failures are a cancelled context or a storage error. Mining blocks
// the caller for as long as the POW takes.
func (s *State) AppendBlock(ctx context.Context, data string) (database.Block, error) {
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	s.evHandler("state: AppendBlock: MINING: perform POW")

	block, err := database.POW(ctx, database.POWArgs{
		Difficulty: s.difficulty,
		PrevBlock:  s.RetrieveLatestBlock(),
		TimeStamp:  s.timeStamp(),
		Data:       data,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		return database.Block{}, fmt.Errorf("mining block: %w", err)
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: AppendBlock: MINING: update local state: blk[%s]", block)

	if err := s.updateLocalState(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// updateLocalState writes the block to storage and makes it the latest block.
func (s *State) updateLocalState(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Write(block); err != nil {
		return fmt.Errorf("writing block %d: %w", block.Index, err)
	}
	s.latestBlock = block

	return nil
}
