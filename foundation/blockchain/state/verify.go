package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// IntegrityError is returned by Verify and identifies the first block that
// fails validation.
type IntegrityError struct {
	Index uint64
	Err   error
}

// Error implements the error interface.
func (ie *IntegrityError) Error() string {
	return fmt.Sprintf("block %d failed validation: %s", ie.Index, ie.Err)
}

// Unwrap provides access to the validation error.
func (ie *IntegrityError) Unwrap() error {
	return ie.Err
}

// IsIntegrityError checks if an error of type IntegrityError exists.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// =============================================================================

// Verify walks the entire chain recomputing every block's hash and checking
// the genesis block, the index sequence, the parent linkage and the POW of
// every mined block.
func (s *State) Verify() error {
	s.evHandler("state: Verify: started")
	defer s.evHandler("state: Verify: completed")

	var prevBlock database.Block
	var index uint64

	iter := s.storage.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return fmt.Errorf("reading block: %w", err)
		}

		switch index {
		case 0:
			if err := block.ValidateGenesis(); err != nil {
				return &IntegrityError{Index: index, Err: err}
			}

		default:
			if err := block.ValidateBlock(prevBlock, s.difficulty, s.evHandler); err != nil {
				return &IntegrityError{Index: index, Err: err}
			}
		}

		prevBlock = block
		index++
	}

	if index == 0 {
		return &IntegrityError{Index: 0, Err: errors.New("chain has no genesis block")}
	}

	return nil
}
