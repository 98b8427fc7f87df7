package state

import (
	"fmt"
	"io"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// Print writes every block in the chain to the writer in index order.
func (s *State) Print(w io.Writer) error {
	blocks, err := s.RetrieveBlocks()
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "-------BLOCKCHAIN-------"); err != nil {
		return err
	}

	for _, block := range blocks {
		if err := PrintBlock(w, block); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return nil
}

// PrintBlock writes the fields of a single block to the writer.
func PrintBlock(w io.Writer, block database.Block) error {
	_, err := fmt.Fprintf(w, "Index: %d\nTimestamp: %s\nData: %s\nPrevious Hash: %s\nHash: %s\nNonce: %d\n",
		block.Index, block.TimeStamp, block.Data, block.PrevHash, block.Hash, block.Nonce)

	return err
}
