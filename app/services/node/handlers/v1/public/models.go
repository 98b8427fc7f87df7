package public

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
)

// block is the API form of a block in the chain.
type block struct {
	Index     uint64 `json:"index"`
	TimeStamp string `json:"timestamp"`
	Data      string `json:"data"`
	PrevHash  string `json:"prev_hash"`
	Hash      string `json:"hash"`
	Nonce     uint64 `json:"nonce"`
}

func toBlock(blk database.Block) block {
	return block{
		Index:     blk.Index,
		TimeStamp: blk.TimeStamp,
		Data:      blk.Data,
		PrevHash:  blk.PrevHash,
		Hash:      blk.Hash,
		Nonce:     blk.Nonce,
	}
}

func toBlocks(blks []database.Block) []block {
	out := make([]block, len(blks))
	for i, blk := range blks {
		out[i] = toBlock(blk)
	}
	return out
}

// genesis describes how the chain was started.
type genesis struct {
	Difficulty uint  `json:"difficulty"`
	Blocks     int   `json:"blocks"`
	Genesis    block `json:"genesis"`
}

// newBlock is the payload for appending a block. Any data is accepted,
// including an empty string.
type newBlock struct {
	Data string `json:"data"`
}

// hashQuery is used to validate the hash parameter of a lookup.
type hashQuery struct {
	Hash string `json:"hash" validate:"len=64,hexadecimal,lowercase"`
}

// verification reports the result of verifying the chain.
type verification struct {
	Valid  bool    `json:"valid"`
	Blocks int     `json:"blocks"`
	Index  *uint64 `json:"index,omitempty"`
	Error  string  `json:"error,omitempty"`
}
