package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
)

// MaxDifficulty is the largest difficulty the blockchain accepts. Every extra
// zero multiplies the expected mining work by 16.
const MaxDifficulty = 8

// GenesisData is the payload stored in the genesis block.
const GenesisData = "Genesis Block"

// TimeFormat is the layout used for a block's timestamp.
const TimeFormat = "2006-01-02 15:04:05"

// ErrInvalidHash is returned by ValidateBlock when the stored hash does not
// match the hash computed from the block's content.
var ErrInvalidHash = errors.New("block hash does not match block content")

// =============================================================================

// Block represents a single record in the chain. A Block is a value, the
// chain only ever hands out copies, so a mined block can't be changed in
// place by a caller.
type Block struct {
	Index     uint64 `json:"index"`     // Position in the chain, the genesis block is 0.
	TimeStamp string `json:"timestamp"` // Creation time formatted YYYY-MM-DD HH:MM:SS.
	Data      string `json:"data"`      // Opaque payload.
	PrevHash  string `json:"prev_hash"` // Hash of the previous block in the chain.
	Hash      string `json:"hash"`      // Hash of this block's content.
	Nonce     uint64 `json:"nonce"`     // Value identified to solve the hash solution.
}

// NewBlock constructs a block with a zero nonce and its hash already
// computed. The values are trusted as provided.
func NewBlock(index uint64, timeStamp string, data string, prevHash string) Block {
	b := Block{
		Index:     index,
		TimeStamp: timeStamp,
		Data:      data,
		PrevHash:  prevHash,
	}
	b.Hash = b.ComputeHash()

	return b
}

// ComputeHash returns the hash of the block's content. The content is the
// concatenation of index, timestamp, data, previous hash and nonce in that
// order with the integers rendered in base 10.
func (b Block) ComputeHash() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(b.Index, 10))
	sb.WriteString(b.TimeStamp)
	sb.WriteString(b.Data)
	sb.WriteString(b.PrevHash)
	sb.WriteString(strconv.FormatUint(b.Nonce, 10))

	return digest.Hash(sb.String())
}

// String implements the Stringer interface for logging.
func (b Block) String() string {
	return fmt.Sprintf("%d:%s", b.Index, b.Hash)
}

// =============================================================================

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Difficulty uint
	PrevBlock  Block
	TimeStamp  string
	Data       string
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	if args.Difficulty > MaxDifficulty {
		return Block{}, fmt.Errorf("difficulty %d is larger than the max of %d", args.Difficulty, MaxDifficulty)
	}

	ev := args.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	nb := NewBlock(args.PrevBlock.Index+1, args.TimeStamp, args.Data, args.PrevBlock.Hash)

	// Peform the proof of work mining operation.
	if err := nb.performPOW(ctx, args.Difficulty, ev); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
// Only POW can reach this method so a block leaves the package immutable.
func (b *Block) performPOW(ctx context.Context, difficulty uint, ev func(v string, args ...any)) error {
	ev("database: PerformPOW: MINING: started: blk[%d]: difficulty[%d]", b.Index, difficulty)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Index)

	// The hash for nonce 0 was computed during construction and is the
	// first candidate. A difficulty of 0 is solved right here.
	var attempts uint64
	for !IsHashSolved(difficulty, b.Hash) {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we timeout trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		b.Nonce++
		b.Hash = b.ComputeHash()
	}

	ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: nonce[%d]", b.PrevHash, b.Hash, b.Nonce)

	return nil
}

// =============================================================================

// ValidateBlock takes a block and validates it can follow the previous block
// in a chain mined at the specified difficulty.
func (b Block) ValidateBlock(previousBlock Block, difficulty uint, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash matches content", b.Index)

	if hash := b.ComputeHash(); hash != b.Hash {
		return fmt.Errorf("%w, got %s, exp %s", ErrInvalidHash, b.Hash, hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Index)

	nextIndex := previousBlock.Index + 1
	if b.Index != nextIndex {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Index, nextIndex)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Index)

	if b.PrevHash != previousBlock.Hash {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.PrevHash, previousBlock.Hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Index)

	if !IsHashSolved(difficulty, b.Hash) {
		return fmt.Errorf("%s invalid block hash for difficulty %d", b.Hash, difficulty)
	}

	return nil
}

// ValidateGenesis validates the block is a well formed genesis block. The
// genesis block is never mined so there is no POW check.
func (b Block) ValidateGenesis() error {
	if b.Index != 0 {
		return fmt.Errorf("genesis block has index %d", b.Index)
	}

	if b.PrevHash != digest.GenesisPrevHash {
		return fmt.Errorf("genesis block has parent hash %q, exp %q", b.PrevHash, digest.GenesisPrevHash)
	}

	if hash := b.ComputeHash(); hash != b.Hash {
		return fmt.Errorf("%w, got %s, exp %s", ErrInvalidHash, b.Hash, hash)
	}

	return nil
}

// IsHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func IsHashSolved(difficulty uint, hash string) bool {
	const match = "0000000000000000"

	if difficulty > uint(len(match)) || len(hash) < int(difficulty) {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}
