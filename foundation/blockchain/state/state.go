// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/ardanlabs/powchain/foundation/validate"
)

// ErrNotFound is returned when a block can't be located in the chain.
var ErrNotFound = errors.New("block not found")

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the blockchain.
type EventHandler func(v string, args ...any)

// Config represents the configuration required to start the blockchain.
type Config struct {
	Difficulty uint             `validate:"max=8"`
	Storage    database.Storage `validate:"required"`
	Clock      func() time.Time
	EvHandler  EventHandler
}

// State manages the blockchain.
type State struct {
	difficulty uint
	clock      func() time.Time
	evHandler  EventHandler
	storage    database.Storage

	// appendMu serializes AppendBlock so the tail that is read is still the
	// tail when the mined block is written.
	appendMu sync.Mutex

	mu          sync.RWMutex
	genesis     database.Block
	latestBlock database.Block
}

// New constructs a new blockchain. If the storage is empty the genesis block
// is created and written, otherwise the stored chain is validated and used.
func New(cfg Config) (*State, error) {
	if err := validate.Check(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	state := State{
		difficulty: cfg.Difficulty,
		clock:      clock,
		evHandler:  ev,
		storage:    cfg.Storage,
	}

	switch cfg.Storage.Count() {
	case 0:
		genesis := database.NewBlock(0, state.timeStamp(), database.GenesisData, digest.GenesisPrevHash)
		if err := state.storage.Write(genesis); err != nil {
			return nil, fmt.Errorf("writing genesis block: %w", err)
		}

		ev("state: New: genesis block created: blk[%s]", genesis)

		state.genesis = genesis
		state.latestBlock = genesis

	default:
		if err := state.Verify(); err != nil {
			return nil, fmt.Errorf("loading blocks: %w", err)
		}

		genesis, err := state.storage.GetBlock(0)
		if err != nil {
			return nil, fmt.Errorf("reading genesis block: %w", err)
		}

		latestBlock, err := state.storage.GetBlock(uint64(state.storage.Count() - 1))
		if err != nil {
			return nil, fmt.Errorf("reading latest block: %w", err)
		}

		ev("state: New: loaded %d blocks: latest blk[%s]", state.storage.Count(), latestBlock)

		state.genesis = genesis
		state.latestBlock = latestBlock
	}

	return &state, nil
}

// Shutdown cleanly brings the blockchain down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Wait for any append that is mining to finish.
	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	return s.storage.Close()
}

// timeStamp reads the clock and formats the time for a block.
func (s *State) timeStamp() string {
	return s.clock().Format(database.TimeFormat)
}
