package state_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/ardanlabs/powchain/foundation/blockchain/digest"
	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/powchain/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ifErrFailNow(t *testing.T, err error) {
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

// fixedClock returns a clock that starts at a fixed time and moves forward
// one second on every read.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		t := now
		now = now.Add(time.Second)
		return t
	}
}

func newState(t *testing.T, difficulty uint) *state.State {
	s, err := state.New(state.Config{
		Difficulty: difficulty,
		Storage:    memory.New(),
		Clock:      fixedClock(),
		EvHandler:  func(v string, args ...any) { t.Logf(v, args...) },
	})
	ifErrFailNow(t, err)

	return s
}

// =============================================================================

func Test_Scenario(t *testing.T) {
	t.Log("Given the need to build a chain with difficulty 0.")
	{
		s := newState(t, 0)
		ctx := context.Background()

		_, err := s.AppendBlock(ctx, "A")
		ifErrFailNow(t, err)
		_, err = s.AppendBlock(ctx, "B")
		ifErrFailNow(t, err)

		blocks, err := s.RetrieveBlocks()
		ifErrFailNow(t, err)

		if len(blocks) != 3 {
			t.Fatalf("\t%s\tShould have 3 blocks: got %d", failed, len(blocks))
		}
		t.Logf("\t%s\tShould have 3 blocks.", success)

		gen := blocks[0]
		if gen.Index != 0 || gen.Data != "Genesis Block" || gen.PrevHash != "0" || gen.Nonce != 0 {
			t.Fatalf("\t%s\tShould have the genesis block first: %+v", failed, gen)
		}
		t.Logf("\t%s\tShould have the genesis block first.", success)

		if gen.TimeStamp != "2024-01-02 15:04:05" {
			t.Fatalf("\t%s\tShould stamp the genesis block from the clock: %s", failed, gen.TimeStamp)
		}
		t.Logf("\t%s\tShould stamp the genesis block from the clock.", success)

		exp := []string{"Genesis Block", "A", "B"}
		for i := 1; i < len(blocks); i++ {
			if blocks[i].Index != uint64(i) || blocks[i].Data != exp[i] || blocks[i].PrevHash != blocks[i-1].Hash {
				t.Fatalf("\t%s\tShould link block %d to block %d: %+v", failed, i, i-1, blocks[i])
			}
			if blocks[i].Nonce != 0 {
				t.Fatalf("\t%s\tShould not search for a nonce with difficulty 0: %d", failed, blocks[i].Nonce)
			}
		}
		t.Logf("\t%s\tShould link every block to its parent.", success)

		blk, err := s.QueryBlockByHash(blocks[1].Hash)
		ifErrFailNow(t, err)
		if blk != blocks[1] || blk.Data != "A" {
			t.Fatalf("\t%s\tShould find block 1 by hash: %+v", failed, blk)
		}
		t.Logf("\t%s\tShould find block 1 by hash.", success)

		if s.RetrieveLatestBlock() != blocks[2] {
			t.Fatalf("\t%s\tShould have block 2 as the latest block.", failed)
		}
		t.Logf("\t%s\tShould have block 2 as the latest block.", success)

		if err := s.Verify(); err != nil {
			t.Fatalf("\t%s\tShould verify the chain: %v", failed, err)
		}
		t.Logf("\t%s\tShould verify the chain.", success)
	}
}

func Test_ProofOfWork(t *testing.T) {
	type table struct {
		name       string
		difficulty uint
		appends    int
	}

	tt := []table{
		{name: "one", difficulty: 1, appends: 5},
		{name: "two", difficulty: 2, appends: 5},
		{name: "three", difficulty: 3, appends: 2},
	}

	t.Log("Given the need to mine every appended block.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				s := newState(t, tst.difficulty)

				for i := 0; i < tst.appends; i++ {
					_, err := s.AppendBlock(context.Background(), fmt.Sprintf("data-%d", i))
					ifErrFailNow(t, err)
				}

				blocks, err := s.RetrieveBlocks()
				ifErrFailNow(t, err)

				prefix := strings.Repeat("0", int(tst.difficulty))
				for _, blk := range blocks[1:] {
					if !strings.HasPrefix(blk.Hash, prefix) {
						t.Fatalf("\t%s\tTest %d:\tShould solve block %d: %s", failed, testID, blk.Index, blk.Hash)
					}
					if blk.ComputeHash() != blk.Hash {
						t.Fatalf("\t%s\tTest %d:\tShould reproduce the hash of block %d.", failed, testID, blk.Index)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould solve every block with prefix %q.", success, testID, prefix)

				if s.RetrieveDifficulty() != tst.difficulty {
					t.Fatalf("\t%s\tTest %d:\tShould keep the configured difficulty.", failed, testID)
				}

				if err := s.Verify(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould verify the chain: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould verify the chain.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_AppendOnly(t *testing.T) {
	s := newState(t, 1)

	before, err := s.RetrieveBlocks()
	ifErrFailNow(t, err)

	for i := 0; i < 4; i++ {
		_, err := s.AppendBlock(context.Background(), fmt.Sprintf("step-%d", i))
		ifErrFailNow(t, err)

		after, err := s.RetrieveBlocks()
		ifErrFailNow(t, err)

		if len(after) != len(before)+1 {
			t.Fatalf("\t%s\tShould grow by one block: got %d, exp %d", failed, len(after), len(before)+1)
		}

		for j := range before {
			if before[j] != after[j] {
				t.Fatalf("\t%s\tShould not change block %d after an append.", failed, j)
			}
		}

		before = after
	}
	t.Logf("\t%s\tShould only ever add blocks to the end.", success)

	if s.RetrieveBlockCount() != 5 {
		t.Fatalf("\t%s\tShould have 5 blocks: got %d", failed, s.RetrieveBlockCount())
	}
}

func Test_NotFound(t *testing.T) {
	s := newState(t, 0)

	type table struct {
		name string
		hash string
	}

	tt := []table{
		{name: "text", hash: "nonexistent"},
		{name: "empty", hash: ""},
		{name: "zeros", hash: strings.Repeat("0", digest.Length)},
		{name: "genesisprev", hash: digest.GenesisPrevHash},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			_, err := s.QueryBlockByHash(tst.hash)
			if !errors.Is(err, state.ErrNotFound) {
				t.Fatalf("\t%s\tShould not find %q: %v", failed, tst.hash, err)
			}
			t.Logf("\t%s\tShould not find %q.", success, tst.hash)
		}

		t.Run(tst.name, f)
	}

	if _, err := s.QueryBlockByIndex(1); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("\t%s\tShould not find index 1: %v", failed, err)
	}
}

func Test_Config(t *testing.T) {
	t.Log("Given the need to reject a bad configuration.")
	{
		_, err := state.New(state.Config{Difficulty: database.MaxDifficulty + 1, Storage: memory.New()})
		if !validate.IsFieldErrors(err) {
			t.Fatalf("\t%s\tShould reject a difficulty above the max: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a difficulty above the max.", success)

		_, err = state.New(state.Config{})
		if !validate.IsFieldErrors(err) {
			t.Fatalf("\t%s\tShould reject a missing storage: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a missing storage.", success)
	}
}

func Test_Cancel(t *testing.T) {
	s := newState(t, database.MaxDifficulty)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := s.AppendBlock(ctx, "never"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("\t%s\tShould stop mining when cancelled: %v", failed, err)
	}
	t.Logf("\t%s\tShould stop mining when cancelled.", success)

	if s.RetrieveBlockCount() != 1 {
		t.Fatalf("\t%s\tShould not add a block when cancelled.", failed)
	}
	t.Logf("\t%s\tShould not add a block when cancelled.", success)
}

func Test_ConcurrentAppend(t *testing.T) {
	s := newState(t, 1)

	const appends = 10

	var wg sync.WaitGroup
	wg.Add(appends)
	for i := 0; i < appends; i++ {
		go func(i int) {
			defer wg.Done()
			if _, err := s.AppendBlock(context.Background(), fmt.Sprintf("g-%d", i)); err != nil {
				t.Errorf("\t%s\tShould append from goroutine %d: %v", failed, i, err)
			}
		}(i)
	}
	wg.Wait()

	if s.RetrieveBlockCount() != appends+1 {
		t.Fatalf("\t%s\tShould have %d blocks: got %d", failed, appends+1, s.RetrieveBlockCount())
	}

	if err := s.Verify(); err != nil {
		t.Fatalf("\t%s\tShould keep a valid chain under concurrent appends: %v", failed, err)
	}
	t.Logf("\t%s\tShould keep a valid chain under concurrent appends.", success)
}

func Test_Print(t *testing.T) {
	s := newState(t, 0)

	blk, err := s.AppendBlock(context.Background(), "A")
	ifErrFailNow(t, err)

	var buf bytes.Buffer
	ifErrFailNow(t, s.Print(&buf))

	out := buf.String()
	for _, exp := range []string{
		"-------BLOCKCHAIN-------",
		"Index: 0\n",
		"Data: Genesis Block\n",
		"Previous Hash: 0\n",
		"Index: 1\n",
		"Data: A\n",
		"Hash: " + blk.Hash + "\n",
	} {
		if !strings.Contains(out, exp) {
			t.Fatalf("\t%s\tShould print %q:\n%s", failed, exp, out)
		}
	}
	t.Logf("\t%s\tShould print every block.", success)
}

// =============================================================================

// tamperStorage wraps a storage and rewrites the data of one block on the
// way out, the way a programmatic change to a stored block would look.
type tamperStorage struct {
	database.Storage
	index uint64
}

func (ts *tamperStorage) GetBlock(index uint64) (database.Block, error) {
	blk, err := ts.Storage.GetBlock(index)
	if err == nil && index == ts.index {
		blk.Data = "tampered"
	}
	return blk, err
}

func (ts *tamperStorage) ForEach() database.Iterator {
	return &tamperIterator{Iterator: ts.Storage.ForEach(), index: ts.index}
}

type tamperIterator struct {
	database.Iterator
	index uint64
}

func (ti *tamperIterator) Next() (database.Block, error) {
	blk, err := ti.Iterator.Next()
	if err == nil && blk.Index == ti.index {
		blk.Data = "tampered"
	}
	return blk, err
}

func Test_VerifyTamper(t *testing.T) {
	mem := memory.New()

	s, err := state.New(state.Config{Difficulty: 1, Storage: mem, Clock: fixedClock()})
	ifErrFailNow(t, err)

	for _, data := range []string{"A", "B", "C"} {
		_, err := s.AppendBlock(context.Background(), data)
		ifErrFailNow(t, err)
	}

	t.Log("Given the need to detect a changed block.")
	{
		for index := uint64(0); index < 4; index++ {
			f := func(t *testing.T) {
				_, err := state.New(state.Config{Difficulty: 1, Storage: &tamperStorage{Storage: mem, index: index}})

				var ie *state.IntegrityError
				if !errors.As(err, &ie) {
					t.Fatalf("\t%s\tShould fail to load a tampered chain: %v", failed, err)
				}
				t.Logf("\t%s\tShould fail to load a tampered chain.", success)

				if ie.Index != index {
					t.Fatalf("\t%s\tShould identify block %d: got %d", failed, index, ie.Index)
				}
				t.Logf("\t%s\tShould identify block %d.", success, index)

				if !errors.Is(err, database.ErrInvalidHash) {
					t.Fatalf("\t%s\tShould report a hash mismatch: %v", failed, err)
				}
				t.Logf("\t%s\tShould report a hash mismatch.", success)
			}

			t.Run(fmt.Sprintf("block%d", index), f)
		}
	}
}

func Test_Reload(t *testing.T) {
	mem := memory.New()

	s, err := state.New(state.Config{Difficulty: 1, Storage: mem, Clock: fixedClock()})
	ifErrFailNow(t, err)

	blk, err := s.AppendBlock(context.Background(), "A")
	ifErrFailNow(t, err)

	reloaded, err := state.New(state.Config{Difficulty: 1, Storage: mem})
	ifErrFailNow(t, err)

	if reloaded.RetrieveLatestBlock() != blk || reloaded.RetrieveGenesis() != s.RetrieveGenesis() {
		t.Fatalf("\t%s\tShould pick up the stored chain.", failed)
	}
	t.Logf("\t%s\tShould pick up the stored chain.", success)

	if _, err := state.New(state.Config{Difficulty: database.MaxDifficulty, Storage: mem}); !state.IsIntegrityError(err) {
		t.Fatalf("\t%s\tShould reject a chain mined at a lower difficulty: %v", failed, err)
	}
	t.Logf("\t%s\tShould reject a chain mined at a lower difficulty.", success)
}
