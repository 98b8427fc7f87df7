// Package cmd contains the chain app.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/ardanlabs/powchain/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/powchain/foundation/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	difficulty uint
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().UintVarP(&difficulty, "difficulty", "d", 2, "Number of leading zero hex digits a block hash needs.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log mining events to stderr.")
}

var rootCmd = &cobra.Command{
	Use:          "chain",
	Short:        "Build and query an in-memory proof of work chain",
	SilenceUsage: true,
}

// Execute runs the root command. An interrupt cancels any mining in progress.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// newState constructs an empty chain at the configured difficulty. The
// returned function shuts the chain down and flushes the logger.
func newState() (*state.State, func(), error) {
	log := zap.NewNop().Sugar()
	if verbose {
		l, err := logger.New("CHAIN", "stderr")
		if err != nil {
			return nil, nil, fmt.Errorf("constructing logger: %w", err)
		}
		log = l
	}

	ev := func(v string, args ...any) {
		log.Infow(fmt.Sprintf(v, args...))
	}

	st, err := state.New(state.Config{
		Difficulty: difficulty,
		Storage:    memory.New(),
		EvHandler:  ev,
	})
	if err != nil {
		log.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		st.Shutdown()
		log.Sync()
	}

	return st, cleanup, nil
}
