package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [data...]",
	Short: "Mine a block for each argument, print the chain and verify it.",
	RunE:  buildRun,
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

func buildRun(cmd *cobra.Command, args []string) error {
	st, cleanup, err := newState()
	if err != nil {
		return err
	}
	defer cleanup()

	return build(cmd.Context(), st, args, cmd.OutOrStdout())
}

func build(ctx context.Context, st *state.State, data []string, out io.Writer) error {
	for _, d := range data {
		if _, err := st.AppendBlock(ctx, d); err != nil {
			return err
		}
	}

	if err := st.Print(out); err != nil {
		return err
	}

	if err := st.Verify(); err != nil {
		return fmt.Errorf("verifying chain: %w", err)
	}

	fmt.Fprintf(out, "Chain verified: %d blocks\n", st.RetrieveBlockCount())

	return nil
}
