package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ardanlabs/powchain/foundation/blockchain/state"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Enter product steps, print the chain and look blocks up by hash.",
	Args:  cobra.NoArgs,
	RunE:  shellRun,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func shellRun(cmd *cobra.Command, args []string) error {
	st, cleanup, err := newState()
	if err != nil {
		return err
	}
	defer cleanup()

	return shell(cmd.Context(), st, cmd.InOrStdin(), cmd.OutOrStdout())
}

// shell runs the interactive session. Every line entered becomes a block until
// "done" is read, then the chain is printed and the lookup menu runs until the
// user ends it. End of input stops the session without an error. Lines have
// no length limit.
func shell(ctx context.Context, st *state.State, in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)

	for {
		fmt.Fprint(out, "Enter the step of the product (type 'done' to finish): ")
		product, ok, err := readLine(r)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out)
			break
		}

		if product == "done" {
			break
		}

		if _, err := st.AppendBlock(ctx, product); err != nil {
			return err
		}
	}

	if err := st.Print(out); err != nil {
		return err
	}

	for {
		fmt.Fprintln(out, "Select an option:")
		fmt.Fprintln(out, "1. Retrieve data, index, timestamp")
		fmt.Fprintln(out, "2. End")
		fmt.Fprint(out, "Enter option: ")
		option, ok, err := readLine(r)
		if err != nil || !ok {
			fmt.Fprintln(out)
			return err
		}

		switch strings.TrimSpace(option) {
		case "1":
			fmt.Fprint(out, "Enter the hash to retrieve data: ")
			hash, ok, err := readLine(r)
			if err != nil || !ok {
				fmt.Fprintln(out)
				return err
			}

			block, err := st.QueryBlockByHash(hash)
			if err != nil {
				if !errors.Is(err, state.ErrNotFound) {
					return err
				}
				fmt.Fprintln(out, "Hash not found in the blockchain.")
				continue
			}

			fmt.Fprintln(out, "------RETRIEVED DATA------")
			fmt.Fprintf(out, "Index: %d\nTimestamp: %s\nData: %s\n", block.Index, block.TimeStamp, block.Data)

		case "2":
			fmt.Fprintln(out, "Ended...")
			return nil

		default:
			fmt.Fprintln(out, "Invalid option. Please enter a valid option.")
		}
	}
}

// readLine returns the next line without its line ending. A final line with
// no newline is still returned. ok is false once the input is exhausted.
func readLine(r *bufio.Reader) (line string, ok bool, err error) {
	line, err = r.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		if line == "" {
			return "", false, nil
		}
	default:
		return "", false, err
	}

	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	return line, true, nil
}
