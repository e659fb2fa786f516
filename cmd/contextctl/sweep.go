package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contextd/internal/sweeper"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete pending-warning keys for tasks that no longer exist",
	Args:  cobra.NoArgs,
	RunE:  runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	removed, err := sweeper.SweepKnown(store)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d orphaned warning key(s).\n", removed)
	return nil
}
