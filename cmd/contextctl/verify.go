package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contextd/internal/metadata"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <task-id>",
	Short: "Check a task's persisted metadata against the payload schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	payload, ok, err := store.RawPayload(taskID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no metadata for task %s", taskID)
	}

	if err := metadata.ValidatePayload([]byte(payload)); err != nil {
		return fmt.Errorf("task %s: %w", taskID, err)
	}

	fmt.Printf("Task %s: payload is valid (%d bytes).\n", taskID, len(payload))
	return nil
}
