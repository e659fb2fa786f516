package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"contextd/internal/checkpoint"
)

var (
	staleSince    int64
	staleMessages string
)

var staleCmd = &cobra.Command{
	Use:   "stale <task-id>",
	Short: "List files changed since a conversation timestamp",
	Long: `List files whose recorded state postdates the given timestamp, as a
checkpoint restore would compute it. A discarded-message tail may be
supplied as a JSON file to include message evidence.`,
	Args: cobra.ExactArgs(1),
	RunE: runStale,
}

func init() {
	staleCmd.Flags().Int64Var(&staleSince, "since", 0, "reference timestamp in milliseconds since epoch")
	staleCmd.Flags().StringVar(&staleMessages, "messages", "", "JSON file with the discarded message tail")
	staleCmd.MarkFlagRequired("since")
	rootCmd.AddCommand(staleCmd)
}

func runStale(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var discarded []checkpoint.Message
	if staleMessages != "" {
		data, err := os.ReadFile(staleMessages)
		if err != nil {
			return fmt.Errorf("read messages: %w", err)
		}
		if err := json.Unmarshal(data, &discarded); err != nil {
			return fmt.Errorf("parse messages: %w", err)
		}
	}

	analyzer := checkpoint.NewAnalyzer(taskID, store)
	paths, err := analyzer.FilesChangedSince(staleSince, discarded)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		fmt.Println("No files changed since the reference point.")
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
