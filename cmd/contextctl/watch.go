package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"contextd/internal/metadata"
	"contextd/internal/tracker"
)

var watchTaskID string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Track a directory's files live until interrupted",
	Long: `Track every regular file under a directory (non-recursive) and report
external edits as they are attributed. Useful for exercising the engine
against a real editor.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchTaskID, "task", "", "task id to record under (generated when empty)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	taskID := watchTaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := metadata.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	tr, err := tracker.New(tracker.Config{
		TaskID:   taskID,
		Store:    store,
		Cwd:      func() (string, bool) { return root, true },
		Debounce: time.Duration(cfg.Watch.DebounceMs) * time.Millisecond,
		MarkTTL:  time.Duration(cfg.Watch.MarkTTLSeconds) * time.Second,
	})
	if err != nil {
		return err
	}
	defer tr.Dispose()

	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := tr.Track(entry.Name(), metadata.SourceMentioned); err != nil {
			return err
		}
	}

	fmt.Printf("Tracking %d file(s) in %s as task %s. Ctrl-C to stop.\n",
		tr.WatchCount(), root, taskID)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			fmt.Println("\nStopping.")
			return nil
		case <-ticker.C:
			for _, p := range tr.TakeRecentlyModified() {
				fmt.Printf("external edit: %s\n", p)
			}
		}
	}
}
