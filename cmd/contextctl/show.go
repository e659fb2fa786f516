package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"contextd/internal/tracker"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Print a task's file interaction audit trail",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "emit raw metadata as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	md, err := store.Load(taskID)
	if err != nil {
		return err
	}
	if md == nil {
		return fmt.Errorf("no metadata for task %s", taskID)
	}

	if showJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tSTATE\tSOURCE\tREAD\tAGENT EDIT\tUSER EDIT")
	for _, e := range md.Files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Path, e.State, e.Source,
			fmtMillis(e.AgentReadAt), fmtMillis(e.AgentEditAt), fmtMillis(e.UserEditAt))
	}
	w.Flush()

	if len(md.ModelUsage) > 0 {
		fmt.Println()
		fmt.Println("Model usage:")
		for _, u := range md.ModelUsage {
			fmt.Printf("  %s  %s/%s (%s)\n",
				time.UnixMilli(u.Timestamp).Format(time.RFC3339), u.ProviderID, u.ModelID, u.Mode)
		}
	}

	if warning, err := tracker.LoadPendingWarning(store, taskID); err == nil && len(warning) > 0 {
		fmt.Println()
		fmt.Println("Pending external-edit warning:")
		for _, p := range warning {
			fmt.Printf("  %s\n", p)
		}
	}

	return nil
}

func fmtMillis(ts *int64) string {
	if ts == nil {
		return "-"
	}
	return time.UnixMilli(*ts).Format(time.RFC3339)
}
