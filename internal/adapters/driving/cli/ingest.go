package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index textbook documents from a directory",
	Long: `Reads every supported document (.txt, .md, .text, .pdf) under the
directory, splits it into chunks, embeds them and stores them in the vector
index. Re-running on the same files replaces their entries, so ingestion is
safe to repeat.

With --watch the command keeps running and re-ingests files as they change.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "keep watching the directory for changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := initServices(); err != nil {
		return err
	}
	dir := args[0]

	summary, err := ingestor.IngestDir(cmd.Context(), dir)
	if err != nil {
		return err
	}

	cmd.Printf("Ingested %d documents (%d chunks)\n", summary.Documents, summary.Chunks)
	for _, f := range summary.Failures {
		cmd.PrintErrf("  failed: %s: %v\n", f.SourceID, f.Err)
	}

	if ingestWatch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.Println("Watching for changes (Ctrl+C to stop)...")
		if err := ingestor.Watch(ctx, dir); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	if len(summary.Failures) > 0 {
		return fmt.Errorf("%d documents failed to ingest", len(summary.Failures))
	}
	return nil
}
