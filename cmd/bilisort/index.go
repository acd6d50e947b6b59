package main

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bilisort/internal/engine"
	"bilisort/internal/session"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Index folders and sample their contents",
		Long: `Walk every favorite folder, sample a few titles from each, and store the
result for classification. An interrupted or rate-limited run resumes from
its checkpoint; already-sampled folders are not fetched again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), false)
		},
	}
}

func reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Discard all indexed state and index from scratch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), true)
		},
	}
}

func runIndex(ctx context.Context, force bool) error {
	sess, cleanup, err := initSession()
	if err != nil {
		return err
	}
	defer cleanup()

	var events <-chan engine.IndexEvent
	if force {
		events, err = sess.ForceReindex(ctx)
	} else {
		events, err = sess.StartIndex(ctx)
	}
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	for ev := range events {
		switch ev.Type {
		case engine.IndexFolders:
			fmt.Printf("Found %d folders\n", len(ev.Folders))
		case engine.IndexProgress:
			if bar == nil {
				bar = newBar(ev.Total, "Sampling folders...")
			}
			bar.Describe(fmt.Sprintf("Sampling %s", ev.Current))
			_ = bar.Set(ev.Sampled)
		case engine.IndexPaused:
			finishBar(bar)
			fmt.Printf("Paused by rate limiting at %d/%d folders. Run 'bilisort index' again later to resume.\n",
				ev.Sampled, ev.Total)
		case engine.IndexCompleted:
			finishBar(bar)
			fmt.Printf("Indexed %d folders.\n", ev.Total)
		case engine.IndexFailed:
			finishBar(bar)
			return fmt.Errorf("indexing failed: %s", ev.Reason)
		}
	}

	// The channel closing before a terminal event means the status
	// carries the outcome; surface any recorded error.
	if st := sess.Status(session.PipelineIndex); st.LastError != "" {
		return fmt.Errorf("indexing failed: %s", st.LastError)
	}
	return nil
}

func newBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
	)
}

func finishBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}
