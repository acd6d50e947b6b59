package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"bilisort/internal/engine"
	"bilisort/internal/session"
)

func suggestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Classify fetched videos with the configured AI provider",
		Long: `Ask the configured provider where each fetched video belongs. Videos that
already have a cached suggestion are skipped, so re-running after a partial
failure only classifies the gaps.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			events, err := sess.StartSuggest(cmd.Context())
			if err != nil {
				return err
			}

			var bar *progressbar.ProgressBar
			for ev := range events {
				switch ev.Type {
				case engine.SuggestProgress:
					if bar == nil {
						bar = newBar(ev.Total, "Classifying batches...")
					}
					_ = bar.Set(ev.Completed)
				case engine.SuggestCompleted:
					finishBar(bar)
					fmt.Printf("%d videos have suggestions.\n", len(ev.Results))
					if ev.FailedCount > 0 {
						fmt.Printf("%d videos failed all retries; run 'bilisort suggest' again to fill them in.\n", ev.FailedCount)
					}
					fmt.Println("Run 'bilisort source list' to review them.")
				case engine.SuggestFailed:
					finishBar(bar)
					return fmt.Errorf("classification failed: %s", ev.Reason)
				}
			}

			if st := sess.Status(session.PipelineSuggest); st.LastError != "" {
				return fmt.Errorf("classification failed: %s", st.LastError)
			}
			return nil
		},
	}
}
