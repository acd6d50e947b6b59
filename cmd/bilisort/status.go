package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bilisort/internal/model"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show indexed and fetched state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			folders, err := sess.Folders(ctx)
			if err != nil {
				return err
			}
			videos, meta, suggestions, err := sess.SourceState(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Folders indexed:   %d\n", len(folders))
			if meta == nil {
				fmt.Println("Source folder:     none fetched")
			} else {
				fmt.Printf("Source folder:     %d\n", meta.FolderID)
				fmt.Printf("Videos loaded:     %d of %d (more: %t)\n", len(videos), meta.Total, meta.HasMore)
				fmt.Printf("Last fetch:        %s\n", meta.LastFetchTime.Local().Format("2006-01-02 15:04:05"))
			}
			fmt.Printf("Suggestions:       %d\n", len(suggestions))
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent moves",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := sess.OperationLog(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No moves recorded yet.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %s  %q: %s -> %s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04"),
					e.BVID, e.VideoTitle, e.FromFolderName, e.ToFolderName)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 50, "maximum entries to show")
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change classification settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := cmd.Context()
			settings, err := sess.Settings(ctx)
			if err != nil {
				return err
			}

			changed := false
			if v, _ := cmd.Flags().GetString("provider"); v != "" {
				settings.Provider = model.Provider(v)
				changed = true
			}
			if v, _ := cmd.Flags().GetString("api-key"); v != "" {
				settings.APIKey = v
				changed = true
			}
			if v, _ := cmd.Flags().GetString("gemini-api-key"); v != "" {
				settings.GeminiAPIKey = v
				changed = true
			}
			if v, _ := cmd.Flags().GetString("model"); v != "" {
				settings.Model = v
				changed = true
			}
			if v, _ := cmd.Flags().GetString("source-folder"); v != "" {
				id, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid folder id %q", v)
				}
				settings.SourceFolderID = id
				changed = true
			}

			if changed {
				if err := sess.UpdateSettings(ctx, settings); err != nil {
					return err
				}
				fmt.Println("Settings updated.")
			}

			fmt.Printf("Provider:       %s\n", settings.ActiveProvider())
			fmt.Printf("Model:          %s\n", settings.ActiveModel())
			fmt.Printf("API key set:    %t\n", settings.ActiveKey() != "")
			if settings.SourceFolderID != 0 {
				fmt.Printf("Source folder:  %d\n", settings.SourceFolderID)
			} else {
				fmt.Println("Source folder:  first indexed folder")
			}
			return nil
		},
	}
	cmd.Flags().String("provider", "", "classification provider (gemini, claude)")
	cmd.Flags().String("api-key", "", "Claude API key")
	cmd.Flags().String("gemini-api-key", "", "Gemini API key")
	cmd.Flags().String("model", "", "model override")
	cmd.Flags().String("source-folder", "", "default source folder id")
	return cmd
}
