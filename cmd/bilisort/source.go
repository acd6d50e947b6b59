package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"bilisort/internal/common"
	"bilisort/internal/model"
	"bilisort/internal/session"
)

func sourceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage the source folder's video list",
	}
	cmd.AddCommand(sourceFetchCmd())
	cmd.AddCommand(sourceRefreshCmd())
	cmd.AddCommand(sourceMoreCmd())
	cmd.AddCommand(sourceListCmd())
	return cmd
}

func sourceFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [folder-id]",
		Short: "Fetch the first window of the source folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			folderID, err := resolveFolderArg(cmd, sess, args)
			if err != nil {
				return err
			}
			videos, meta, err := sess.FetchSource(cmd.Context(), folderID)
			reportWindow(videos, meta)
			return rateLimitHint(err)
		},
	}
}

func sourceRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [folder-id]",
		Short: "Discard fetched videos and suggestions, fetch again",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			folderID, err := resolveFolderArg(cmd, sess, args)
			if err != nil {
				return err
			}
			videos, meta, err := sess.RefreshSource(cmd.Context(), folderID)
			reportWindow(videos, meta)
			return rateLimitHint(err)
		},
	}
}

func sourceMoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "more",
		Short: "Fetch the next window of the source folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			videos, meta, err := sess.LoadMoreSource(cmd.Context())
			if errors.Is(err, common.ErrNothingToLoad) {
				fmt.Println("Nothing more to load. Run 'bilisort source fetch' first.")
				return nil
			}
			reportWindow(videos, meta)
			return rateLimitHint(err)
		},
	}
}

func sourceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show fetched videos and their cached suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			videos, meta, suggestions, err := sess.SourceState(cmd.Context())
			if err != nil {
				return err
			}
			if meta == nil {
				fmt.Println("No source folder fetched yet. Run 'bilisort source fetch <folder-id>'.")
				return nil
			}

			for _, v := range videos {
				fmt.Printf("%s  %s\n", v.BVID, v.Title)
				for _, sg := range suggestions[v.BVID] {
					fmt.Printf("    -> %s (%.0f%%)\n", sg.FolderName, sg.Confidence*100)
				}
			}
			fmt.Printf("\n%d of %d videos loaded", len(videos), meta.Total)
			if meta.HasMore {
				fmt.Print("; run 'bilisort source more' for the next window")
			}
			fmt.Println()
			return nil
		},
	}
}

// resolveFolderArg takes the folder id from the argument, falling back
// to the configured source folder, then the first indexed folder.
func resolveFolderArg(cmd *cobra.Command, sess *session.Session, args []string) (int64, error) {
	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid folder id %q", args[0])
		}
		return id, nil
	}

	settings, err := sess.Settings(cmd.Context())
	if err != nil {
		return 0, err
	}
	if settings.SourceFolderID != 0 {
		return settings.SourceFolderID, nil
	}

	folders, err := sess.Folders(cmd.Context())
	if err != nil {
		return 0, err
	}
	if len(folders) == 0 {
		return 0, errors.New("no folder id given and none indexed; run 'bilisort index' first")
	}
	return folders[0].ID, nil
}

func reportWindow(videos []model.Video, meta *model.SourceMeta) {
	if meta == nil {
		return
	}
	fmt.Printf("Loaded %d videos (total %d", len(videos), meta.Total)
	if meta.HasMore {
		fmt.Printf(", next page %d", meta.NextPage)
	}
	fmt.Println(")")
}

// rateLimitHint keeps a rate-limited fetch from looking like a dead
// end: the partial window was persisted, retrying later resumes it.
func rateLimitHint(err error) error {
	if errors.Is(err, common.ErrRateLimited) {
		fmt.Println("Rate limited by the upstream; fetched pages were kept. Try again in a few minutes.")
		return nil
	}
	return err
}
