package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func foldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Inspect and manage the indexed folders",
	}
	cmd.AddCommand(foldersListCmd())
	cmd.AddCommand(foldersMoveCmd())
	cmd.AddCommand(foldersRenameCmd())
	cmd.AddCommand(foldersReorderCmd())
	return cmd
}

func foldersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed folders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			folders, err := sess.Folders(cmd.Context())
			if err != nil {
				return err
			}
			if len(folders) == 0 {
				fmt.Println("No folders indexed yet. Run 'bilisort index' first.")
				return nil
			}
			for _, f := range folders {
				fmt.Printf("%-12d %-30s %d videos\n", f.ID, f.Name, f.MediaCount)
			}
			return nil
		},
	}
}

func foldersMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <bvid> <src-folder-id> <dst-folder-id>",
		Short: "Move a video between folders",
		Long: `Move a video out of the source folder, typically to the folder a
suggestion pointed at. The move is recorded in the operation log and the
video's cached suggestion is dropped.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			bvid := args[0]
			src, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid source folder id %q", args[1])
			}
			dst, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid destination folder id %q", args[2])
			}

			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := sess.MoveVideo(cmd.Context(), src, dst, bvid); err != nil {
				return err
			}
			fmt.Printf("Moved %s.\n", bvid)
			return nil
		},
	}
}

func foldersRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <folder-id> <title>",
		Short: "Rename a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid folder id %q", args[0])
			}

			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := sess.RenameFolder(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			fmt.Printf("Renamed folder %d to %q.\n", id, args[1])
			return nil
		},
	}
}

func foldersReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <folder-id,folder-id,...>",
		Short: "Reorder folders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ids []int64
			for _, part := range strings.Split(args[0], ",") {
				id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
				if err != nil {
					return fmt.Errorf("invalid folder id %q", part)
				}
				ids = append(ids, id)
			}

			sess, cleanup, err := initSession()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := sess.SortFolders(cmd.Context(), ids); err != nil {
				return err
			}
			fmt.Println("Folder order updated.")
			return nil
		},
	}
}
