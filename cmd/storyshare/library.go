package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "Manage locally saved stories",
}

var bookmarksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarked stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		bookmarks, err := library.Bookmarks(cmd.Context())
		if err != nil {
			return fmt.Errorf("list bookmarks: %w", err)
		}
		if len(bookmarks) == 0 {
			fmt.Println("no bookmarks")
			return nil
		}
		for _, b := range bookmarks {
			fmt.Printf("%s  saved %s\n", b.StoryID, b.BookmarkedAt.Format("2006-01-02"))
			printStory(b.Story)
		}
		return nil
	},
}

var bookmarksAddCmd = &cobra.Command{
	Use:   "add <story-id>",
	Short: "Bookmark a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		story, err := apiClient.StoryDetail(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetch story: %w", err)
		}
		added, err := library.Bookmark(cmd.Context(), *story)
		if err != nil {
			return err
		}
		if !added {
			fmt.Println("already bookmarked")
			return nil
		}
		fmt.Println("bookmarked")
		return nil
	},
}

var bookmarksRemoveCmd = &cobra.Command{
	Use:   "remove <story-id>",
	Short: "Remove a bookmark",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := library.RemoveBookmark(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Println("not bookmarked")
			return nil
		}
		fmt.Println("bookmark removed")
		return nil
	},
}

var likesCmd = &cobra.Command{
	Use:   "likes",
	Short: "List liked stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		likes, err := library.Likes(cmd.Context())
		if err != nil {
			return fmt.Errorf("list likes: %w", err)
		}
		if len(likes) == 0 {
			fmt.Println("no likes")
			return nil
		}
		for _, l := range likes {
			fmt.Printf("%s  liked %s\n", l.StoryID, l.LikedAt.Format("2006-01-02"))
		}
		return nil
	},
}

var likeCmd = &cobra.Command{
	Use:   "like <story-id>",
	Short: "Like a story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		added, err := library.Like(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !added {
			fmt.Println("already liked")
			return nil
		}
		fmt.Println("liked")
		return nil
	},
}

var unlikeCmd = &cobra.Command{
	Use:   "unlike <story-id>",
	Short: "Remove a like",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := library.Unlike(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !removed {
			fmt.Println("not liked")
			return nil
		}
		fmt.Println("unliked")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <story-id>",
	Short: "Show a story's bookmark and like status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := library.CheckStatus(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("bookmarked: %v\nliked: %v\n", status.IsBookmarked, status.IsLiked)
		return nil
	},
}

func init() {
	bookmarksCmd.AddCommand(bookmarksListCmd, bookmarksAddCmd, bookmarksRemoveCmd)
	rootCmd.AddCommand(bookmarksCmd, likesCmd, likeCmd, unlikeCmd, statusCmd)
}
