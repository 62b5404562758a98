package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyshare/internal/domain"
	"storyshare/internal/paginate"
)

var (
	listPages    int
	listLocation bool
	addDesc      string
	addPhoto     string
	addLat       float64
	addLon       float64
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Browse and submit stories",
}

var storiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stories, falling back to the local replica when offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		location := 0
		if listLocation {
			location = 1
		}
		paginator := paginate.New(
			feedFetcher{feed: feed, location: location},
			observer,
			paginate.Config{
				PageSize:   cfg.API.PageSize,
				MaxRetries: cfg.Retry.MaxRetries,
				BaseDelay:  cfg.Retry.BaseDelay,
			},
			logger,
		)

		snap, err := paginator.LoadInitial(cmd.Context())
		if err != nil {
			return fmt.Errorf("load stories: %w", err)
		}
		for page := 1; page < listPages && snap.HasMore; page++ {
			snap, err = paginator.LoadMore(cmd.Context())
			if err != nil {
				return fmt.Errorf("load more stories: %w", err)
			}
		}

		if snap.IsOffline {
			fmt.Fprintln(os.Stderr, "offline: showing cached stories")
		}
		for _, story := range snap.Items {
			printStory(story)
		}
		if snap.HasMore {
			fmt.Printf("… more available (showed %d pages)\n", snap.Page)
		}
		return nil
	},
}

var storiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Submit a new story (guest endpoint when not logged in)",
	RunE: func(cmd *cobra.Command, args []string) error {
		photo, err := os.ReadFile(addPhoto)
		if err != nil {
			return fmt.Errorf("read photo: %w", err)
		}

		in := domain.NewStory{
			Description: addDesc,
			PhotoName:   addPhoto,
			Photo:       photo,
		}
		if cmd.Flags().Changed("lat") {
			in.Lat = &addLat
		}
		if cmd.Flags().Changed("lon") {
			in.Lon = &addLon
		}

		if err := feed.Submit(cmd.Context(), in); err != nil {
			return fmt.Errorf("submit story: %w", err)
		}
		fmt.Println("story submitted")
		return nil
	},
}

var storiesShowCmd = &cobra.Command{
	Use:   "show <story-id>",
	Short: "Show one story's details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		story, err := apiClient.StoryDetail(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetch story: %w", err)
		}
		printStory(*story)

		status, err := library.CheckStatus(cmd.Context(), story.ID)
		if err != nil {
			return err
		}
		fmt.Printf("  bookmarked: %v  liked: %v\n", status.IsBookmarked, status.IsLiked)
		return nil
	},
}

func printStory(story domain.Story) {
	fmt.Printf("%s  %s  %s\n", story.ID, story.CreatedAt.Format("2006-01-02 15:04"), story.Name)
	if story.Description != "" {
		fmt.Printf("  %s\n", story.Description)
	}
	if story.Lat != nil && story.Lon != nil {
		fmt.Printf("  at %.5f,%.5f\n", *story.Lat, *story.Lon)
	}
}

func init() {
	storiesListCmd.Flags().IntVar(&listPages, "pages", 1, "number of pages to load")
	storiesListCmd.Flags().BoolVar(&listLocation, "location", false, "only stories with location data")

	storiesAddCmd.Flags().StringVar(&addDesc, "description", "", "story description")
	storiesAddCmd.Flags().StringVar(&addPhoto, "photo", "", "path to the photo file")
	storiesAddCmd.Flags().Float64Var(&addLat, "lat", 0, "latitude")
	storiesAddCmd.Flags().Float64Var(&addLon, "lon", 0, "longitude")
	_ = storiesAddCmd.MarkFlagRequired("description")
	_ = storiesAddCmd.MarkFlagRequired("photo")

	storiesCmd.AddCommand(storiesListCmd, storiesAddCmd, storiesShowCmd)
	rootCmd.AddCommand(storiesCmd)
}
