package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/timmy/facefinder/internal/app"
	"github.com/timmy/facefinder/internal/domain"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find every known site and image sharing a face with the query image",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().String("url", "", "Query image URL")
	searchCmd.Flags().String("file", "", "Query image file")
	searchCmd.MarkFlagsMutuallyExclusive("url", "file")
	searchCmd.MarkFlagsOneRequired("url", "file")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	imageURL := mustGetString(cmd, "url")
	imagePath := mustGetString(cmd, "file")

	var sources []domain.FaceSource
	if imageURL != "" {
		sources, err = a.Search.SearchByURL(cmd.Context(), imageURL)
	} else {
		var data []byte
		data, err = os.ReadFile(imagePath)
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		if int64(len(data)) > cfg.Ingest.MaxImageBytes {
			return domain.ErrImageTooLarge
		}
		sources, err = a.Search.SearchByImage(cmd.Context(), data)
	}
	if errors.Is(err, domain.ErrUnsupportedFormat) {
		return fmt.Errorf("query image must be JPEG or PNG")
	}
	if err != nil {
		return err
	}
	return printJSON(sources)
}
