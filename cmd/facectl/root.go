package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/timmy/facefinder/internal/config"
	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "facectl",
	Short: "Operator tool for the face index",
	Long: `facectl queues and ingests crawler candidates, searches the face index
by URL or local file, and manages the database schema.`,
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initLogger)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file")
}

func initLogger() {
	cfg := logger.LoadFromEnv()
	cfg.Format = "text"
	cfg.Output = os.Stderr
	cfg.ServiceName = "facectl"
	logger.SetDefaultLogger(logger.New(cfg))
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// readCandidates loads a JSON array of candidates from path, or stdin for "-".
func readCandidates(path string) ([]domain.Candidate, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates: %w", err)
	}

	var candidates []domain.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return nil, fmt.Errorf("failed to parse candidates: %w", err)
	}
	for i, c := range candidates {
		if c.SiteURL == "" || c.ImageURL == "" {
			return nil, fmt.Errorf("candidate %d: site-url and image-url are required", i)
		}
	}
	return candidates, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
