package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/timmy/facefinder/internal/cloud"
	"github.com/timmy/facefinder/internal/queue"
	"github.com/timmy/facefinder/internal/service"
)

var publishCmd = &cobra.Command{
	Use:   "publish [candidates.json|-]",
	Short: "Queue candidates for the intake workers",
	Long: `Reads a JSON array of {"site-url","image-url"} objects and sends them to the
candidate queue in batches of queue.batch_size.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().String("client-id", "", "Client tag stamped on every message")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	candidates, err := readCandidates(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	awsCfg, err := cloud.LoadAWSConfig(cmd.Context(), cfg.AWS)
	if err != nil {
		return err
	}
	q, err := queue.NewSQSQueue(awsCfg, cfg.Queue)
	if err != nil {
		return err
	}

	clientID := mustGetString(cmd, "client-id")
	report := service.NewPublisher(q, cfg.Queue.BatchSize).Publish(cmd.Context(), candidates, clientID)

	fmt.Printf("Batch: %s\n", report.BatchID)
	fmt.Printf("Queued: %d in %d batches\n", report.Sent, report.Batches)
	for _, e := range report.Errors {
		fmt.Printf("  batch %d: %d not queued: %v\n", e.Batch, e.Entries, e.Err)
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d candidates were not queued", report.Failed)
	}
	return nil
}
