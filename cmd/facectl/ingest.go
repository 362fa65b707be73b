package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/timmy/facefinder/internal/app"
	"github.com/timmy/facefinder/internal/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [candidates.json|-]",
	Short: "Run candidates through the intake pipeline without the queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().Int("workers", 0, "Concurrent candidates (default: ingest.workers)")
	ingestCmd.Flags().Bool("verbose", false, "Print the outcome of every candidate")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	candidates, err := readCandidates(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if workers := mustGetInt(cmd, "workers"); workers > 0 {
		cfg.Ingest.Workers = workers
	}

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	results, stats, err := a.Intake.ProcessBatch(cmd.Context(), a.Store, candidates)

	if mustGetBool(cmd, "verbose") {
		for _, r := range results {
			line := fmt.Sprintf("%-13s %s %s", r.Outcome, r.Candidate.SiteURL, r.Candidate.ImageURL)
			if r.Outcome == domain.OutcomeIndexed {
				line += fmt.Sprintf(" faces=%d", len(r.FaceIDs))
			} else if r.Err != nil {
				line += " (" + r.Err.Error() + ")"
			}
			fmt.Println(line)
		}
	}

	fmt.Printf("Total: %d\n", stats.Total)
	fmt.Printf("Indexed: %d, already known: %d, excluded: %d, rejected: %d, no face: %d, failed: %d\n",
		stats.Indexed, stats.AlreadyKnown, stats.Excluded, stats.Rejected, stats.NoFace, stats.Failed)
	fmt.Printf("Duration: %s\n", stats.EndTime.Sub(stats.StartTime).Round(time.Millisecond))
	return err
}
