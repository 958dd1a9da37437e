package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/abhisek/medipredict/internal/apperr"
	"github.com/abhisek/medipredict/internal/store"
	"github.com/abhisek/medipredict/internal/ui/theme"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded predictions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent predictions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		disease, _ := cmd.Flags().GetString("disease")
		before, _ := cmd.Flags().GetInt64("before")
		since, _ := cmd.Flags().GetDuration("since")

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.QueryOpts{Limit: limit, Before: before, Disease: disease}
		if since > 0 {
			opts.From = time.Now().Add(-since)
		}
		recs, err := s.PredictionRepo().Recent(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query predictions: %w", err)
		}

		if len(recs) == 0 {
			fmt.Println("No predictions found.")
			return nil
		}

		fmt.Printf("%-6s  %-19s  %-24s  %8s  %-6s  %s\n",
			"Seq", "Timestamp", "Disease", "Prob", "Conf", "ID")
		fmt.Println(strings.Repeat("─", 110))

		for _, r := range recs {
			conf := theme.Confidence(r.ConfidenceLevel).Render(fmt.Sprintf("%-6s", r.ConfidenceLevel))
			fmt.Printf("%-6d  %-19s  %-24s  %7.2f%%  %s  %s\n",
				r.Sequence,
				r.Timestamp.Local().Format(time.DateTime),
				truncate(r.Disease, 24),
				r.Probability,
				conf,
				r.ID,
			)
		}
		if len(recs) == limit {
			fmt.Println()
			fmt.Println(theme.Hint.Render(fmt.Sprintf("more: --before %d", recs[len(recs)-1].Sequence)))
		}
		return nil
	},
}

var historyViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "View one recorded prediction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return apperr.Userf("invalid ID %q: %w", args[0], err)
		}

		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := s.PredictionRepo().Get(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Userf("prediction %s not found", id)
		}
		if err != nil {
			return fmt.Errorf("get prediction: %w", err)
		}

		sep := strings.Repeat("─", 60)

		fmt.Printf("ID:          %s\n", r.ID)
		fmt.Printf("Sequence:    %d\n", r.Sequence)
		fmt.Printf("Time:        %s\n", r.Timestamp.Local().Format(time.DateTime))
		fmt.Printf("Disease:     %s\n", r.Disease)
		fmt.Printf("Probability: %.2f%%\n", r.Probability)
		fmt.Printf("Confidence:  %s\n", theme.Confidence(r.ConfidenceLevel).Render(r.ConfidenceLevel))
		if r.ModelVersion != "" {
			fmt.Printf("Model:       %s\n", r.ModelVersion)
		}

		in := r.Input
		fmt.Println()
		fmt.Println(sep)
		fmt.Println("INPUT")
		fmt.Println(sep)
		fmt.Printf("Fever:                %s\n", in.Fever)
		fmt.Printf("Cough:                %s\n", in.Cough)
		fmt.Printf("Fatigue:              %s\n", in.Fatigue)
		fmt.Printf("Difficulty breathing: %s\n", in.DifficultyBreathing)
		fmt.Printf("Age:                  %d\n", in.Age)
		fmt.Printf("Gender:               %s\n", in.Gender)
		fmt.Printf("Blood pressure:       %s\n", in.BloodPressure)
		fmt.Printf("Cholesterol level:    %s\n", in.CholesterolLevel)
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show prediction counts per disease",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		counts, err := s.PredictionRepo().CountByDisease(cmd.Context())
		if err != nil {
			return fmt.Errorf("count predictions: %w", err)
		}
		if len(counts) == 0 {
			fmt.Println("No predictions recorded yet.")
			return nil
		}

		total := 0
		for _, c := range counts {
			total += c.Count
		}

		fmt.Println("Predictions by Disease")
		fmt.Println(strings.Repeat("─", 64))
		for _, c := range counts {
			pct := float64(c.Count) / float64(total) * 100
			fmt.Printf("%-24s  %6d  %s\n", truncate(c.Disease, 24), c.Count, theme.Bar(pct, 24))
		}
		fmt.Println(strings.Repeat("─", 64))
		fmt.Printf("%-24s  %6d\n", "TOTAL", total)
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	historyListCmd.Flags().IntP("limit", "n", 20, "Number of predictions to show")
	historyListCmd.Flags().StringP("disease", "d", "", "Filter by predicted disease")
	historyListCmd.Flags().Int64("before", 0, "Only show predictions with a sequence below this cursor")
	historyListCmd.Flags().Duration("since", 0, "Only show predictions newer than this (e.g. 24h)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyViewCmd)
	historyCmd.AddCommand(historyStatsCmd)
}
