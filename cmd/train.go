package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/config"
	"github.com/abhisek/medipredict/internal/training"
	"github.com/abhisek/medipredict/internal/ui/theme"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a model from the symptom dataset",
	Long: "Train a random forest on the dataset, evaluate it on a held-out split and write\n" +
		"the model bundle to the artifacts directory.",
	RunE: runTrain,
}

func init() {
	d := config.DefaultConfig()
	f := trainCmd.Flags()
	f.String("dataset", d.DatasetPath, "path to the training CSV")
	f.Int("trees", d.Train.Trees, "number of trees")
	f.Int("max-depth", d.Train.MaxDepth, "maximum tree depth")
	f.Uint64("seed", d.Train.Seed, "random seed for the split and the forest")
	f.Int("workers", d.Train.Workers, "parallel tree fitters (0 = GOMAXPROCS)")
	f.Int("test-percent", d.Train.TestPercent, "share of rows held out for evaluation")
	f.Bool("aibom", d.Train.AIBOM, "also write a CycloneDX model card")
	f.String("model-version", "", "version recorded in the metadata (default: training timestamp)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	opts := training.DefaultOptions()
	opts.DatasetPath = cfg.DatasetPath
	opts.OutputDir = cfg.ArtifactsDir
	opts.Forest.NumTrees = cfg.Train.Trees
	opts.Forest.MaxDepth = cfg.Train.MaxDepth
	opts.Forest.Seed = cfg.Train.Seed
	opts.Forest.Workers = cfg.Train.Workers
	opts.SplitSeed = cfg.Train.Seed
	opts.TestFraction = float64(cfg.Train.TestPercent) / 100
	opts.AIBOM = cfg.Train.AIBOM
	opts.Version, _ = cmd.Flags().GetString("model-version")

	rep, err := training.New(opts).Run(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(renderReport(rep, opts.AIBOM))
	return nil
}

func renderReport(rep *training.Report, aibom bool) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Training complete") + "\n\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", theme.Label.Render(fmt.Sprintf("%-12s", label)), value)
	}
	row("Rows", fmt.Sprint(rep.Rows))
	row("Diseases", fmt.Sprint(len(rep.Classes)))
	row("Split", fmt.Sprintf("%d train / %d test", rep.TrainingSamples, rep.TestSamples))
	row("Accuracy", theme.High.Render(fmt.Sprintf("%.4f", rep.Accuracy)))
	if rep.Bundle != nil {
		row("Version", rep.Bundle.Metadata.Version)
	}
	row("Output", rep.OutputDir)
	if aibom && rep.OutputDir != "" {
		row("Model card", filepath.Join(rep.OutputDir, bundle.AIBOMFile))
	}

	b.WriteString("\n" + theme.Subtitle.Render("Feature importance") + "\n")
	for _, fw := range rep.Importance {
		fmt.Fprintf(&b, "  %-22s %s %6.2f%%\n", fw.Feature, theme.Bar(fw.Importance*100, 24), fw.Importance*100)
	}

	var total time.Duration
	parts := make([]string, 0, len(rep.Timings))
	for _, st := range rep.Timings {
		total += st.Duration
		parts = append(parts, fmt.Sprintf("%s %s", st.Stage, st.Duration.Round(time.Millisecond)))
	}
	b.WriteString("\n" + theme.Hint.Render(fmt.Sprintf("%s (total %s)", strings.Join(parts, ", "), total.Round(time.Millisecond))))
	return b.String()
}
