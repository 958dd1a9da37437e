package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/abhisek/medipredict/internal/apperr"
	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/ui/theme"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the trained model's metadata",
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().StringP("output", "o", "table", "output format: table|json|yaml")
	infoCmd.Flags().Bool("aibom", false, "print the CycloneDX model card instead of the metadata")
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	switch format {
	case "table", "json", "yaml":
	default:
		return apperr.Userf("unknown output format %q (expected table|json|yaml)", format)
	}

	svc, err := loadService()
	if err != nil {
		return err
	}
	md, err := svc.Metadata()
	if err != nil {
		return err
	}

	if showBOM, _ := cmd.Flags().GetBool("aibom"); showBOM {
		return printAIBOM(os.Stdout, filepath.Join(cfg.ArtifactsDir, bundle.AIBOMFile), format)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(md)
	}
	printMetadata(os.Stdout, md)
	return nil
}

func printMetadata(w io.Writer, md *bundle.Metadata) {
	row := func(label, value string) {
		fmt.Fprintf(w, "%s %s\n", theme.Label.Render(fmt.Sprintf("%-18s", label)), value)
	}

	fmt.Fprintln(w, theme.Title.Render("Model"))
	row("Type", md.ModelType)
	if md.Version != "" {
		row("Version", md.Version)
	}
	if !md.TrainedAt.IsZero() {
		row("Trained", md.TrainedAt.Local().Format(time.DateTime))
	}
	row("Accuracy", fmt.Sprintf("%.4f", md.Accuracy))
	if md.NEstimators > 0 {
		row("Trees", fmt.Sprintf("%d (max depth %d)", md.NEstimators, md.MaxDepth))
	}
	if md.TrainingSamples > 0 {
		row("Samples", fmt.Sprintf("%d train / %d test", md.TrainingSamples, md.TestSamples))
	}
	row("Features", fmt.Sprint(md.NFeatures))
	row("Diseases", fmt.Sprint(md.NClasses))

	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Subtitle.Render("Feature importance"))
	fmt.Fprintln(w, strings.Repeat("─", 56))
	for _, fw := range md.RankedImportance() {
		fmt.Fprintf(w, "%-22s %s %6.2f%%\n", fw.Feature, theme.Bar(fw.Importance*100, 24), fw.Importance*100)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, theme.Subtitle.Render("Diseases"))
	fmt.Fprintln(w, strings.Repeat("─", 56))
	for i, c := range md.Classes {
		fmt.Fprintf(w, "%3d  %s\n", i, c)
	}
}

func printAIBOM(w io.Writer, path, format string) error {
	bom, err := bundle.ReadAIBOM(path)
	if err != nil {
		return apperr.Userf("no model card at %s (train with --aibom): %w", path, err)
	}
	switch format {
	case "json":
		enc := cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON)
		enc.SetPretty(true)
		return enc.Encode(bom)
	case "yaml":
		// Round-trip through JSON so the YAML keys match the CycloneDX names.
		var doc any
		raw, err := json.Marshal(bom)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(doc)
	}

	if bom.Metadata == nil || bom.Metadata.Component == nil || bom.Metadata.Component.ModelCard == nil {
		return fmt.Errorf("%s has no model component", path)
	}
	comp := bom.Metadata.Component
	fmt.Fprintln(w, theme.Title.Render("Model card"))
	fmt.Fprintf(w, "%s %s\n", theme.Label.Render(fmt.Sprintf("%-18s", "Component")), comp.BOMRef)
	fmt.Fprintf(w, "%s %s\n", theme.Label.Render(fmt.Sprintf("%-18s", "Version")), comp.Version)
	if p := comp.ModelCard.ModelParameters; p != nil {
		fmt.Fprintf(w, "%s %s / %s\n", theme.Label.Render(fmt.Sprintf("%-18s", "Task")), p.Task, p.ArchitectureFamily)
	}
	if qa := comp.ModelCard.QuantitativeAnalysis; qa != nil && qa.PerformanceMetrics != nil {
		fmt.Fprintln(w)
		for _, m := range *qa.PerformanceMetrics {
			fmt.Fprintf(w, "%-20s %-22s %s\n", m.Type, m.Slice, m.Value)
		}
	}
	return nil
}
