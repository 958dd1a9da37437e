package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abhisek/medipredict/internal/apperr"
	"github.com/abhisek/medipredict/internal/bundle"
	"github.com/abhisek/medipredict/internal/features"
	"github.com/abhisek/medipredict/internal/predict"
	"github.com/abhisek/medipredict/internal/schema"
	"github.com/abhisek/medipredict/internal/ui/theme"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the most likely disease for a patient",
	Long: "Predict the most likely disease from symptoms and patient profile. Without\n" +
		"field flags an interactive form asks for each value.",
	Example: "  medipredict predict --fever Yes --cough Yes --fatigue Yes --difficulty-breathing No \\\n" +
		"      --age 45 --gender Male --blood-pressure High --cholesterol Normal",
	RunE: runPredict,
}

// patientFlags lists the flags that make up a patient record.
var patientFlags = []string{
	"fever", "cough", "fatigue", "difficulty-breathing",
	"age", "gender", "blood-pressure", "cholesterol",
}

func init() {
	f := predictCmd.Flags()
	addPatientFlags(f)
	f.BoolP("interactive", "i", false, "fill the record in a form")
	f.Bool("json", false, "print the result as JSON")
	f.Bool("strict", false, "reject binary values other than Yes/No and Male/Female")
	f.Bool("history", true, "record the prediction in the history database")
}

func addPatientFlags(f *pflag.FlagSet) {
	f.String("fever", "", "Yes or No")
	f.String("cough", "", "Yes or No")
	f.String("fatigue", "", "Yes or No")
	f.String("difficulty-breathing", "", "Yes or No")
	f.Int("age", -1, "age in years (0-120)")
	f.String("gender", "", "Male or Female")
	f.String("blood-pressure", "", "Low, Normal or High")
	f.String("cholesterol", "", "Low, Normal or High")
}

func runPredict(cmd *cobra.Command, args []string) error {
	svc, err := loadService()
	if err != nil {
		return err
	}

	interactive, _ := cmd.Flags().GetBool("interactive")
	var rec features.PatientRecord
	if interactive || !anyChanged(cmd, patientFlags) {
		rec, err = patientForm(svc.Bundle())
	} else {
		rec, err = patientFromFlags(cmd)
	}
	if err != nil {
		return err
	}

	var p predict.Predictor = svc
	if cfg.Predict.History {
		st, err := openStore()
		if err != nil {
			fmt.Fprintln(os.Stderr, theme.Hint.Render("history disabled: "+err.Error()))
		} else {
			defer st.Close()
			p = predict.WithHistory(svc, st.PredictionRepo())
		}
	}

	res, err := p.Predict(cmd.Context(), rec)
	if err != nil {
		if predict.KindOf(err) == predict.KindInvalidInput {
			return apperr.Userf("invalid patient record: %w", err)
		}
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Println(renderResult(res))
	return nil
}

func anyChanged(cmd *cobra.Command, names []string) bool {
	for _, n := range names {
		if cmd.Flags().Changed(n) {
			return true
		}
	}
	return false
}

func patientFromFlags(cmd *cobra.Command) (features.PatientRecord, error) {
	f := cmd.Flags()
	for _, n := range patientFlags {
		if !f.Changed(n) {
			return features.PatientRecord{}, apperr.Userf("--%s is required when any patient flag is given", n)
		}
	}
	var rec features.PatientRecord
	rec.Fever, _ = f.GetString("fever")
	rec.Cough, _ = f.GetString("cough")
	rec.Fatigue, _ = f.GetString("fatigue")
	rec.DifficultyBreathing, _ = f.GetString("difficulty-breathing")
	rec.Age, _ = f.GetInt("age")
	rec.Gender, _ = f.GetString("gender")
	rec.BloodPressure, _ = f.GetString("blood-pressure")
	rec.CholesterolLevel, _ = f.GetString("cholesterol")
	return rec, nil
}

// patientForm asks for each field. Severity options come from the trained
// mappings so only encodable values can be picked.
func patientForm(b *bundle.Bundle) (features.PatientRecord, error) {
	var (
		rec features.PatientRecord
		age string
	)
	bp, chol := schema.SeverityLevels, schema.SeverityLevels
	if b != nil {
		bp, chol = b.Mappings.BPMapping.Keys(), b.Mappings.CholMapping.Keys()
	}

	yesNo := func(title string, v *string) huh.Field {
		return huh.NewSelect[string]().
			Title(title).
			Options(huh.NewOptions(schema.YesNoDomain...)...).
			Value(v)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Patient record").
				Description("Answer each question. Esc or Ctrl+C cancels."),
			yesNo("Fever?", &rec.Fever),
			yesNo("Cough?", &rec.Cough),
			yesNo("Fatigue?", &rec.Fatigue),
			yesNo("Difficulty breathing?", &rec.DifficultyBreathing),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Age").
				Placeholder("45").
				Value(&age).
				Validate(validateAge),
			huh.NewSelect[string]().
				Title("Gender").
				Options(huh.NewOptions(schema.GenderDomain...)...).
				Value(&rec.Gender),
			huh.NewSelect[string]().
				Title("Blood pressure").
				Options(huh.NewOptions(bp...)...).
				Value(&rec.BloodPressure),
			huh.NewSelect[string]().
				Title("Cholesterol level").
				Options(huh.NewOptions(chol...)...).
				Value(&rec.CholesterolLevel),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return rec, apperr.ErrCancelled
		}
		return rec, err
	}
	rec.Age, _ = strconv.Atoi(strings.TrimSpace(age))
	return rec, nil
}

func validateAge(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("enter a whole number")
	}
	if n < schema.MinAge || n > schema.MaxAge {
		return fmt.Errorf("age must be between %d and %d", schema.MinAge, schema.MaxAge)
	}
	return nil
}

func renderResult(res *predict.Result) string {
	tier := theme.Confidence(string(res.ConfidenceLevel))

	var b strings.Builder
	b.WriteString(theme.Title.Render(res.Disease) + "\n")
	fmt.Fprintf(&b, "%s %s\n\n",
		theme.Body.Render(fmt.Sprintf("%.2f%%", res.Probability)),
		tier.Render(string(res.ConfidenceLevel)+" confidence"))

	for _, dp := range res.AllProbabilities {
		fmt.Fprintf(&b, "%-24s %s %6.2f%%\n", dp.Disease, theme.Bar(dp.Probability, 20), dp.Probability)
	}
	if res.ModelVersion != "" {
		b.WriteString("\n" + theme.Hint.Render("model "+res.ModelVersion))
	}
	return theme.Card.Render(strings.TrimRight(b.String(), "\n"))
}
