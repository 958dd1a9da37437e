package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/abhisek/medipredict/internal/features"
	"github.com/abhisek/medipredict/internal/schema"
)

// Dataset is the labeled training data.
type Dataset struct {
	Records  []features.PatientRecord
	Diseases []string
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.Records) }

// requiredColumns are located by header name; order in the file is free.
var requiredColumns = []string{
	schema.Disease,
	schema.Fever,
	schema.Cough,
	schema.Fatigue,
	schema.DifficultyBreathing,
	schema.Age,
	schema.Gender,
	schema.BloodPressure,
	schema.CholesterolLevel,
}

// LoadFile reads the dataset CSV at path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV reads a dataset with a header row. Extra columns, such as the
// outcome variable, are ignored.
func LoadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset is missing columns: %s", strings.Join(missing, ", "))
	}

	ds := &Dataset{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		get := func(name string) string { return strings.TrimSpace(row[col[name]]) }

		age, err := strconv.Atoi(get(schema.Age))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid age %q", line, get(schema.Age))
		}
		disease := get(schema.Disease)
		if disease == "" {
			return nil, fmt.Errorf("line %d: empty disease", line)
		}

		ds.Diseases = append(ds.Diseases, disease)
		ds.Records = append(ds.Records, features.PatientRecord{
			Fever:               get(schema.Fever),
			Cough:               get(schema.Cough),
			Fatigue:             get(schema.Fatigue),
			DifficultyBreathing: get(schema.DifficultyBreathing),
			Age:                 age,
			Gender:              get(schema.Gender),
			BloodPressure:       get(schema.BloodPressure),
			CholesterolLevel:    get(schema.CholesterolLevel),
		})
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("dataset has no rows")
	}
	return ds, nil
}
