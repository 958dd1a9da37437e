package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names.
const (
	predictionsTable = "predictions"

	colID           = "id"
	colSequence     = "sequence"
	colTimestamp    = "timestamp"
	colInput        = "input"
	colDisease      = "disease"
	colProbability  = "probability"
	colConfidence   = "confidence_level"
	colModelVersion = "model_version"
)

var (
	// PredictionsColumns holds the columns for the "predictions" table.
	PredictionsColumns = []*schema.Column{
		{Name: colID, Type: field.TypeString, Size: 36, Unique: true},
		{Name: colSequence, Type: field.TypeInt64, Unique: true},
		// Unix milliseconds, UTC.
		{Name: colTimestamp, Type: field.TypeInt64},
		{Name: colInput, Type: field.TypeJSON},
		{Name: colDisease, Type: field.TypeString},
		{Name: colProbability, Type: field.TypeFloat64},
		{Name: colConfidence, Type: field.TypeString},
		{Name: colModelVersion, Type: field.TypeString},
	}
	// PredictionsTable holds the schema information for the "predictions" table.
	PredictionsTable = &schema.Table{
		Name:       predictionsTable,
		Columns:    PredictionsColumns,
		PrimaryKey: []*schema.Column{PredictionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "prediction_timestamp", Columns: []*schema.Column{PredictionsColumns[2]}},
			{Name: "prediction_disease", Columns: []*schema.Column{PredictionsColumns[4]}},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		PredictionsTable,
	}
)
