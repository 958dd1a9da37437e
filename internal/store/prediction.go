package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/medipredict/internal/features"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// PredictionRecord is one stored prediction.
type PredictionRecord struct {
	ID              uuid.UUID              `json:"id"`
	Sequence        int64                  `json:"sequence"`
	Timestamp       time.Time              `json:"timestamp"`
	Input           features.PatientRecord `json:"input"`
	Disease         string                 `json:"disease"`
	Probability     float64                `json:"probability"`
	ConfidenceLevel string                 `json:"confidence_level"`
	ModelVersion    string                 `json:"model_version,omitempty"`
}

// QueryOpts configures history queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	Before  int64     // sequence < Before (0 = no cursor)
	Disease string    // exact disease match
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
}

// DiseaseCount is the number of stored predictions for one disease.
type DiseaseCount struct {
	Disease string `json:"disease"`
	Count   int    `json:"count"`
}

// PredictionRepo stores and queries prediction history.
type PredictionRepo interface {
	// Append stores rec, assigning ID, Sequence and Timestamp when unset.
	Append(ctx context.Context, rec *PredictionRecord) error

	// Recent returns records newest first.
	Recent(ctx context.Context, opts QueryOpts) ([]PredictionRecord, error)

	// Get returns the record with id, or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*PredictionRecord, error)

	// CountByDisease returns per-disease totals, largest first.
	CountByDisease(ctx context.Context) ([]DiseaseCount, error)
}

var predictionColumns = []string{
	colID, colSequence, colTimestamp, colInput,
	colDisease, colProbability, colConfidence, colModelVersion,
}

type predictionRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *predictionRepo) Append(ctx context.Context, rec *PredictionRecord) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.Timestamp = rec.Timestamp.UTC().Truncate(time.Millisecond)
	rec.Sequence = seqNum

	input, err := json.Marshal(rec.Input)
	if err != nil {
		return fmt.Errorf("marshal prediction input: %w", err)
	}

	query, args := builder().Insert(predictionsTable).
		Columns(predictionColumns...).
		Values(rec.ID.String(), rec.Sequence, rec.Timestamp.UnixMilli(), string(input),
			rec.Disease, rec.Probability, rec.ConfidenceLevel, rec.ModelVersion).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save prediction: %w", err)
	}
	return nil
}

func (r *predictionRepo) Recent(ctx context.Context, opts QueryOpts) ([]PredictionRecord, error) {
	b := builder()
	sel := b.Select(predictionColumns...).From(entsql.Table(predictionsTable))
	if opts.Before > 0 {
		sel.Where(entsql.LT(colSequence, opts.Before))
	}
	if opts.Disease != "" {
		sel.Where(entsql.EQ(colDisease, opts.Disease))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE(colTimestamp, opts.From.UnixMilli()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE(colTimestamp, opts.To.UnixMilli()))
	}
	sel.OrderBy(entsql.Desc(colSequence))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []PredictionRecord
	for rows.Next() {
		rec, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	return out, nil
}

func (r *predictionRepo) Get(ctx context.Context, id uuid.UUID) (*PredictionRecord, error) {
	query, args := builder().Select(predictionColumns...).
		From(entsql.Table(predictionsTable)).
		Where(entsql.EQ(colID, id.String())).
		Query()

	rec, err := scanPrediction(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *predictionRepo) CountByDisease(ctx context.Context) ([]DiseaseCount, error) {
	query, args := builder().Select(colDisease, entsql.As(entsql.Count("*"), "n")).
		From(entsql.Table(predictionsTable)).
		GroupBy(colDisease).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	defer rows.Close()

	var out []DiseaseCount
	for rows.Next() {
		var dc DiseaseCount
		if err := rows.Scan(&dc.Disease, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out = append(out, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count predictions: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Disease < out[j].Disease
	})
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrediction(s scanner) (*PredictionRecord, error) {
	var (
		rec   PredictionRecord
		id    string
		ts    int64
		input []byte
	)
	err := s.Scan(&id, &rec.Sequence, &ts, &input,
		&rec.Disease, &rec.Probability, &rec.ConfidenceLevel, &rec.ModelVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan prediction: %w", err)
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse prediction id %q: %w", id, err)
	}
	rec.Timestamp = time.UnixMilli(ts).UTC()
	if err := json.Unmarshal(input, &rec.Input); err != nil {
		return nil, fmt.Errorf("unmarshal prediction input: %w", err)
	}
	return &rec, nil
}
