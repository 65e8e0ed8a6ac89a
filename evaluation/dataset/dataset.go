/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package dataset loads the evaluation dataset: a CSV file whose compliance
// and LLM_output columns hold JSON objects.
package dataset

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/chainguard-dev/clog"
)

// Column names in the dataset header.
const (
	ColumnID         = "id"
	ColumnCompliance = "compliance"
	ColumnOutput     = "LLM_output"
)

// ErrNotFound is returned by Load when the dataset file does not exist.
var ErrNotFound = errors.New("dataset file not found")

// Record is one prepared dataset row.
type Record struct {
	// ID is the row's id column, or its 1-based row number when the
	// dataset has no id column.
	ID string

	// Compliance is the ground-truth compliance object.
	Compliance map[string]any

	// Output is the compliance object predicted by the model under evaluation.
	Output map[string]any
}

// Load opens the CSV file at path and prepares its rows; see Parse.
func Load(ctx context.Context, path string) ([]Record, error) {
	log := clog.FromContext(ctx).With("path", path)
	log.Info("Loading dataset")

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	records, err := Parse(clog.WithLogger(ctx, log), f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return records, nil
}

// Parse reads a CSV dataset from r. Both JSON columns of every row are
// decoded as objects; rows where either fails to decode are dropped and
// counted in a single warning. An empty result is not an error.
func Parse(ctx context.Context, r io.Reader) ([]Record, error) {
	log := clog.FromContext(ctx)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("dataset is empty: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	// Map header to indices
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[col] = i
	}
	for _, required := range []string{ColumnCompliance, ColumnOutput} {
		if _, ok := colIdx[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	idCol, hasID := colIdx[ColumnID]

	var (
		records []Record
		rows    int
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", rows+1, err)
		}
		rows++

		compliance, cerr := decodeObject(field(row, colIdx[ColumnCompliance]))
		output, oerr := decodeObject(field(row, colIdx[ColumnOutput]))
		if cerr != nil || oerr != nil {
			log.With("row", rows).
				With("error", errors.Join(cerr, oerr)).
				Debug("Dropping row with invalid JSON")
			continue
		}

		id := strconv.Itoa(rows)
		if hasID && field(row, idCol) != "" {
			id = field(row, idCol)
		}
		records = append(records, Record{
			ID:         id,
			Compliance: compliance,
			Output:     output,
		})
	}

	if dropped := rows - len(records); dropped > 0 {
		log.Warnf("Dropped %d rows due to JSON parsing errors", dropped)
	}
	log.Infof("Successfully loaded and prepared %d rows", len(records))
	return records, nil
}

// field returns row[i], or "" for short rows.
func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// decodeObject decodes s as a JSON object. null and non-object documents are errors.
func decodeObject(s string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("JSON value is null")
	}
	return obj, nil
}
