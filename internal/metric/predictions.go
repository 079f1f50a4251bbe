package metric

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Columns names the actual and predicted columns of a prediction file. Empty
// names fall back to the first and second column.
type Columns struct {
	Actual    string
	Predicted string
}

// Predictions holds the complete (actual, predicted) pairs of one file.
type Predictions struct {
	Actual    []float64
	Predicted []float64
	Dropped   int
}

var nullTokens = map[string]bool{
	"":     true,
	"null": true,
	"none": true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
}

func isNull(field string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(field))]
}

// ReadPredictions loads a CSV prediction file with a header row. Rows where
// either designated column is null are dropped before anything is computed.
func ReadPredictions(fs afero.Fs, path string, cols Columns) (*Predictions, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, &InputFormatError{Path: path, Reason: "cannot open", Err: err}
	}
	defer f.Close()
	return parsePredictions(f, path, cols)
}

func parsePredictions(r io.Reader, path string, cols Columns) (*Predictions, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &InputFormatError{Path: path, Reason: "missing header row"}
	}
	if err != nil {
		return nil, &InputFormatError{Path: path, Reason: "reading header", Err: err}
	}

	ai, pi, err := columnIndexes(header, cols)
	if err != nil {
		return nil, &InputFormatError{Path: path, Reason: err.Error()}
	}

	p := &Predictions{}
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &InputFormatError{Path: path, Reason: fmt.Sprintf("reading row %d", line), Err: err}
		}
		if isNull(record[ai]) || isNull(record[pi]) {
			p.Dropped++
			continue
		}
		actual, err := strconv.ParseFloat(strings.TrimSpace(record[ai]), 64)
		if err != nil {
			return nil, &InputFormatError{Path: path, Reason: fmt.Sprintf("row %d: non-numeric %s", line, header[ai]), Err: err}
		}
		predicted, err := strconv.ParseFloat(strings.TrimSpace(record[pi]), 64)
		if err != nil {
			return nil, &InputFormatError{Path: path, Reason: fmt.Sprintf("row %d: non-numeric %s", line, header[pi]), Err: err}
		}
		p.Actual = append(p.Actual, actual)
		p.Predicted = append(p.Predicted, predicted)
	}
	return p, nil
}

func columnIndexes(header []string, cols Columns) (int, int, error) {
	find := func(name string, fallback int) (int, error) {
		if name == "" {
			if fallback >= len(header) {
				return 0, fmt.Errorf("expected at least 2 columns, got %d", len(header))
			}
			return fallback, nil
		}
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("column %q not found", name)
	}
	ai, err := find(cols.Actual, 0)
	if err != nil {
		return 0, 0, err
	}
	pi, err := find(cols.Predicted, 1)
	if err != nil {
		return 0, 0, err
	}
	return ai, pi, nil
}
