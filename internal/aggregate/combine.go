package aggregate

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/proteingym/pg2-benchmark/internal/result"
)

// Combined holds concatenated predictions that have not been written yet.
type Combined struct {
	Path string
	Data []byte
}

// CombinePredictions concatenates the per-fold prediction CSVs under
// predDir/<dataset>_<model>_fold<N>/ in fold order. Rows are copied as they
// are; with foldColumns each row is prefixed by its fold and target. All
// files must share a header. Nothing is written: the result targets
// predDir/<dataset>_<model>_combined.csv and is nil when there is nothing to
// combine.
func CombinePredictions(fs afero.Fs, predDir, dataset, model string, foldColumns bool) (*Combined, error) {
	var files []FoldFile
	entries, err := readDir(fs, predDir)
	if err != nil {
		return nil, err
	}
	prefix := foldPrefix(dataset, model)
	for _, e := range entries {
		rest, ok := strings.CutPrefix(e.Name(), prefix)
		if !e.IsDir() || !ok {
			continue
		}
		fold, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		dir := filepath.Join(predDir, e.Name())
		inner, err := readDir(fs, dir)
		if err != nil {
			return nil, err
		}
		for _, f := range inner {
			if f.IsDir() || filepath.Ext(f.Name()) != ".csv" {
				continue
			}
			files = append(files, FoldFile{
				Fold:   fold,
				Target: strings.TrimSuffix(f.Name(), ".csv"),
				Path:   filepath.Join(dir, f.Name()),
			})
		}
	}
	if len(files) == 0 {
		return nil, nil
	}
	sortFoldFiles(files)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	var header []string
	for _, f := range files {
		h, err := appendPredictions(fs, w, f, header, foldColumns)
		if err != nil {
			return nil, err
		}
		header = h
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding combined predictions: %w", err)
	}
	return &Combined{
		Path: filepath.Join(predDir, result.CombinedPredictionName(dataset, model)),
		Data: buf.Bytes(),
	}, nil
}

func appendPredictions(fs afero.Fs, w *csv.Writer, f FoldFile, header []string, foldColumns bool) ([]string, error) {
	in, err := fs.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.Path, err)
	}
	defer in.Close()

	r := csv.NewReader(in)
	h, err := r.Read()
	if errors.Is(err, io.EOF) {
		return header, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}
	var prefix []string
	if foldColumns {
		prefix = []string{strconv.Itoa(f.Fold), f.Target}
	}
	if header == nil {
		header = h
		row := h
		if foldColumns {
			row = append([]string{"fold", "target"}, h...)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	} else if !slices.Equal(header, h) {
		return nil, fmt.Errorf("combining %s: header %v does not match %v", f.Path, h, header)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return header, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Path, err)
		}
		if err := w.Write(append(slices.Clone(prefix), rec...)); err != nil {
			return nil, err
		}
	}
}
