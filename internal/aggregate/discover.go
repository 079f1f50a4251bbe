package aggregate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// FoldFile is one per-fold metric file attributed to a fold and target.
type FoldFile struct {
	Fold   int
	Target string
	Path   string
}

// Layout finds the per-fold metric files of a dataset and model under dir.
type Layout interface {
	Name() string
	List(fs afero.Fs, dir, dataset, model string) ([]FoldFile, error)
}

// DirLayout reads <dataset>_<model>_fold<N>/<target>.json.
type DirLayout struct{}

// FlatLayout reads <dataset>_<model>_fold<N>_<target>.json.
type FlatLayout struct{}

func (DirLayout) Name() string  { return "per-fold directories" }
func (FlatLayout) Name() string { return "flat files" }

func foldPrefix(dataset, model string) string {
	return dataset + "_" + model + "_fold"
}

func (DirLayout) List(fs afero.Fs, dir, dataset, model string) ([]FoldFile, error) {
	entries, err := readDir(fs, dir)
	if err != nil {
		return nil, err
	}
	prefix := foldPrefix(dataset, model)
	var files []FoldFile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rest, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		fold, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		foldDir := filepath.Join(dir, e.Name())
		inner, err := readDir(fs, foldDir)
		if err != nil {
			return nil, err
		}
		for _, f := range inner {
			if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
				continue
			}
			files = append(files, FoldFile{
				Fold:   fold,
				Target: strings.TrimSuffix(f.Name(), ".json"),
				Path:   filepath.Join(foldDir, f.Name()),
			})
		}
	}
	return files, nil
}

func (FlatLayout) List(fs afero.Fs, dir, dataset, model string) ([]FoldFile, error) {
	entries, err := readDir(fs, dir)
	if err != nil {
		return nil, err
	}
	prefix := foldPrefix(dataset, model)
	var files []FoldFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		rest, ok := strings.CutPrefix(strings.TrimSuffix(e.Name(), ".json"), prefix)
		if !ok {
			continue
		}
		num, target, ok := strings.Cut(rest, "_")
		if !ok || target == "" {
			continue
		}
		fold, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		files = append(files, FoldFile{Fold: fold, Target: target, Path: filepath.Join(dir, e.Name())})
	}
	return files, nil
}

// Layouts are probed in order; the first one that finds files wins.
var Layouts = []Layout{DirLayout{}, FlatLayout{}}

// ListFoldFiles returns the per-fold metric files of dataset and model sorted
// by fold, then target. A missing dir yields no files.
func ListFoldFiles(fs afero.Fs, dir, dataset, model string) ([]FoldFile, Layout, error) {
	for _, layout := range Layouts {
		files, err := layout.List(fs, dir, dataset, model)
		if err != nil {
			return nil, nil, fmt.Errorf("listing %s: %w", layout.Name(), err)
		}
		if len(files) > 0 {
			sortFoldFiles(files)
			return files, layout, nil
		}
	}
	return nil, nil, nil
}

func sortFoldFiles(files []FoldFile) {
	sort.Slice(files, func(i, j int) bool {
		if files[i].Fold != files[j].Fold {
			return files[i].Fold < files[j].Fold
		}
		return files[i].Target < files[j].Target
	})
}

func readDir(fs afero.Fs, dir string) ([]os.FileInfo, error) {
	entries, err := afero.ReadDir(fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}
