package sampler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// evaluatorHeaderRow is the header row index in evaluator datasets, whose
// first two rows hold the baseline and custom type labels.
const evaluatorHeaderRow = 2

// SampleCSV returns up to maxValues trimmed, non-empty cells in row order.
// With three or more rows the file is read in evaluator layout (third row
// is the header); otherwise the first row is the header. Only columns whose
// header matches one of targetHeaders (trimmed, case-insensitive) are
// sampled; when none match or none are given, every column is.
func SampleCSV(r io.Reader, targetHeaders []string, maxValues int) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return []string{}, nil
	}

	headerRow := 0
	if len(records) > evaluatorHeaderRow {
		headerRow = evaluatorHeaderRow
	}
	headers := records[headerRow]
	targets := targetColumns(headers, targetHeaders)
	maxValues = effectiveLimit(maxValues)

	values := make([]string, 0, min(maxValues, 64))
	for _, row := range records[headerRow+1:] {
		for c := 0; c < len(headers) && c < len(row); c++ {
			if targets != nil && !targets[c] {
				continue
			}
			if v := strings.TrimSpace(row[c]); v != "" {
				values = append(values, v)
				if len(values) >= maxValues {
					return values, nil
				}
			}
		}
	}
	return values, nil
}

// targetColumns returns the matched column indexes, or nil for all columns.
func targetColumns(headers, wanted []string) map[int]bool {
	if len(wanted) == 0 {
		return nil
	}
	want := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		want[strings.ToLower(strings.TrimSpace(w))] = true
	}
	idx := make(map[int]bool)
	for i, h := range headers {
		if want[strings.ToLower(strings.TrimSpace(h))] {
			idx[i] = true
		}
	}
	if len(idx) == 0 {
		return nil
	}
	return idx
}

// ResolveCSV finds a dataset under root. It tries name, then the
// "<name>_data.csv" variant, then the first .csv file in name's directory.
func ResolveCSV(root, name string) (string, error) {
	if name == "" {
		return "", errors.New("dataset name is required")
	}
	candidate := filepath.Join(root, name)
	if fileExists(candidate) {
		return candidate, nil
	}

	if strings.EqualFold(filepath.Ext(name), ".csv") {
		alt := filepath.Join(root, strings.TrimSuffix(name, filepath.Ext(name))+"_data.csv")
		if fileExists(alt) {
			return alt, nil
		}
	}

	dir := filepath.Dir(candidate)
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
				return filepath.Join(dir, e.Name()), nil
			}
		}
	}
	return "", fmt.Errorf("dataset %q not found under %s", name, root)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
