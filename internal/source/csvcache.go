package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/config"
	"github.com/Veraticus/cropcast/internal/model"
)

// CSVCache is the flat-file copy of previously used training data.
type CSVCache struct {
	path string
}

// NewCSVCache returns a cache backed by the file at path.
func NewCSVCache(path string) *CSVCache {
	return &CSVCache{path: path}
}

// Name implements DataSource.
func (c *CSVCache) Name() string {
	return string(model.SourceCache)
}

// Path returns the cache file location.
func (c *CSVCache) Path() string {
	return c.path
}

// TryAcquire implements DataSource. Any readable, well-formed file with a
// target value on every row is adequate.
func (c *CSVCache) TryAcquire(_ context.Context) (model.Dataset, error) {
	return c.Load()
}

// Load reads the cache. Columns are matched by header name; unknown columns
// are ignored and empty cells are missing values.
func (c *CSVCache) Load() (model.Dataset, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.Dataset{}, fmt.Errorf("%w: cache file %s does not exist", common.ErrSourceUnavailable, c.path)
		}
		return model.Dataset{}, fmt.Errorf("%w: %w", common.ErrSourceUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	ds, err := readCSV(f)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("%w: cache file %s: %w", common.ErrSourceUnavailable, c.path, err)
	}
	ds.Provenance = model.Provenance{Kind: model.SourceCache, Detail: c.path}
	return ds, nil
}

func readCSV(r io.Reader) (model.Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return model.Dataset{}, fmt.Errorf("failed to read header: %w", err)
	}

	known := make(map[string]bool, len(model.AllColumns))
	for _, col := range model.AllColumns {
		known[col] = true
	}

	colIndex := make(map[int]string, len(header))
	var columns []string
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if known[name] {
			colIndex[i] = name
			columns = append(columns, name)
		}
	}
	if len(columns) == 0 {
		return model.Dataset{}, errors.New("header has no recognised columns")
	}
	if !slices.Contains(columns, model.ColYield) {
		return model.Dataset{}, fmt.Errorf("header has no %s column", model.ColYield)
	}

	var records []model.YieldRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return model.Dataset{}, fmt.Errorf("line %d: %w", line, err)
		}

		rec := model.NewEmptyRecord()
		for i, col := range colIndex {
			cell := strings.TrimSpace(row[i])
			if cell == "" {
				continue
			}
			if model.IsCategorical(col) {
				rec.SetCategorical(col, cell)
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return model.Dataset{}, fmt.Errorf("line %d column %s: %w", line, col, err)
			}
			rec.SetNumeric(col, v)
		}
		if math.IsNaN(rec.Yield) {
			return model.Dataset{}, fmt.Errorf("line %d: %s is empty", line, model.ColYield)
		}
		records = append(records, rec)
	}

	return model.Dataset{Columns: columns, Records: records}, nil
}

// Save writes ds to the cache with the full stable header. The file is
// replaced atomically.
func (c *CSVCache) Save(ds model.Dataset) error {
	if err := config.EnsureParentDir(c.path); err != nil {
		return err
	}

	tmp := filepath.Join(filepath.Dir(c.path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(c.path), uuid.NewString()))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}

	if err := writeCSV(f, ds); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, ds model.Dataset) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(model.AllColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, len(model.AllColumns))
	for i := range ds.Records {
		r := &ds.Records[i]
		for j, col := range model.AllColumns {
			if v, ok := r.Categorical(col); ok {
				row[j] = v
				continue
			}
			v, _ := r.Numeric(col)
			if math.IsNaN(v) {
				row[j] = ""
			} else {
				row[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush cache file: %w", err)
	}
	return nil
}
