package features

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/spf13/cast"

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/model"
)

// Codec is the fitted state shared by training and inference.
// It is read-only once Fit returns.
type Codec struct {
	Encoders map[string]*CategoryEncoder
	Medians  map[string]float64
	Schema   FeatureSchema
}

// Fit derives encoders, medians and the schema from ds, and returns the
// encoded feature matrix and target vector.
func Fit(ds model.Dataset) ([][]float64, []float64, *Codec, error) {
	if ds.Len() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: dataset is empty", common.ErrDataError)
	}
	if !ds.HasColumn(model.ColYield) {
		return nil, nil, nil, fmt.Errorf("%w: target column %q is absent", common.ErrDataError, model.ColYield)
	}

	codec := &Codec{
		Schema:   NewFeatureSchema(ds.HasColumn),
		Encoders: make(map[string]*CategoryEncoder),
		Medians:  make(map[string]float64),
	}
	if codec.Schema.Len() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no feature columns present", common.ErrDataError)
	}

	for _, col := range codec.Schema {
		if model.IsCategorical(col) {
			values := make([]string, len(ds.Records))
			for i := range ds.Records {
				values[i], _ = ds.Records[i].Categorical(col)
			}
			codec.Encoders[col] = FitCategoryEncoder(col, values)
			continue
		}

		values := make([]float64, 0, len(ds.Records))
		for i := range ds.Records {
			if v, _ := ds.Records[i].Numeric(col); !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		codec.Medians[col] = median(values)
	}

	X := make([][]float64, len(ds.Records))
	y := make([]float64, len(ds.Records))
	for i := range ds.Records {
		r := &ds.Records[i]
		if math.IsNaN(r.Yield) {
			return nil, nil, nil, fmt.Errorf("%w: record %d has no %s", common.ErrDataError, i, model.ColYield)
		}
		X[i] = codec.encodeRecord(r)
		y[i] = r.Yield
	}

	return X, y, codec, nil
}

// encodeRecord is the fit-time encoding: missing numerics take the fit median.
func (c *Codec) encodeRecord(r *model.YieldRecord) []float64 {
	fields := make(map[string]float64, len(c.Schema))
	for _, col := range c.Schema {
		if enc, ok := c.Encoders[col]; ok {
			label, _ := r.Categorical(col)
			if label == "" {
				continue
			}
			code, _ := enc.Encode(label)
			fields[col] = float64(code)
			continue
		}
		v, _ := r.Numeric(col)
		if math.IsNaN(v) {
			v = c.Medians[col]
		}
		fields[col] = v
	}
	return Align(fields, c.Schema)
}

// Transform encodes one raw inference record. Keys are matched through
// CanonicalName; unknown keys are dropped and absent schema columns are zero.
// Transform never fails and never changes the codec.
func (c *Codec) Transform(raw map[string]any) []float64 {
	// Sorted keys keep alias resolution deterministic.
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fields := make(map[string]float64, len(c.Schema))
	for _, key := range keys {
		value := raw[key]
		col := CanonicalName(key)
		if !c.Schema.Has(col) || value == nil {
			continue
		}

		if enc, ok := c.Encoders[col]; ok {
			label, err := cast.ToStringE(value)
			if err != nil || label == "" {
				continue
			}
			code, known := enc.Encode(label)
			if !known {
				slog.Warn("Unknown category at inference", "column", col, "value", label, "code", code)
			}
			fields[col] = float64(code)
			continue
		}

		v, err := cast.ToFloat64E(value)
		if err != nil || math.IsNaN(v) {
			slog.Debug("Ignoring unparsable numeric field", "column", col, "value", value)
			continue
		}
		fields[col] = v
	}
	return Align(fields, c.Schema)
}

// TransformRecord encodes a typed record with inference semantics.
func (c *Codec) TransformRecord(r model.YieldRecord) []float64 {
	raw := make(map[string]any, len(model.FeatureColumns))
	for _, col := range model.CategoricalColumns {
		if v, _ := r.Categorical(col); v != "" {
			raw[col] = v
		}
	}
	for _, col := range model.NumericColumns {
		if v, _ := r.Numeric(col); !math.IsNaN(v) {
			raw[col] = v
		}
	}
	return c.Transform(raw)
}

// Encoder returns the encoder for a categorical column.
func (c *Codec) Encoder(col string) (*CategoryEncoder, bool) {
	enc, ok := c.Encoders[col]
	return enc, ok
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
