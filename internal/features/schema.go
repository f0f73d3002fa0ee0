// Package features converts raw crop records into fixed-width numeric vectors.
//
// Training fits a Codec (category encoders, imputation medians and the ordered
// FeatureSchema). Inference reuses that Codec unchanged: every vector it
// produces is aligned to the schema, with absent columns set to zero and
// unknown input fields dropped.
package features

import (
	"strings"

	"github.com/Veraticus/cropcast/internal/model"
)

// FeatureSchema is the ordered list of feature columns a model consumes.
type FeatureSchema []string

// NewFeatureSchema returns the canonical-order subset of model.FeatureColumns
// for which present reports true.
func NewFeatureSchema(present func(col string) bool) FeatureSchema {
	schema := make(FeatureSchema, 0, len(model.FeatureColumns))
	for _, col := range model.FeatureColumns {
		if present(col) {
			schema = append(schema, col)
		}
	}
	return schema
}

// Len returns the vector width.
func (s FeatureSchema) Len() int {
	return len(s)
}

// Index returns the position of name, or -1.
func (s FeatureSchema) Index(name string) int {
	for i, col := range s {
		if col == name {
			return i
		}
	}
	return -1
}

// Has reports whether name is part of the schema.
func (s FeatureSchema) Has(name string) bool {
	return s.Index(name) >= 0
}

// Equal reports whether two schemas have the same columns in the same order.
func (s FeatureSchema) Equal(other FeatureSchema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Align shapes fields to schema: output[i] is fields[schema[i]], zero when the
// field is absent. Fields not in the schema are dropped.
func Align(fields map[string]float64, schema FeatureSchema) []float64 {
	out := make([]float64, len(schema))
	for i, col := range schema {
		out[i] = fields[col]
	}
	return out
}

// fieldAliases maps the camelCase names used by the upstream application and
// database onto canonical column names.
var fieldAliases = map[string]string{
	"croptype":       model.ColCropType,
	"crop":           model.ColCropType,
	"soiltype":       model.ColSoilType,
	"soil":           model.ColSoilType,
	"soilph":         model.ColSoilPH,
	"ph":             model.ColSoilPH,
	"organicmatter":  model.ColOrganicMatter,
	"predictedyield": model.ColYield,
}

// CanonicalName normalises a raw field name. Names are matched
// case-insensitively and known aliases are resolved.
func CanonicalName(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := fieldAliases[strings.ReplaceAll(key, "_", "")]; ok {
		return alias
	}
	return key
}
