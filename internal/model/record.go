// Package model contains the data types shared across cropcast packages.
package model

import "math"

// Raw column names, as they appear in the flat-file cache and the upstream database.
const (
	ColCropType      = "crop_type"
	ColRegion        = "region"
	ColSoilType      = "soil_type"
	ColTemperature   = "temperature"
	ColRainfall      = "rainfall"
	ColHumidity      = "humidity"
	ColSoilPH        = "soil_ph"
	ColNitrogen      = "nitrogen"
	ColPhosphorus    = "phosphorus"
	ColPotassium     = "potassium"
	ColOrganicMatter = "organic_matter"
	ColYield         = "yield"
)

// CategoricalColumns are encoded with a CategoryEncoder before reaching the model.
var CategoricalColumns = []string{ColCropType, ColRegion, ColSoilType}

// NumericColumns are passed through (median-imputed) to the model.
var NumericColumns = []string{
	ColTemperature, ColRainfall, ColHumidity,
	ColSoilPH, ColNitrogen, ColPhosphorus, ColPotassium, ColOrganicMatter,
}

// FeatureColumns is the canonical feature order. A fitted schema is the subset
// of these columns present in the training data, in this order.
var FeatureColumns = append(append([]string{}, CategoricalColumns...), NumericColumns...)

// AllColumns is FeatureColumns followed by the target.
var AllColumns = append(append([]string{}, FeatureColumns...), ColYield)

// YieldRecord is one observation. Missing numeric values are NaN and missing
// categorical values are empty strings.
type YieldRecord struct {
	CropType      string
	Region        string
	SoilType      string
	Temperature   float64
	Rainfall      float64
	Humidity      float64
	SoilPH        float64
	Nitrogen      float64
	Phosphorus    float64
	Potassium     float64
	OrganicMatter float64
	Yield         float64
}

// NewEmptyRecord returns a record with every numeric field missing.
func NewEmptyRecord() YieldRecord {
	nan := math.NaN()
	return YieldRecord{
		Temperature:   nan,
		Rainfall:      nan,
		Humidity:      nan,
		SoilPH:        nan,
		Nitrogen:      nan,
		Phosphorus:    nan,
		Potassium:     nan,
		OrganicMatter: nan,
		Yield:         nan,
	}
}

// Categorical returns the value of a categorical column.
func (r *YieldRecord) Categorical(col string) (string, bool) {
	switch col {
	case ColCropType:
		return r.CropType, true
	case ColRegion:
		return r.Region, true
	case ColSoilType:
		return r.SoilType, true
	}
	return "", false
}

// SetCategorical sets a categorical column. Unknown columns are ignored.
func (r *YieldRecord) SetCategorical(col, value string) {
	switch col {
	case ColCropType:
		r.CropType = value
	case ColRegion:
		r.Region = value
	case ColSoilType:
		r.SoilType = value
	}
}

// Numeric returns the value of a numeric column, including the target.
func (r *YieldRecord) Numeric(col string) (float64, bool) {
	switch col {
	case ColTemperature:
		return r.Temperature, true
	case ColRainfall:
		return r.Rainfall, true
	case ColHumidity:
		return r.Humidity, true
	case ColSoilPH:
		return r.SoilPH, true
	case ColNitrogen:
		return r.Nitrogen, true
	case ColPhosphorus:
		return r.Phosphorus, true
	case ColPotassium:
		return r.Potassium, true
	case ColOrganicMatter:
		return r.OrganicMatter, true
	case ColYield:
		return r.Yield, true
	}
	return 0, false
}

// SetNumeric sets a numeric column, including the target. Unknown columns are ignored.
func (r *YieldRecord) SetNumeric(col string, v float64) {
	switch col {
	case ColTemperature:
		r.Temperature = v
	case ColRainfall:
		r.Rainfall = v
	case ColHumidity:
		r.Humidity = v
	case ColSoilPH:
		r.SoilPH = v
	case ColNitrogen:
		r.Nitrogen = v
	case ColPhosphorus:
		r.Phosphorus = v
	case ColPotassium:
		r.Potassium = v
	case ColOrganicMatter:
		r.OrganicMatter = v
	case ColYield:
		r.Yield = v
	}
}

// IsCategorical reports whether col is one of the categorical columns.
func IsCategorical(col string) bool {
	for _, c := range CategoricalColumns {
		if c == col {
			return true
		}
	}
	return false
}

// Range is an inclusive interval.
type Range struct {
	Min float64
	Max float64
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// PlausibleRanges are the physical bounds applied when generating data.
// They are not enforced on inference inputs.
var PlausibleRanges = map[string]Range{
	ColTemperature:   {10, 40},
	ColRainfall:      {500, 2000},
	ColHumidity:      {40, 95},
	ColSoilPH:        {4.5, 8.5},
	ColNitrogen:      {0.05, 0.25},
	ColPhosphorus:    {0.02, 0.15},
	ColPotassium:     {0.04, 0.20},
	ColOrganicMatter: {0.8, 3.0},
	ColYield:         {500, 10000},
}
