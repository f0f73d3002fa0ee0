package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/model"
)

func record(crop, region, soil string, temp, rain float64, yield float64) model.YieldRecord {
	r := model.NewEmptyRecord()
	r.CropType, r.Region, r.SoilType = crop, region, soil
	r.Temperature, r.Rainfall = temp, rain
	r.Yield = yield
	return r
}

func smallDataset() model.Dataset {
	return model.Dataset{
		Columns: []string{"crop_type", "region", "soil_type", "temperature", "rainfall", "yield"},
		Records: []model.YieldRecord{
			record("rice", "coastal", "alluvial", 28, 1200, 3000),
			record("wheat", "northern", "black", math.NaN(), 800, 1900),
			record("corn", "coastal", "red", 22, math.NaN(), 2100),
			record("rice", "western", "alluvial", 30, 1000, 2800),
		},
	}
}

func TestFit_SchemaEncodersAndImputation(t *testing.T) {
	X, y, codec, err := Fit(smallDataset())
	require.NoError(t, err)

	assert.Equal(t, FeatureSchema{"crop_type", "region", "soil_type", "temperature", "rainfall"}, codec.Schema)
	assert.Equal(t, []float64{3000, 1900, 2100, 2800}, y)
	require.Len(t, X, 4)

	crop, ok := codec.Encoder("crop_type")
	require.True(t, ok)
	assert.Equal(t, []string{"corn", "rice", "wheat"}, crop.Labels)

	// median of {28, 22, 30} and {1200, 800, 1000}
	assert.InDelta(t, 28.0, codec.Medians["temperature"], 1e-9)
	assert.InDelta(t, 1000.0, codec.Medians["rainfall"], 1e-9)

	assert.Equal(t, []float64{2, 1, 1, 28, 800}, X[1])
	assert.Equal(t, []float64{0, 0, 2, 22, 1000}, X[2])
}

func TestFit_MissingTargetColumn(t *testing.T) {
	ds := smallDataset()
	ds.Columns = ds.Columns[:5]

	_, _, _, err := Fit(ds)
	assert.ErrorIs(t, err, common.ErrDataError)
}

func TestFit_NaNTarget(t *testing.T) {
	ds := smallDataset()
	ds.Records[2].Yield = math.NaN()

	_, _, _, err := Fit(ds)
	assert.ErrorIs(t, err, common.ErrDataError)
}

func TestFit_Empty(t *testing.T) {
	_, _, _, err := Fit(model.Dataset{Columns: model.AllColumns})
	assert.ErrorIs(t, err, common.ErrDataError)
}

func TestTransform_OrderIndependentOfInput(t *testing.T) {
	_, _, codec, err := Fit(smallDataset())
	require.NoError(t, err)

	a := codec.Transform(map[string]any{
		"crop_type": "wheat", "region": "coastal", "soil_type": "red",
		"temperature": 25.5, "rainfall": 1100,
	})
	b := codec.Transform(map[string]any{
		"rainfall": "1100", "temperature": float32(25.5), "soil_type": "red",
		"region": "coastal", "crop_type": "wheat",
	})

	assert.Equal(t, []float64{2, 0, 2, 25.5, 1100}, a)
	assert.Equal(t, a, b)
	assert.Len(t, a, codec.Schema.Len())
}

func TestTransform_MissingCategoricalsAreZero(t *testing.T) {
	_, _, codec, err := Fit(smallDataset())
	require.NoError(t, err)

	v := codec.Transform(map[string]any{"temperature": 31, "rainfall": 950})
	assert.Equal(t, []float64{0, 0, 0, 31, 950}, v)
}

func TestTransform_ExtraAndMissingFields(t *testing.T) {
	_, _, codec, err := Fit(smallDataset())
	require.NoError(t, err)

	v := codec.Transform(map[string]any{
		"cropType":       "rice",
		"organic_matter": 1.8,
		"area":           4,
		"humidity":       nil,
		"temperature":    "not a number",
	})
	assert.Equal(t, []float64{1, 0, 0, 0, 0}, v)
}

func TestTransform_UnknownCategory(t *testing.T) {
	_, _, codec, err := Fit(smallDataset())
	require.NoError(t, err)

	v := codec.Transform(map[string]any{"crop_type": "quinoa", "region": "coastal"})
	assert.Equal(t, float64(UnknownCode), v[0])
	assert.Equal(t, 0.0, v[1])
}

func TestTransform_DoesNotMutateCodec(t *testing.T) {
	_, _, codec, err := Fit(smallDataset())
	require.NoError(t, err)

	before := append([]string(nil), codec.Encoders["crop_type"].Labels...)
	schema := append(FeatureSchema(nil), codec.Schema...)

	codec.Transform(map[string]any{"crop_type": "quinoa", "sunshine": 9})

	assert.Equal(t, before, codec.Encoders["crop_type"].Labels)
	assert.Equal(t, schema, codec.Schema)
}

func TestTransformRecord_MatchesTransform(t *testing.T) {
	_, _, codec, err := Fit(smallDataset())
	require.NoError(t, err)

	r := record("corn", "western", "black", 26, 1300, math.NaN())
	assert.Equal(t,
		codec.Transform(map[string]any{"crop_type": "corn", "region": "western", "soil_type": "black", "temperature": 26, "rainfall": 1300}),
		codec.TransformRecord(r))
}
