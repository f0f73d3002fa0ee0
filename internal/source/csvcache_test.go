package source

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cropcast/internal/common"
	"github.com/Veraticus/cropcast/internal/model"
	"github.com/Veraticus/cropcast/internal/synth"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "training_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCSVCache_MissingFile(t *testing.T) {
	cache := NewCSVCache(filepath.Join(t.TempDir(), "absent.csv"))
	_, err := cache.TryAcquire(context.Background())
	assert.ErrorIs(t, err, common.ErrSourceUnavailable)
}

func TestCSVCache_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "training_data.csv")
	cache := NewCSVCache(path)

	original := synth.NewGenerator(42).Dataset(25)
	original.Records[3].OrganicMatter = math.NaN()
	original.Records[4].Region = ""
	require.NoError(t, cache.Save(original))

	loaded, err := cache.Load()
	require.NoError(t, err)
	assert.Equal(t, model.SourceCache, loaded.Provenance.Kind)
	assert.Equal(t, path, loaded.Provenance.Detail)
	assert.Equal(t, model.AllColumns, loaded.Columns)
	require.Equal(t, original.Len(), loaded.Len())

	for i := range original.Records {
		want, got := original.Records[i], loaded.Records[i]
		assert.Equal(t, want.CropType, got.CropType)
		assert.Equal(t, want.Region, got.Region)
		assert.Equal(t, want.Rainfall, got.Rainfall)
		assert.Equal(t, want.Yield, got.Yield)
	}
	assert.True(t, math.IsNaN(loaded.Records[3].OrganicMatter))
}

func TestCSVCache_LoadsSubsetOfColumns(t *testing.T) {
	path := writeFile(t, "Crop_Type,region,temperature,rainfall,notes,yield\n"+
		"rice,coastal,28,1500,wet year,4200\n"+
		"wheat,,22,,,3100\n")

	ds, err := NewCSVCache(path).Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"crop_type", "region", "temperature", "rainfall", "yield"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "rice", ds.Records[0].CropType)
	assert.InDelta(t, 1500.0, ds.Records[0].Rainfall, 1e-9)
	assert.Equal(t, "", ds.Records[1].Region)
	assert.True(t, math.IsNaN(ds.Records[1].Rainfall))
	assert.True(t, math.IsNaN(ds.Records[1].Humidity))
	assert.False(t, ds.HasColumn(model.ColSoilType))
}

func TestCSVCache_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"no known columns", "a,b\n1,2\n"},
		{"non numeric value", "crop_type,rainfall,yield\nrice,lots,4000\n"},
		{"ragged row", "crop_type,rainfall,yield\nrice,1000\n"},
		{"no target column", "crop_type,region,temperature\nrice,coastal,28\n"},
		{"empty target cell", "crop_type,rainfall,yield\nrice,1000,4000\nwheat,900,\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCSVCache(writeFile(t, tt.content)).Load()
			assert.ErrorIs(t, err, common.ErrSourceUnavailable)
		})
	}
}
