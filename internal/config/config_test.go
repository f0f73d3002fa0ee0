package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cropcast/internal/common"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "cropyield", cfg.Database.Name)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout)
	assert.Equal(t, "predictedYield", cfg.Database.TargetColumn)
	assert.Equal(t, 100, cfg.Database.MinRows)

	assert.Equal(t, uint64(42), cfg.Training.Seed)
	assert.Equal(t, 2000, cfg.Training.SyntheticSamples)
	assert.Equal(t, 100, cfg.Training.Trees)
	assert.Equal(t, 10, cfg.Training.MaxDepth)
	assert.Equal(t, 5, cfg.Training.Folds)
	assert.InDelta(t, 0.2, cfg.Training.TestSize, 1e-12)

	assert.Equal(t, "training_data.csv", filepath.Base(cfg.Cache.Path))
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_PASSWORD", "s3cret")

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "s3cret", cfg.Database.Password)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
		want error
	}{
		{name: "driver", key: "database.driver", val: "oracle", want: common.ErrInvalidConfig},
		{name: "timeout", key: "database.timeout", val: 0, want: common.ErrInvalidConfig},
		{name: "target", key: "database.target_column", val: "", want: common.ErrMissingConfig},
		{name: "test size", key: "training.test_size", val: 1.0, want: common.ErrInvalidConfig},
		{name: "folds", key: "training.folds", val: 1, want: common.ErrInvalidConfig},
		{name: "synthetic below min rows", key: "training.synthetic_samples", val: 50, want: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.val)
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("CROPCAST_TEST_DIR", "/srv/data")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, filepath.Join(home, "models"), ExpandPath("~/models"))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, "/srv/data/cache.csv", ExpandPath("$CROPCAST_TEST_DIR/cache.csv"))
}

func TestEnsureParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.csv")
	require.NoError(t, EnsureParentDir(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
