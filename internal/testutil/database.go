// Package testutil provides shared fixtures for cropcast tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/cropcast/internal/model"
	"github.com/Veraticus/cropcast/internal/storage"
)

// HistoryDB is a migrated prediction history database in a test temp dir.
type HistoryDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
	Path    string
}

// SetupHistoryDB creates a file-backed history database and seeds it with preds.
// The file outlives the returned handle's Close, so it can be reopened by path,
// for example by the sqlite3 database source.
//
// Example:
//
//	db := testutil.SetupHistoryDB(t, testutil.SamplePredictions(150)...)
func SetupHistoryDB(t *testing.T, preds ...model.Prediction) *HistoryDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range preds {
		if err := store.SavePrediction(ctx, &preds[i]); err != nil {
			t.Fatalf("failed to seed prediction %d: %v", i, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &HistoryDB{Storage: store, Path: path, t: t}
}

// Count returns the number of stored predictions, failing the test on error.
func (db *HistoryDB) Count() int {
	db.t.Helper()
	n, err := db.Storage.CountPredictions(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count predictions: %v", err)
	}
	return n
}

// SamplePredictions returns n deterministic predictions cycling through a
// few crops. Soil measurements are left missing, as in upstream rows.
func SamplePredictions(n int) []model.Prediction {
	crops := []string{"rice", "wheat", "corn"}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	out := make([]model.Prediction, n)
	for i := range out {
		p := model.NewEmptyPrediction()
		p.CropType = crops[i%len(crops)]
		p.Region = "coastal"
		p.SoilType = "alluvial"
		p.Temperature = 20 + float64(i%10)
		p.Rainfall = 800 + float64(i)
		p.Humidity = 60
		p.Area = 2.5
		p.PredictedYield = 3000 + float64(i)
		p.CreatedAt = start.Add(time.Duration(i) * time.Hour)
		out[i] = p
	}
	return out
}
