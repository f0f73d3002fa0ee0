package model

import (
	"math"
	"time"
)

// ModelType is recorded in the metadata sidecar.
const ModelType = "RandomForestRegressor"

// TrainingReport summarises one training run.
type TrainingReport struct {
	TrainedAt   time.Time  `json:"trained_at"`
	RunID       string     `json:"run_id"`
	Source      SourceKind `json:"source"`
	MAE         float64    `json:"mae"`
	MSE         float64    `json:"mse"`
	R2          float64    `json:"r2"`
	CVR2Mean    float64    `json:"cv_r2_mean"`
	CVR2Std     float64    `json:"cv_r2_std"`
	SampleCount int        `json:"sample_count"`
}

// Metrics are the evaluation numbers persisted in the metadata sidecar.
type Metrics struct {
	MAE      float64 `json:"mae"`
	MSE      float64 `json:"mse"`
	R2       float64 `json:"r2"`
	CVR2Mean float64 `json:"cv_r2_mean"`
	CVR2Std  float64 `json:"cv_r2_std"`
}

// Metadata is the JSON sidecar written next to the model and encoder blobs.
type Metadata struct {
	TrainingDate      time.Time          `json:"training_date"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	RunID             string             `json:"run_id"`
	ModelType         string             `json:"model_type"`
	Source            SourceKind         `json:"source"`
	Features          []string           `json:"features"`
	Metrics           Metrics            `json:"metrics"`
	SampleCount       int                `json:"sample_count"`
}

// Prediction is one answered prediction, as recorded in the history store.
// Numeric inputs the caller did not supply are NaN.
type Prediction struct {
	CreatedAt      time.Time
	CropType       string
	Region         string
	SoilType       string
	ModelRunID     string
	ID             int64
	Temperature    float64
	Rainfall       float64
	Humidity       float64
	SoilPH         float64
	Nitrogen       float64
	Phosphorus     float64
	Potassium      float64
	OrganicMatter  float64
	Area           float64
	PredictedYield float64
}

// NewEmptyPrediction returns a prediction with every numeric input missing.
func NewEmptyPrediction() Prediction {
	nan := math.NaN()
	return Prediction{
		Temperature:   nan,
		Rainfall:      nan,
		Humidity:      nan,
		SoilPH:        nan,
		Nitrogen:      nan,
		Phosphorus:    nan,
		Potassium:     nan,
		OrganicMatter: nan,
		Area:          nan,
	}
}
