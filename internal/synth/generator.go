// Package synth generates plausible labeled crop-yield data when no real data exists.
package synth

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Veraticus/cropcast/internal/model"
)

// DefaultSeed matches the seed used for the bundled training runs.
const DefaultSeed uint64 = 42

// DefaultSamples is the size of the terminal fallback dataset.
const DefaultSamples = 2000

// Base yields in kg per acre.
var baseYields = []weighted{
	{"rice", 2500}, {"wheat", 1800}, {"corn", 2200},
	{"sugarcane", 45000}, {"cotton", 800}, {"pulses", 900},
}

var regionFactors = []weighted{
	{"coastal", 1.2}, {"western", 0.9}, {"northern", 1.1}, {"southern", 1.0},
}

var soilFactors = []weighted{
	{"alluvial", 1.3}, {"black", 1.1}, {"red", 1.0}, {"laterite", 0.8},
}

type weighted struct {
	label string
	value float64
}

// normalParams holds the (mean, std) of each environmental draw.
var normalParams = map[string][2]float64{
	model.ColTemperature:   {28, 5},
	model.ColRainfall:      {1200, 300},
	model.ColHumidity:      {75, 10},
	model.ColSoilPH:        {6.5, 0.8},
	model.ColNitrogen:      {0.12, 0.04},
	model.ColPhosphorus:    {0.06, 0.02},
	model.ColPotassium:     {0.10, 0.03},
	model.ColOrganicMatter: {1.8, 0.4},
}

// Crops returns the crop labels the generator draws from.
func Crops() []string { return labels(baseYields) }

// Regions returns the region labels the generator draws from.
func Regions() []string { return labels(regionFactors) }

// SoilTypes returns the soil-type labels the generator draws from.
func SoilTypes() []string { return labels(soilFactors) }

func labels(ws []weighted) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.label
	}
	return out
}

// Generator produces synthetic YieldRecords. It is a pure function of its seed.
type Generator struct {
	seed uint64
}

// NewGenerator returns a generator for the given seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{seed: seed}
}

// Seed returns the generator's seed.
func (g *Generator) Seed() uint64 {
	return g.seed
}

// Generate returns n records. Calling it twice yields identical output.
func (g *Generator) Generate(n int) []model.YieldRecord {
	if n <= 0 {
		return nil
	}

	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	draw := func(col string) float64 {
		p := normalParams[col]
		return distuv.Normal{Mu: p[0], Sigma: p[1], Src: rng}.Rand()
	}
	noise := distuv.Normal{Mu: 1, Sigma: 0.1, Src: rng}

	records := make([]model.YieldRecord, 0, n)
	for range n {
		crop := baseYields[rng.IntN(len(baseYields))]
		region := regionFactors[rng.IntN(len(regionFactors))]
		soil := soilFactors[rng.IntN(len(soilFactors))]

		temperature := draw(model.ColTemperature)
		rainfall := draw(model.ColRainfall)
		humidity := draw(model.ColHumidity)
		soilPH := draw(model.ColSoilPH)
		nitrogen := draw(model.ColNitrogen)
		phosphorus := draw(model.ColPhosphorus)
		potassium := draw(model.ColPotassium)
		organic := draw(model.ColOrganicMatter)

		// Factors are computed from the raw draws; only stored values are clamped.
		tempFactor := 1 + (temperature-25)/100
		rainFactor := 1 + (rainfall-1000)/5000
		humidityFactor := 1 + (humidity-70)/500
		phFactor := 0.8 + (soilPH-5.5)/10
		nutrientFactor := 0.9 + (nitrogen+phosphorus+potassium)*3

		yield := crop.value * region.value * soil.value *
			tempFactor * rainFactor * humidityFactor *
			phFactor * nutrientFactor * noise.Rand()

		r := model.YieldRecord{
			CropType:      crop.label,
			Region:        region.label,
			SoilType:      soil.label,
			Temperature:   temperature,
			Rainfall:      rainfall,
			Humidity:      humidity,
			SoilPH:        soilPH,
			Nitrogen:      nitrogen,
			Phosphorus:    phosphorus,
			Potassium:     potassium,
			OrganicMatter: organic,
			Yield:         yield,
		}
		clamp(&r)
		records = append(records, r)
	}
	return records
}

// Dataset wraps Generate with synthetic provenance and the full column set.
func (g *Generator) Dataset(n int) model.Dataset {
	return model.Dataset{
		Columns: append([]string{}, model.AllColumns...),
		Records: g.Generate(n),
		Provenance: model.Provenance{
			Kind: model.SourceSynthetic,
		},
	}
}

func clamp(r *model.YieldRecord) {
	for _, col := range model.AllColumns {
		rng, ok := model.PlausibleRanges[col]
		if !ok {
			continue
		}
		v, _ := r.Numeric(col)
		r.SetNumeric(col, rng.Clamp(v))
	}
}
