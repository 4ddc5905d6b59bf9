package eventstudy

import (
	"math"
	"math/rand"
	"sort"

	"github.com/yourusername/crosscheck/internal/models"
)

// ComputeHorizonStats aggregates outcomes per horizon into test statistics
// and applies Benjamini-Hochberg FDR correction across the run's full horizon
// set. The corrected q-value, not the raw p-value, is the significance gate.
// Correction runs only after every horizon's sample is complete; streaming or
// partial correction would be incorrect.
func ComputeHorizonStats(outcomes []models.EventOutcome, cfg StudyConfig) []models.HorizonStats {
	grossByHorizon := make(map[int][]float64)
	netByHorizon := make(map[int][]float64)
	for _, o := range outcomes {
		grossByHorizon[o.HorizonDays] = append(grossByHorizon[o.HorizonDays], o.CARGross)
		netByHorizon[o.HorizonDays] = append(netByHorizon[o.HorizonDays], o.CARNetOfCost)
	}

	stats := make([]models.HorizonStats, 0, len(cfg.Horizons))
	var testable []int
	var rawP []float64

	for _, horizon := range cfg.Horizons {
		sample := grossByHorizon[horizon]
		hs := models.HorizonStats{
			HorizonDays: horizon,
			N:           len(sample),
			QValue:      1,
			PValue:      1,
		}

		if len(sample) < 2 {
			// Degenerate sample: no t-test or CI is possible.
			hs.InsufficientSample = true
			if len(sample) == 1 {
				hs.MeanCAR = sample[0]
				hs.MedianCAR = sample[0]
				hs.MedianCARNet = netByHorizon[horizon][0]
				if sample[0] > 0 {
					hs.HitRate = 1
				}
			}
			stats = append(stats, hs)
			continue
		}

		hs.MeanCAR = average(sample)
		hs.MedianCAR = median(sample)
		hs.MedianCARNet = median(netByHorizon[horizon])
		hs.StdCAR = sampleStd(sample)
		hs.HitRate = hitRate(sample)
		if hs.StdCAR > 0 {
			hs.EffectSize = hs.MeanCAR / hs.StdCAR
			t := hs.MeanCAR / (hs.StdCAR / math.Sqrt(float64(len(sample))))
			hs.PValue = studentTwoSidedP(t, len(sample)-1)
		}
		hs.CILow, hs.CIHigh = bootstrapMeanCI(sample, horizon, cfg)

		testable = append(testable, len(stats))
		rawP = append(rawP, hs.PValue)
		stats = append(stats, hs)
	}

	for i, q := range benjaminiHochberg(rawP) {
		idx := testable[i]
		stats[idx].QValue = q
		stats[idx].Significant = q < cfg.FDRAlpha
	}
	return stats
}

func hitRate(sample []float64) float64 {
	hits := 0
	for _, v := range sample {
		if v > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(sample))
}

// bootstrapMeanCI computes a 95% percentile bootstrap interval for the mean
// CAR. The generator is seeded from the configured seed plus the horizon so
// repeated runs on identical input produce identical output.
func bootstrapMeanCI(sample []float64, horizon int, cfg StudyConfig) (float64, float64) {
	iterations := cfg.BootstrapIterations
	if iterations <= 0 {
		iterations = 2000
	}
	rng := rand.New(rand.NewSource(cfg.BootstrapSeed + int64(horizon)))

	means := make([]float64, iterations)
	n := len(sample)
	for i := 0; i < iterations; i++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			sum += sample[rng.Intn(n)]
		}
		means[i] = sum / float64(n)
	}
	sort.Float64s(means)
	return percentileSorted(means, 0.025), percentileSorted(means, 0.975)
}
