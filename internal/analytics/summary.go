package analytics

import (
	"github.com/montanaflynn/stats"
)

// Summary condenses a history series.
type Summary struct {
	Samples int     `json:"samples"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Median  float64 `json:"median"`
	Mean    float64 `json:"mean"`
}

// SummarizeGas summarizes the base fees of points in gwei.
func SummarizeGas(points []GasPoint) Summary {
	data := make(stats.Float64Data, len(points))
	for i, p := range points {
		data[i] = p.GasPrice
	}
	return summarize(data)
}

// SummarizeVolume summarizes the per-block transaction counts of points.
func SummarizeVolume(points []VolumePoint) Summary {
	data := make(stats.Float64Data, len(points))
	for i, p := range points {
		data[i] = float64(p.Count)
	}
	return summarize(data)
}

// summarize returns the zero Summary for an empty series.
func summarize(data stats.Float64Data) Summary {
	if len(data) == 0 {
		return Summary{}
	}
	// Only empty input makes these fail.
	minV, _ := stats.Min(data)
	maxV, _ := stats.Max(data)
	median, _ := stats.Median(data)
	mean, _ := stats.Mean(data)
	return Summary{Samples: len(data), Min: minV, Max: maxV, Median: median, Mean: mean}
}
