// Package report turns training runs and table files into human-readable output: summary
// statistics, colored board renderings and HTML charts.
package report

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"tiny-qbert-rl/internal/storage"
)

// Summary describes a sample of per-episode values.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes sample statistics. StdDev is 0 for fewer than two values.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{
		Count: len(values),
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s
}

// TableSummary describes a persisted table file.
type TableSummary struct {
	ValueRows   int
	VisitRows   int
	TotalVisits int64
	// Values summarizes the best action value of every state.
	Values Summary
	// Visited counts states whose visit row has at least one non-zero count.
	Visited int
}

func SummarizeTables(t *storage.Tables) TableSummary {
	summary := TableSummary{ValueRows: len(t.Values), VisitRows: len(t.Visits)}
	best := make([]float64, 0, len(t.Values))
	for _, row := range t.Values {
		best = append(best, floats.Max(row[:]))
	}
	summary.Values = Summarize(best)
	for _, row := range t.Visits {
		var sum int64
		for _, c := range row {
			sum += c
		}
		if sum > 0 {
			summary.Visited++
		}
		summary.TotalVisits += sum
	}
	return summary
}
