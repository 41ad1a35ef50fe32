// Package history derives the per-task average-time chart data from the raw
// submission list.
package history

import (
	"math"

	"labelarcade/internal/model"
)

// MaxChartGroups caps how many task groups the chart shows.
const MaxChartGroups = 10

// TaskAverage is one bar of the average-time chart.
type TaskAverage struct {
	TaskID  string
	Samples int
	AvgTime float64
}

// AverageTimes groups submissions by task id in order of first appearance,
// drops records without an elapsed time, and averages the rest to two decimal
// places. Groups left empty after the null filter are skipped entirely, and
// at most MaxChartGroups groups are returned. The output is deliberately not
// sorted by any metric: the chart shows the first tasks seen, not the top
// ones.
func AverageTimes(records []model.SubmissionRecord) []TaskAverage {
	sums := map[string]float64{}
	counts := map[string]int{}
	var order []string

	for _, rec := range records {
		id := rec.TaskID.String()
		if _, seen := counts[id]; !seen {
			counts[id] = 0
			order = append(order, id)
		}
		if rec.TimeTakenInSeconds == nil {
			continue
		}
		sums[id] += *rec.TimeTakenInSeconds
		counts[id]++
	}

	out := make([]TaskAverage, 0, len(order))
	for _, id := range order {
		n := counts[id]
		if n == 0 {
			continue
		}
		out = append(out, TaskAverage{
			TaskID:  id,
			Samples: n,
			AvgTime: round2(sums[id] / float64(n)),
		})
		if len(out) == MaxChartGroups {
			break
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
