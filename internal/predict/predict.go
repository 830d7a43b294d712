// Package predict estimates how long a build will take from its recent
// duration history, and assembles the predict command's elapsed/
// remaining/estimate rows for in-progress or pending builds.
package predict

import "sort"

// Average selects how History durations are folded into one estimate.
type Average int

const (
	AverageArith Average = iota
	AverageMedian
	AverageWeightedArith
	AverageWeightedMedian
)

// ParseAverage parses the --avg CLI spelling.
func ParseAverage(s string) (Average, error) {
	switch s {
	case "a", "arith", "":
		return AverageArith, nil
	case "m", "median":
		return AverageMedian, nil
	case "w", "wa", "weighted-arith":
		return AverageWeightedArith, nil
	case "wm", "weighted-median":
		return AverageWeightedMedian, nil
	default:
		return 0, errUnknownAverage(s)
	}
}

type errUnknownAverage string

func (e errUnknownAverage) Error() string { return "unknown average style: " + string(e) }

// Estimate folds durs (most-recent-first, as produced by
// aggregate.History.Durations) into a single predicted duration using
// style. It returns (0, false) for an empty history: the caller decides
// the unknown-package fallback (a fixed default, or skip the row).
func Estimate(durs []int64, style Average) (int64, bool) {
	if len(durs) == 0 {
		return 0, false
	}
	switch style {
	case AverageMedian:
		return median(durs), true
	case AverageWeightedArith:
		return weightedArith(durs), true
	case AverageWeightedMedian:
		return weightedMedian(durs), true
	default:
		return arith(durs), true
	}
}

func arith(durs []int64) int64 {
	var sum int64
	for _, d := range durs {
		sum += d
	}
	return sum / int64(len(durs))
}

// median sorts a copy of durs and returns the middle value (averaging the
// two middle values for an even count, integer-truncated).
func median(durs []int64) int64 {
	sorted := append([]int64(nil), durs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// weightedArith weights durs by recency: durs is most-recent-first, and
// the weight of the i-th entry (0-based from the front) is (len-i), so
// the most recent entry carries the largest weight.
func weightedArith(durs []int64) int64 {
	n := int64(len(durs))
	var sum, weight int64
	for i, d := range durs {
		w := n - int64(i)
		sum += d * w
		weight += w
	}
	return sum / weight
}

// weightedMedian sorts (value, weight) pairs by value and returns the
// value at which cumulative weight first reaches half the total weight,
// using the same recency weighting as weightedArith.
func weightedMedian(durs []int64) int64 {
	type wv struct {
		val    int64
		weight int64
	}
	n := int64(len(durs))
	pairs := make([]wv, len(durs))
	var total int64
	for i, d := range durs {
		w := n - int64(i)
		pairs[i] = wv{val: d, weight: w}
		total += w
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].val < pairs[j].val })
	half := total / 2
	var cum int64
	for _, p := range pairs {
		cum += p.weight
		if cum*2 >= total && cum >= half {
			return p.val
		}
	}
	return pairs[len(pairs)-1].val
}

// Row is one line of predict-command output: a build that's either
// already running (Elapsed known) or queued (Elapsed 0).
type Row struct {
	Ebuild    string
	Version   string
	Elapsed   int64
	Estimate  int64 // predicted total duration; 0 if unknown
	Remaining int64 // Estimate - Elapsed, floored at 0; 0 if Estimate unknown
}

// NewRow builds a Row from a build's start time (0 if not yet started),
// the current time, and its predicted total duration (ok=false if
// unknown).
func NewRow(ebuild, version string, start, now, estimate int64, ok bool) Row {
	r := Row{Ebuild: ebuild, Version: version}
	if start > 0 {
		r.Elapsed = now - start
	}
	if ok {
		r.Estimate = estimate
		if estimate > r.Elapsed {
			r.Remaining = estimate - r.Elapsed
		}
	}
	return r
}
