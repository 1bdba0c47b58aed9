// Package scoring derives compliance figures from task snapshots and series
// history: completion rate, mastery, lag and trend. Everything is pure.
package scoring

import "math"

const (
	MasteryExpert     = "Expert"
	MasteryProficient = "Proficient"
	MasteryDeveloping = "Developing"
	MasteryStruggling = "Struggling"

	LagOnTrack  = "On Track"
	LagSlight   = "Slight Lag"
	LagBehind   = "Behind"
	LagCritical = "Critical"

	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendFlat      = "flat"

	trendMinDelta = 5
)

// CompletionRate is round(100*completed/(completed+missed)), or 0 when
// there is nothing to rate.
func CompletionRate(completed, missed int) int {
	total := completed + missed
	if total <= 0 || completed <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}

type MasteryInput struct {
	CompletionRate        int
	ActiveDays            int
	ElapsedDays           int
	HighPriorityCompleted int
	TotalCompleted        int
}

// MasteryScore weights completion rate 0.5, consistency 0.3 and high
// priority focus 0.2.
func MasteryScore(in MasteryInput) int {
	consistency := ratio(in.ActiveDays, in.ElapsedDays)
	focus := ratio(in.HighPriorityCompleted, in.TotalCompleted)

	score := 0.5*float64(in.CompletionRate) + 0.3*consistency + 0.2*focus
	return clampScore(score)
}

func MasteryLabel(score int) string {
	switch {
	case score >= 85:
		return MasteryExpert
	case score >= 65:
		return MasteryProficient
	case score >= 40:
		return MasteryDeveloping
	default:
		return MasteryStruggling
	}
}

type LagInput struct {
	PendingCount   int
	OverdueCount   int
	AvgDaysOverdue float64
	CompletionRate int
}

// LagScore weights overdue ratio 0.4, average days overdue (capped at 30)
// 0.3 and inverse completion rate 0.3. Higher is worse.
func LagScore(in LagInput) int {
	overdue := ratio(in.OverdueCount, in.PendingCount)
	days := math.Min(math.Max(in.AvgDaysOverdue, 0), 30) / 30 * 100
	inverse := 100 - float64(in.CompletionRate)

	score := 0.4*overdue + 0.3*days + 0.3*inverse
	return clampScore(score)
}

func LagLabel(score int) string {
	switch {
	case score < 30:
		return LagOnTrack
	case score < 50:
		return LagSlight
	case score < 75:
		return LagBehind
	default:
		return LagCritical
	}
}

// Trend compares the completion rate of the first and second half of a
// period.
func Trend(first, second int) string {
	switch {
	case second-first >= trendMinDelta:
		return TrendImproving
	case first-second >= trendMinDelta:
		return TrendDeclining
	default:
		return TrendFlat
	}
}

// ratio is 100*n/d capped at 100, 0 when d is not positive.
func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return math.Min(100, 100*float64(n)/float64(d))
}

func clampScore(v float64) int {
	return int(math.Round(math.Min(100, math.Max(0, v))))
}
