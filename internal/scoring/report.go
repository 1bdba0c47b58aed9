package scoring

import (
	"math"
	"sort"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

type CategoryMastery struct {
	Category       string `json:"category"`
	MasteryScore   int    `json:"mastery_score"`
	MasteryLabel   string `json:"mastery_label"`
	Trend          string `json:"trend"`
	Completed      int    `json:"completed"`
	Total          int    `json:"total"`
	CompletionRate int    `json:"completion_rate"`
	ActiveDays     int    `json:"active_days"`
	AvgTimeMinutes int    `json:"avg_time_minutes"`
}

type CategoryLag struct {
	Category                string  `json:"category"`
	LagScore                int     `json:"lag_score"`
	LagLabel                string  `json:"lag_label"`
	CompletionRate          int     `json:"completion_rate"`
	PendingCount            int     `json:"pending_count"`
	OverdueCount            int     `json:"overdue_count"`
	AvgDaysOverdue          float64 `json:"avg_days_overdue"`
	DaysSinceLastCompletion *int    `json:"days_since_last_completion"`
}

type PriorityLag struct {
	Priority       models.Priority `json:"priority"`
	PendingCount   int             `json:"pending_count"`
	OverdueCount   int             `json:"overdue_count"`
	CompletionRate int             `json:"completion_rate"`
}

type LagReport struct {
	LagCategories   []CategoryLag `json:"lag_categories"`
	LagPriorities   []PriorityLag `json:"lag_priorities"`
	OverallLagScore int           `json:"overall_lag_score"`
	OverallLagLabel string        `json:"overall_lag_label"`
}

// InPeriod keeps the tasks whose relevant time falls inside p.
func InPeriod(tasks []models.Task, p models.Period) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if p.Contains(t.RelevantTime()) {
			out = append(out, t)
		}
	}
	return out
}

// effectiveStart narrows an open-ended period to the earliest task in it.
func effectiveStart(tasks []models.Task, p models.Period) time.Time {
	if !p.Start.IsZero() || len(tasks) == 0 {
		return p.Start
	}
	start := tasks[0].RelevantTime()
	for _, t := range tasks[1:] {
		if rt := t.RelevantTime(); rt.Before(start) {
			start = rt
		}
	}
	return start
}

func groupByCategory(tasks []models.Task) (map[string][]models.Task, []string) {
	groups := make(map[string][]models.Task)
	var names []string
	for _, t := range tasks {
		c := t.CategoryName()
		if _, ok := groups[c]; !ok {
			names = append(names, c)
		}
		groups[c] = append(groups[c], t)
	}
	sort.Strings(names)
	return groups, names
}

func doneCount(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Done {
			n++
		}
	}
	return n
}

func rateOf(tasks []models.Task) int {
	done := doneCount(tasks)
	return CompletionRate(done, len(tasks)-done)
}

// MasteryStats scores every category with tasks in the period, best first.
func MasteryStats(tasks []models.Task, p models.Period, now time.Time) []CategoryMastery {
	inPeriod := InPeriod(tasks, p)
	groups, names := groupByCategory(inPeriod)

	start := effectiveStart(inPeriod, p)
	end := p.End
	if now.Before(end) {
		end = now
	}
	elapsed := models.DaysBetween(start, end) + 1
	mid := start.Add(end.Sub(start) / 2)

	out := make([]CategoryMastery, 0, len(names))
	for _, name := range names {
		group := groups[name]
		completed := doneCount(group)

		activeDays := make(map[time.Time]bool)
		high, timed, minutes := 0, 0, 0
		var first, second []models.Task
		for _, t := range group {
			if t.RelevantTime().Before(mid) {
				first = append(first, t)
			} else {
				second = append(second, t)
			}
			if !t.Done {
				continue
			}
			activeDays[models.Day(t.RelevantTime())] = true
			if models.ParsePriority(string(t.Priority)) == models.PriorityHigh {
				high++
			}
			if t.ActualMinutes > 0 {
				timed++
				minutes += t.ActualMinutes
			}
		}

		rate := CompletionRate(completed, len(group)-completed)
		score := MasteryScore(MasteryInput{
			CompletionRate:        rate,
			ActiveDays:            len(activeDays),
			ElapsedDays:           elapsed,
			HighPriorityCompleted: high,
			TotalCompleted:        completed,
		})

		avg := 0
		if timed > 0 {
			avg = int(math.Round(float64(minutes) / float64(timed)))
		}

		out = append(out, CategoryMastery{
			Category:       name,
			MasteryScore:   score,
			MasteryLabel:   MasteryLabel(score),
			Trend:          Trend(rateOf(first), rateOf(second)),
			Completed:      completed,
			Total:          len(group),
			CompletionRate: rate,
			ActiveDays:     len(activeDays),
			AvgTimeMinutes: avg,
		})
	}

	SortByMastery(out)
	return out
}

type lagTally struct {
	pending, overdue, daysOverdue int
}

func tallyLag(tasks []models.Task, now time.Time) lagTally {
	var lt lagTally
	for _, t := range tasks {
		if t.Done {
			continue
		}
		lt.pending++
		if t.IsOverdue(now) {
			lt.overdue++
			lt.daysOverdue += models.DaysBetween(*t.Deadline, now)
		}
	}
	return lt
}

func (lt lagTally) avgDaysOverdue() float64 {
	if lt.overdue == 0 {
		return 0
	}
	return math.Round(float64(lt.daysOverdue)/float64(lt.overdue)*10) / 10
}

// LagIndicators reports how far behind each category and priority is. The
// days since last completion look at all tasks, not just the period.
func LagIndicators(tasks []models.Task, p models.Period, now time.Time) LagReport {
	inPeriod := InPeriod(tasks, p)
	groups, names := groupByCategory(inPeriod)

	lastDone := make(map[string]time.Time)
	for _, t := range tasks {
		if !t.Done || t.CompletedAt == nil {
			continue
		}
		c := t.CategoryName()
		if t.CompletedAt.After(lastDone[c]) {
			lastDone[c] = *t.CompletedAt
		}
	}

	report := LagReport{LagCategories: make([]CategoryLag, 0, len(names))}
	for _, name := range names {
		group := groups[name]
		lt := tallyLag(group, now)
		rate := rateOf(group)
		score := LagScore(LagInput{
			PendingCount:   lt.pending,
			OverdueCount:   lt.overdue,
			AvgDaysOverdue: lt.avgDaysOverdue(),
			CompletionRate: rate,
		})

		cl := CategoryLag{
			Category:       name,
			LagScore:       score,
			LagLabel:       LagLabel(score),
			CompletionRate: rate,
			PendingCount:   lt.pending,
			OverdueCount:   lt.overdue,
			AvgDaysOverdue: lt.avgDaysOverdue(),
		}
		if last, ok := lastDone[name]; ok {
			days := models.DaysBetween(last, now)
			cl.DaysSinceLastCompletion = &days
		}
		report.LagCategories = append(report.LagCategories, cl)
	}
	SortLagWorstFirst(report.LagCategories)

	byPriority := make(map[models.Priority][]models.Task)
	for _, t := range inPeriod {
		pr := models.ParsePriority(string(t.Priority))
		byPriority[pr] = append(byPriority[pr], t)
	}
	for _, pr := range models.Priorities {
		group := byPriority[pr]
		if len(group) == 0 {
			continue
		}
		lt := tallyLag(group, now)
		report.LagPriorities = append(report.LagPriorities, PriorityLag{
			Priority:       pr,
			PendingCount:   lt.pending,
			OverdueCount:   lt.overdue,
			CompletionRate: rateOf(group),
		})
	}

	overall := tallyLag(inPeriod, now)
	report.OverallLagScore = LagScore(LagInput{
		PendingCount:   overall.pending,
		OverdueCount:   overall.overdue,
		AvgDaysOverdue: overall.avgDaysOverdue(),
		CompletionRate: rateOf(inPeriod),
	})
	if len(inPeriod) == 0 {
		report.OverallLagScore = 0
	}
	report.OverallLagLabel = LagLabel(report.OverallLagScore)
	return report
}

// SortByMastery orders by mastery score descending, then category name.
func SortByMastery(stats []CategoryMastery) {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].MasteryScore != stats[j].MasteryScore {
			return stats[i].MasteryScore > stats[j].MasteryScore
		}
		return stats[i].Category < stats[j].Category
	})
}

// SortLagWorstFirst orders by completion rate ascending; ties put the higher
// lag score first.
func SortLagWorstFirst(lags []CategoryLag) {
	sort.SliceStable(lags, func(i, j int) bool {
		if lags[i].CompletionRate != lags[j].CompletionRate {
			return lags[i].CompletionRate < lags[j].CompletionRate
		}
		if lags[i].LagScore != lags[j].LagScore {
			return lags[i].LagScore > lags[j].LagScore
		}
		return lags[i].Category < lags[j].Category
	})
}
