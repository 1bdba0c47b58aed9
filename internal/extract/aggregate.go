package extract

import "time"

// Aggregate sums extracted metrics over the completed instances of a series.
type Aggregate struct {
	TotalCount       float64 `json:"total_count"`
	TodayCount       float64 `json:"today_count"`
	TotalTimeMinutes float64 `json:"total_time_minutes"`
	TodayTimeMinutes float64 `json:"today_time_minutes"`
	TotalDistance    float64 `json:"total_distance"`
	TodayDistance    float64 `json:"today_distance"`
	DistanceUnit     string  `json:"distance_unit,omitempty"`
}

// Entry is one completed instance: its text and the day it was completed.
type Entry struct {
	Text        string
	CompletedAt time.Time
}

// AggregateMetrics extracts each entry's metrics and buckets them into
// counts, time and distance. Seconds fold into minutes; a second distance
// unit is ignored once the first one is fixed.
func AggregateMetrics(entries []Entry, today time.Time) Aggregate {
	var agg Aggregate
	ty, tm, td := today.Date()

	for _, e := range entries {
		y, m, d := e.CompletedAt.Date()
		isToday := y == ty && m == tm && d == td

		for _, metric := range Extract(e.Text).Metrics {
			switch metric.Type {
			case "minutes", "seconds":
				minutes := metric.Value
				if metric.Type == "seconds" {
					minutes = metric.Value / 60
				}
				agg.TotalTimeMinutes += minutes
				if isToday {
					agg.TodayTimeMinutes += minutes
				}
			case "distance":
				if agg.DistanceUnit == "" {
					agg.DistanceUnit = metric.Unit
				}
				if metric.Unit != agg.DistanceUnit {
					continue
				}
				agg.TotalDistance += metric.Value
				if isToday {
					agg.TodayDistance += metric.Value
				}
			case "weight":
				// a load, not a count
			default:
				agg.TotalCount += metric.Value
				if isToday {
					agg.TodayCount += metric.Value
				}
			}
		}
	}

	return agg
}
