package conversations

import (
	"math"
	"time"

	"leadbox/internal/models"
)

// trendDeadBand is the percent change below which a trend reads as stable,
// so indicator arrows do not flicker on noise
const trendDeadBand = 1.0

// Trend directions
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// CalculateMetrics reduces a processed view into per-status counts and the
// average EV score over scored conversations
func CalculateMetrics(items []models.ProcessedConversation) models.Metrics {
	m := models.Metrics{Total: len(items)}

	var scoreSum float64
	var scored int
	for _, item := range items {
		switch item.Status {
		case models.StatusActive:
			m.Active++
		case models.StatusPending:
			m.Pending++
		case models.StatusCompleted:
			m.Completed++
		case models.StatusFlagged:
			m.Flagged++
		case models.StatusSpam:
			m.Spam++
		}
		if item.EVScore != nil {
			scoreSum += *item.EVScore
			scored++
		}
	}

	if scored > 0 {
		m.AverageEVScore = scoreSum / float64(scored)
	}

	return m
}

// CalculateTrends partitions conversations into the given window and the
// equal-length immediately preceding one, computes each metric for both, and
// returns directional trend data per metric
func CalculateTrends(items []models.ProcessedConversation, windowStart, windowEnd time.Time) models.Trends {
	length := windowEnd.Sub(windowStart)
	prevStart := windowStart.Add(-length)

	var current, previous []models.ProcessedConversation
	for _, item := range items {
		t := lastActivityTime(item)
		switch {
		case !t.Before(windowStart) && !t.After(windowEnd):
			current = append(current, item)
		case !t.Before(prevStart) && t.Before(windowStart):
			previous = append(previous, item)
		}
	}

	cm := CalculateMetrics(current)
	pm := CalculateMetrics(previous)

	return models.Trends{
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		Total:          trendData(float64(cm.Total), float64(pm.Total)),
		Active:         trendData(float64(cm.Active), float64(pm.Active)),
		Pending:        trendData(float64(cm.Pending), float64(pm.Pending)),
		Completed:      trendData(float64(cm.Completed), float64(pm.Completed)),
		Flagged:        trendData(float64(cm.Flagged), float64(pm.Flagged)),
		Spam:           trendData(float64(cm.Spam), float64(pm.Spam)),
		AverageEVScore: trendData(cm.AverageEVScore, pm.AverageEVScore),
	}
}

// trendData compares one metric across the window pair. A change with no
// prior baseline carries no percent change at all, never ±Inf or 0.
func trendData(current, previous float64) models.TrendData {
	td := models.TrendData{
		Current:   current,
		Previous:  previous,
		Direction: TrendStable,
	}

	if previous == 0 {
		return td
	}

	pct := (current - previous) / previous * 100
	td.PercentChange = &pct

	switch {
	case math.Abs(pct) < trendDeadBand:
		td.Direction = TrendStable
	case pct > 0:
		td.Direction = TrendUp
	default:
		td.Direction = TrendDown
	}

	return td
}

// ShouldShowTrend reports whether a trend indicator has a baseline worth
// rendering; a previous window with zero observations shows no trend
func ShouldShowTrend(td models.TrendData) bool {
	return td.Previous != 0 && td.PercentChange != nil
}
