package detection

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is a contiguous run of temporally close anomalous points collapsed
// into one alert.
type Event struct {
	Metric          string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds float64
	MaxScore        float64
	AnomalyPoints   int
	PeakValue       float64
	Priority        float64
}

// Priority weighting: severity dominates, breadth of impact caps at ten
// points, persistence caps at ten minutes.
const (
	priorityScoreWeight    = 0.5
	priorityPointsWeight   = 0.3
	priorityDurationWeight = 0.2
	priorityPointsCap      = 10
	priorityDurationCap    = 600
)

// Priority computes the triage priority of an event from its peak severity,
// point count, and duration in seconds. The result is always in [0, 1],
// rounded to three decimal places.
func Priority(maxScore float64, points int, durationSeconds float64) float64 {
	pointsNorm := float64(points) / priorityPointsCap
	if pointsNorm > 1 {
		pointsNorm = 1
	}
	durationNorm := durationSeconds / priorityDurationCap
	if durationNorm > 1 {
		durationNorm = 1
	}

	priority := priorityScoreWeight*maxScore +
		priorityPointsWeight*pointsNorm +
		priorityDurationWeight*durationNorm

	return roundFloat(priority, 3)
}

// GroupEvents merges temporally adjacent anomalous points into events. Two
// anomalous points belong to the same event when the gap between them is at
// most the configured grouping window. Points are scanned in their given
// order, which the caller keeps chronological. The returned events are
// sorted by priority descending; ties keep chronological order.
func (e *Engine) GroupEvents(timestamps []time.Time, flags []bool, scores []float64, values []float64, metric string) []Event {
	anyAnomaly := false
	for _, f := range flags {
		if f {
			anyAnomaly = true
			break
		}
	}
	if !anyAnomaly {
		return []Event{}
	}

	window := e.cfg.GroupingWindow()
	events := make([]Event, 0)
	var current *Event

	for i, ts := range timestamps {
		if !flags[i] {
			if current != nil {
				events = append(events, *current)
				current = nil
			}
			continue
		}

		if current == nil {
			current = &Event{
				Metric:        metric,
				StartTime:     ts,
				EndTime:       ts,
				MaxScore:      scores[i],
				PeakValue:     values[i],
				AnomalyPoints: 1,
			}
			continue
		}

		if ts.Sub(current.EndTime) <= window {
			// Peak value follows the point that set the running maximum.
			if scores[i] > current.MaxScore {
				current.MaxScore = scores[i]
				current.PeakValue = values[i]
			}
			current.EndTime = ts
			current.AnomalyPoints++
		} else {
			events = append(events, *current)
			current = &Event{
				Metric:        metric,
				StartTime:     ts,
				EndTime:       ts,
				MaxScore:      scores[i],
				PeakValue:     values[i],
				AnomalyPoints: 1,
			}
		}
	}
	if current != nil {
		events = append(events, *current)
	}

	for i := range events {
		events[i].DurationSeconds = events[i].EndTime.Sub(events[i].StartTime).Seconds()
		events[i].Priority = Priority(events[i].MaxScore, events[i].AnomalyPoints, events[i].DurationSeconds)
	}

	sort.SliceStable(events, func(a, b int) bool {
		return events[a].Priority > events[b].Priority
	})

	e.logger.WithFields(logrus.Fields{
		"metric": metric,
		"events": len(events),
	}).Info("Grouped anomalous points into events")

	return events
}
