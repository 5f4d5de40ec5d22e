package analytics

import (
	"sort"

	"github.com/boshu2/agentgate/internal/decisionlog"
)

// Direction labels a trend or a prediction.
type Direction string

const (
	DirectionImproving        Direction = "improving"
	DirectionWorsening        Direction = "worsening"
	DirectionStable           Direction = "stable"
	DirectionInsufficientData Direction = "insufficient-data"
)

const (
	// movingWindow is the number of recent days averaged for the direction.
	movingWindow = 3

	improvingRatio = 0.8
	worseningRatio = 1.2

	// predictionSlack is how far the mean daily change may move, in
	// percentage points, before the prediction stops being stable.
	predictionSlack = 1.0
)

// DayBucket aggregates one calendar day.
type DayBucket struct {
	Date          string  `json:"date" yaml:"date"`
	Total         int     `json:"total" yaml:"total"`
	Misdetections int     `json:"misdetections" yaml:"misdetections"`
	ErrorRate     float64 `json:"error_rate" yaml:"error_rate"`
}

// Prediction extrapolates the next day's error rate.
type Prediction struct {
	Direction     Direction `json:"direction" yaml:"direction"`
	AverageChange float64   `json:"average_change" yaml:"average_change"`

	// NextErrorRate is only meaningful when Direction is not
	// DirectionInsufficientData.
	NextErrorRate float64 `json:"next_error_rate" yaml:"next_error_rate"`
}

// Trends is the day-by-day error rate history.
type Trends struct {
	Days             []DayBucket `json:"days" yaml:"days"`
	AverageErrorRate float64     `json:"average_error_rate" yaml:"average_error_rate"`
	Direction        Direction   `json:"direction" yaml:"direction"`
	Prediction       Prediction  `json:"prediction" yaml:"prediction"`
}

// TrackTrends buckets records by day, oldest first. Records without a
// timestamp are ignored.
func TrackTrends(records []decisionlog.Record) Trends {
	byDay := make(map[string]*DayBucket)
	for _, r := range records {
		if r.Timestamp.IsZero() {
			continue
		}
		day := r.Day()
		b, ok := byDay[day]
		if !ok {
			b = &DayBucket{Date: day}
			byDay[day] = b
		}
		b.Total++
		if r.Misdetected() {
			b.Misdetections++
		}
	}

	t := Trends{Days: make([]DayBucket, 0, len(byDay))}
	for _, b := range byDay {
		b.ErrorRate = round2(float64(b.Misdetections) / float64(b.Total) * 100)
		t.Days = append(t.Days, *b)
	}
	sort.Slice(t.Days, func(i, j int) bool { return t.Days[i].Date < t.Days[j].Date })

	rates := make([]float64, len(t.Days))
	for i, d := range t.Days {
		rates[i] = d.ErrorRate
	}
	if len(rates) > 0 {
		t.AverageErrorRate = round2(mean(rates))
	}
	t.Direction = direction(rates)
	t.Prediction = predict(rates)
	return t
}

func direction(rates []float64) Direction {
	if len(rates) < 2 {
		return DirectionInsufficientData
	}
	start := max(len(rates)-movingWindow, 0)
	recent := mean(rates[start:])

	older := rates[0]
	if len(rates) > movingWindow {
		older = mean(rates[:len(rates)-movingWindow])
	}

	switch {
	case recent < older*improvingRatio:
		return DirectionImproving
	case recent > older*worseningRatio:
		return DirectionWorsening
	default:
		return DirectionStable
	}
}

func predict(rates []float64) Prediction {
	if len(rates) < 3 {
		return Prediction{Direction: DirectionInsufficientData}
	}
	diffs := make([]float64, len(rates)-1)
	for i := 1; i < len(rates); i++ {
		diffs[i-1] = rates[i] - rates[i-1]
	}
	d := mean(diffs)

	p := Prediction{
		AverageChange: round2(d),
		NextErrorRate: round2(min(max(rates[len(rates)-1]+d, 0), 100)),
	}
	switch {
	case d < -predictionSlack:
		p.Direction = DirectionImproving
	case d > predictionSlack:
		p.Direction = DirectionWorsening
	default:
		p.Direction = DirectionStable
	}
	return p
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
