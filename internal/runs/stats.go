package runs

import (
	"math"
	"sort"
	"time"

	"github.com/exotriage/exotriage/pkg/triage"
)

// RadiusBucket counts candidates whose predicted radius falls in [lo, hi).
type RadiusBucket struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// ConfidenceBucket counts candidates by classifier confidence.
type ConfidenceBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// Statistics describes the distribution of an archived batch. The radius
// buckets are display categories and do not follow triage size classes.
type Statistics struct {
	Total             int                `json:"total_predictions"`
	Confirmed         int                `json:"confirmed_exoplanets"`
	FalsePositives    int                `json:"false_positives"`
	ConfirmRate       float64            `json:"confirm_rate"`
	AvgConfidence     float64            `json:"avg_confidence"`
	AvgRadius         float64            `json:"avg_planetary_radius"`
	RadiusBuckets     []RadiusBucket     `json:"radius_buckets"`
	ConfidenceBuckets []ConfidenceBucket `json:"confidence_buckets"`
}

var radiusDefs = []struct {
	name, label string
	lo, hi      float64
}{
	{"Sub-Earth", "< 1 R⊕", 0, 1},
	{"Earth-like", "1–2 R⊕", 1, 2},
	{"Super-Earth", "2–4 R⊕", 2, 4},
	{"Neptune-like", "4–8 R⊕", 4, 8},
	{"Jupiter-like", "8–15 R⊕", 8, 15},
	{"Super-Jupiter", "> 15 R⊕", 15, math.Inf(1)},
}

// The top bound exceeds 1 so a confidence of exactly 1 is counted.
var confidenceDefs = []struct {
	label  string
	lo, hi float64
}{
	{"<60%", 0, 0.60},
	{"60-70%", 0.60, 0.70},
	{"70-80%", 0.70, 0.80},
	{"80-90%", 0.80, 0.90},
	{">90%", 0.90, 1.01},
}

// Confidence is the probability of the predicted class.
func Confidence(inf triage.Inference) float64 {
	return math.Max(inf.ConfirmationProbability, inf.FalsePositiveProbability)
}

// ComputeStatistics buckets cands by predicted radius and confidence.
func ComputeStatistics(cands []triage.Candidate) Statistics {
	st := Statistics{
		Total:             len(cands),
		RadiusBuckets:     make([]RadiusBucket, len(radiusDefs)),
		ConfidenceBuckets: make([]ConfidenceBucket, len(confidenceDefs)),
	}
	for i, d := range radiusDefs {
		st.RadiusBuckets[i] = RadiusBucket{Name: d.name, Label: d.label}
	}
	for i, d := range confidenceDefs {
		st.ConfidenceBuckets[i] = ConfidenceBucket{Range: d.label}
	}

	var sumConf, sumRadius float64
	for i := range cands {
		c := &cands[i]
		if c.Prediction == triage.PredictionConfirmed {
			st.Confirmed++
		} else {
			st.FalsePositives++
		}

		r := c.Inference.PredictedRadius
		sumRadius += r
		for j, d := range radiusDefs {
			if d.lo <= r && r < d.hi {
				st.RadiusBuckets[j].Count++
				break
			}
		}

		conf := Confidence(c.Inference)
		sumConf += conf
		for j, d := range confidenceDefs {
			if d.lo <= conf && conf < d.hi {
				st.ConfidenceBuckets[j].Count++
				break
			}
		}
	}

	if st.Total > 0 {
		n := float64(st.Total)
		st.ConfirmRate = triage.Round(float64(st.Confirmed)/n, 4)
		st.AvgConfidence = triage.Round(sumConf/n, 4)
		st.AvgRadius = triage.Round(sumRadius/n, 4)
	}
	return st
}

// TimelineDay tallies the predictions of every run recorded on one UTC day.
type TimelineDay struct {
	Date          string `json:"date"`
	Runs          int    `json:"runs"`
	Confirmed     int    `json:"confirmed"`
	FalsePositive int    `json:"false_positive"`
	Total         int    `json:"total"`
}

// Timeline groups list by creation day, oldest day first.
func Timeline(list []Run) []TimelineDay {
	byDate := make(map[string]*TimelineDay)
	for i := range list {
		r := &list[i]
		date := r.CreatedAt.UTC().Format(time.DateOnly)
		d, ok := byDate[date]
		if !ok {
			d = &TimelineDay{Date: date}
			byDate[date] = d
		}
		d.Runs++
		d.Confirmed += r.Confirmed
		d.FalsePositive += r.Classified - r.Confirmed
		d.Total += r.Classified
	}

	days := make([]TimelineDay, 0, len(byDate))
	for _, d := range byDate {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
