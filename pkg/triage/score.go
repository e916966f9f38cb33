package triage

// ScoreBreakdown holds the five components of the priority score.
type ScoreBreakdown struct {
	Confidence   int `json:"confidence"`
	Habitability int `json:"habitability"`
	Size         int `json:"size"`
	Multiplicity int `json:"multiplicity"`
	Signal       int `json:"signal"`
}

// Total returns the clamped composite score.
func (b ScoreBreakdown) Total() int {
	return min(100, b.Confidence+b.Habitability+b.Size+b.Multiplicity+b.Signal)
}

// Breakdown computes each score component.
func Breakdown(conf, radius float64, insol *float64, multiplicity *int, snr float64) ScoreBreakdown {
	var b ScoreBreakdown

	// Confidence: the 60-90% band is most interesting, near-certain less so.
	switch {
	case conf >= 0.6 && conf <= 0.9:
		b.Confidence = 30
	case conf > 0.9:
		b.Confidence = 20
	case conf >= 0.4 && conf < 0.6:
		b.Confidence = 25
	default:
		b.Confidence = 5
	}

	if insol != nil {
		switch {
		case *insol >= 0.25 && *insol <= 1.75:
			b.Habitability = 25
		case *insol >= 0.1 && *insol <= 3.0:
			b.Habitability = 10
		}
	}

	switch {
	case radius < 1.5:
		b.Size = 20
	case radius < 2.5:
		b.Size = 15
	case radius < 4:
		b.Size = 10
	case radius < 8:
		b.Size = 5
	}

	if multiplicity != nil && *multiplicity > 1 {
		b.Multiplicity = 10 + min(5, (*multiplicity-1)*2)
	}

	switch {
	case snr > 20:
		b.Signal = 10
	case snr > 10:
		b.Signal = 5
	}

	return b
}

// PriorityScore returns the composite follow-up score in [0, 100].
func PriorityScore(conf, radius float64, insol *float64, multiplicity *int, snr float64) int {
	return Breakdown(conf, radius, insol, multiplicity, snr).Total()
}
