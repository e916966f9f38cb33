package triagequery

import (
	"sort"

	"github.com/exotriage/exotriage/pkg/triage"
)

// RoleCount is one entry of the role breakdown.
type RoleCount struct {
	Role       string  `json:"role"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"` // of candidates, not of role instances
}

// Summary holds distributional statistics over a filtered set.
type Summary struct {
	ConfirmedPredictions     int                     `json:"confirmed_predictions"`
	FalsePositivePredictions int                     `json:"false_positive_predictions"`
	HabitableZone            int                     `json:"habitable_zone"`
	AvgPriorityScore         float64                 `json:"avg_priority_score"`
	RoleBreakdown            []RoleCount             `json:"role_breakdown"`
	PriorityDistribution     map[triage.Priority]int `json:"priority_distribution"`
}

// Summarize computes statistics over cands. Every tier is always present in
// the priority distribution, and percentages are 0 for an empty set.
func Summarize(cands []triage.Candidate) Summary {
	s := Summary{
		RoleBreakdown:        []RoleCount{},
		PriorityDistribution: make(map[triage.Priority]int, len(triage.Priorities)),
	}
	for _, p := range triage.Priorities {
		s.PriorityDistribution[p] = 0
	}

	counts := make(map[string]int)
	total := 0
	for i := range cands {
		c := &cands[i]
		if c.Prediction == triage.PredictionConfirmed {
			s.ConfirmedPredictions++
		}
		if c.InHabitableZone {
			s.HabitableZone++
		}
		total += c.PriorityScore
		for _, ra := range c.Roles {
			counts[ra.Role]++
			s.PriorityDistribution[ra.Priority]++
		}
	}
	n := len(cands)
	s.FalsePositivePredictions = n - s.ConfirmedPredictions
	s.AvgPriorityScore = triage.Round(float64(total)/float64(max(1, n)), 1)

	for role, cnt := range counts {
		pct := 0.0
		if n > 0 {
			pct = triage.Round(float64(cnt)/float64(n)*100, 1)
		}
		s.RoleBreakdown = append(s.RoleBreakdown, RoleCount{Role: role, Count: cnt, Percentage: pct})
	}
	sort.Slice(s.RoleBreakdown, func(i, j int) bool {
		a, b := s.RoleBreakdown[i], s.RoleBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if ra, rb := roleRank(a.Role), roleRank(b.Role); ra != rb {
			return ra < rb
		}
		return a.Role < b.Role
	})
	return s
}

// roleRank orders known roles by evaluation order and unknown roles last.
func roleRank(role string) int {
	for i, r := range triage.RoleNames {
		if r == role {
			return i
		}
	}
	return len(triage.RoleNames)
}
