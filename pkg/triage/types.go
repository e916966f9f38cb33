// Package triage implements the exotriage follow-up engine. It turns a
// candidate's measured parameters and the upstream model outputs into
// explainable observation roles and a composite priority score.
package triage

import (
	"math"
	"strconv"

	"github.com/exotriage/exotriage/pkg/candidate"
)

// Priority is the urgency tier of a role assignment.
type Priority string

const (
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityStandard Priority = "STANDARD"
)

// Priorities lists every tier in display order.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityStandard}

// Role names, in evaluation order.
const (
	RoleRadialVelocity = "Radial Velocity Observer"
	RoleTransit        = "Transit Photometrist"
	RoleCentroid       = "Centroid Analyst"
	RoleStatValidator  = "Statistical Validator"
	RoleAtmospheric    = "Atmospheric Scientist"
	RoleStellar        = "Stellar Characterization"
	RoleDynamical      = "Dynamical Analyst"
)

// Classifier labels.
const (
	PredictionConfirmed = "CONFIRMED"
	PredictionFalsePos  = "FALSE POSITIVE"

	confirmedProbability = 0.5
)

// RoleNames lists the seven roles in evaluation order.
var RoleNames = []string{
	RoleRadialVelocity,
	RoleTransit,
	RoleCentroid,
	RoleStatValidator,
	RoleAtmospheric,
	RoleStellar,
	RoleDynamical,
}

// RoleAssignment is one recommended follow-up task. Immutable once created.
type RoleAssignment struct {
	Role        string   `json:"role"`
	Icon        string   `json:"icon"`
	Priority    Priority `json:"priority"`
	Instrument  string   `json:"instrument"`
	Task        string   `json:"task"`
	Reason      string   `json:"reason"` // embeds the numbers that triggered the role
	Deliverable string   `json:"deliverable"`
	Timeline    string   `json:"timeline"`
}

// Inference carries the upstream model outputs for one candidate.
type Inference struct {
	ConfirmationProbability  float64 `json:"conf_prob"`
	FalsePositiveProbability float64 `json:"fp_prob"`
	PredictedRadius          float64 `json:"radius"` // Earth radii, clamped >= 0
	RadiusUncertainty        float64 `json:"radius_uncertainty"`
}

// NewInference builds an Inference, clamping a negative radius to zero.
func NewInference(conf, fp, radius, uncertainty float64) Inference {
	return Inference{
		ConfirmationProbability:  conf,
		FalsePositiveProbability: fp,
		PredictedRadius:          math.Max(0, radius),
		RadiusUncertainty:        uncertainty,
	}
}

// Input is everything a rule may look at.
type Input struct {
	Params    candidate.Parameters
	Inference Inference
	InHZ      bool
}

// Candidate is the enriched record produced once per candidate per batch.
// It is never mutated after creation.
type Candidate struct {
	Index           int                  `json:"-"`
	ID              string               `json:"kepoi_name,omitempty"`
	Params          candidate.Parameters `json:"params"`
	Inference       Inference            `json:"inference"`
	Prediction      string               `json:"prediction"`
	InHabitableZone bool                 `json:"in_habitable_zone"`
	SizeClass       string               `json:"size_class"`
	PriorityScore   int                  `json:"priority_score"`
	Roles           []RoleAssignment     `json:"roles"`
	NumRoles        int                  `json:"num_roles"`
}

// HasRole reports whether any assignment carries the given role name.
func (c *Candidate) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// HasPriority reports whether any assignment carries the given tier.
func (c *Candidate) HasPriority(p Priority) bool {
	for _, r := range c.Roles {
		if r.Priority == p {
			return true
		}
	}
	return false
}

// Round rounds v to the given number of decimal places. The exact binary
// value is rounded, so true ties go to the even digit: Round(0.25, 1) is 0.2
// and Round(2.675, 2) is 2.67.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// PredictionLabel maps a confirmation probability to the classifier's label.
// An exact 0.5 is a tie, which the classifier resolves to the false-positive
// class.
func PredictionLabel(conf float64) string {
	if conf > confirmedProbability {
		return PredictionConfirmed
	}
	return PredictionFalsePos
}
