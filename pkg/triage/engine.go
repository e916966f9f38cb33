package triage

import (
	"github.com/exotriage/exotriage/pkg/candidate"
)

// Rule is the interface that all role rules implement.
type Rule interface {
	// Key returns the machine-readable rule identifier.
	Key() string
	// Name returns the role name the rule assigns.
	Name() string
	// Evaluate returns the assignment and true when the rule triggers.
	Evaluate(in Input) (RoleAssignment, bool)
}

// Engine runs an ordered set of rules and the scoring function.
type Engine struct {
	rules []Rule
}

// NewEngine creates a triage engine with the given rules, evaluated in order.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the engine's rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// AssignRoles evaluates every rule against in. The result follows rule order.
func (e *Engine) AssignRoles(in Input) []RoleAssignment {
	roles := make([]RoleAssignment, 0, len(e.rules))
	for _, r := range e.rules {
		if ra, ok := r.Evaluate(in); ok {
			roles = append(roles, ra)
		}
	}
	return roles
}

// Enrich builds the enriched record for one candidate. index is the
// candidate's position in its batch.
func (e *Engine) Enrich(index int, p candidate.Parameters, inf Inference) Candidate {
	if inf.PredictedRadius < 0 {
		inf.PredictedRadius = 0
	}
	inHZ := InHabitableZone(p.Insolation)
	roles := e.AssignRoles(Input{Params: p, Inference: inf, InHZ: inHZ})

	return Candidate{
		Index:           index,
		ID:              p.ID,
		Params:          p,
		Inference:       inf,
		Prediction:      PredictionLabel(inf.ConfirmationProbability),
		InHabitableZone: inHZ,
		SizeClass:       SizeClass(inf.PredictedRadius),
		PriorityScore:   PriorityScore(inf.ConfirmationProbability, inf.PredictedRadius, p.Insolation, p.Multiplicity, p.SNR),
		Roles:           roles,
		NumRoles:        len(roles),
	}
}
