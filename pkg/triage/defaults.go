package triage

// DefaultRules returns the seven follow-up rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		&RadialVelocityRule{},
		&TransitPhotometryRule{},
		&CentroidRule{},
		&StatisticalValidationRule{},
		&AtmosphericRule{},
		&StellarRule{},
		&DynamicalRule{},
	}
}

// DefaultEngine returns an engine over DefaultRules.
func DefaultEngine() *Engine {
	return NewEngine(DefaultRules()...)
}
