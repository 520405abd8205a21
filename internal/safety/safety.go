// Package safety is the rule-based charge safety check that stands in for a
// battery management system. It is pure: no I/O, no shared state.
package safety

import "fmt"

// Fixed limits. They apply to every chemistry.
const (
	MaxCellTemperature    = 50.0  // °C
	MinAmbientTemperature = 0.0   // °C
	MinAnodePotential     = 0.005 // V
	MaxTerminalVoltage    = 5.0   // V
)

type Rule string

const (
	RuleThermal     Rule = "thermal"
	RuleSubZero     Rule = "sub-zero"
	RulePlating     Rule = "plating"
	RuleOvervoltage Rule = "overvoltage"
)

// Inputs are the terminal-state values a verdict is computed from.
type Inputs struct {
	FinalVoltage       float64 // V
	MaxTemperature     float64 // °C
	AnodePotential     float64 // V, end of horizon
	AmbientTemperature float64 // °C
}

// Verdict is safe when no rule fired. Reasons and Triggered are parallel and
// follow rule evaluation order.
type Verdict struct {
	Safe      bool     `json:"safe"`
	Reasons   []string `json:"reasons"`
	Triggered []Rule   `json:"triggered"`
}

type check struct {
	rule    Rule
	fires   func(Inputs) bool
	message func(Inputs) string
}

// evaluation order is part of the contract
var checks = []check{
	{
		rule:  RuleThermal,
		fires: func(in Inputs) bool { return in.MaxTemperature > MaxCellTemperature },
		message: func(in Inputs) string {
			return fmt.Sprintf("Thermal Violation: %.1f°C (Limit: %.0f°C).", in.MaxTemperature, MaxCellTemperature)
		},
	},
	{
		rule:    RuleSubZero,
		fires:   func(in Inputs) bool { return in.AmbientTemperature < MinAmbientTemperature },
		message: func(Inputs) string { return "Sub-zero hazard: High risk of lithium plating." },
	},
	{
		rule:  RulePlating,
		fires: func(in Inputs) bool { return in.AnodePotential < MinAnodePotential },
		message: func(in Inputs) string {
			return fmt.Sprintf("Plating Risk: Anode Potential at %.1f mV.", in.AnodePotential*1000)
		},
	},
	{
		rule:  RuleOvervoltage,
		fires: func(in Inputs) bool { return in.FinalVoltage > MaxTerminalVoltage },
		message: func(in Inputs) string {
			return fmt.Sprintf("Overvoltage: %.2fV (Limit: %.1fV).", in.FinalVoltage, MaxTerminalVoltage)
		},
	},
}

// Assess classifies a completed simulation. All rules are evaluated; none
// short-circuits another.
func Assess(finalVoltage, maxTemperature, anodePotential, ambientTemperature float64) Verdict {
	return Evaluate(Inputs{
		FinalVoltage:       finalVoltage,
		MaxTemperature:     maxTemperature,
		AnodePotential:     anodePotential,
		AmbientTemperature: ambientTemperature,
	})
}

func Evaluate(in Inputs) Verdict {
	v := Verdict{Reasons: []string{}, Triggered: []Rule{}}
	for _, c := range checks {
		if c.fires(in) {
			v.Reasons = append(v.Reasons, c.message(in))
			v.Triggered = append(v.Triggered, c.rule)
		}
	}
	v.Safe = len(v.Reasons) == 0
	return v
}

// Rules lists the rules in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(checks))
	for i, c := range checks {
		out[i] = c.rule
	}
	return out
}

// Has reports whether the rule fired.
func (v Verdict) Has(r Rule) bool {
	for _, t := range v.Triggered {
		if t == r {
			return true
		}
	}
	return false
}
