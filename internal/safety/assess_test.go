package safety

import (
	"math/rand"
	"testing"
)

func TestEvaluateMatchesAssess(t *testing.T) {
	in := Inputs{FinalVoltage: 4.1, MaxTemperature: 51, AnodePotential: 0.01, AmbientTemperature: 20}
	a := Assess(in.FinalVoltage, in.MaxTemperature, in.AnodePotential, in.AmbientTemperature)
	e := Evaluate(in)

	if a.Safe != e.Safe || len(a.Reasons) != len(e.Reasons) {
		t.Fatalf("Assess and Evaluate disagree: %+v vs %+v", a, e)
	}
	if !a.Has(RuleThermal) || a.Has(RulePlating) {
		t.Errorf("unexpected triggered rules: %v", a.Triggered)
	}
}

// Randomized inputs inside the safe region never produce a reason.
func TestSafeRegion(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		v := Assess(
			rng.Float64()*MaxTerminalVoltage,
			-20+rng.Float64()*(MaxCellTemperature+20),
			MinAnodePotential+rng.Float64(),
			rng.Float64()*55,
		)
		if !v.Safe || len(v.Reasons) != 0 {
			t.Fatalf("iteration %d: expected safe verdict, got %+v", i, v)
		}
	}
}

// Randomized inputs that break exactly one rule produce exactly one reason.
func TestSingleViolation(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	safe := Inputs{FinalVoltage: 4.2, MaxTemperature: 30, AnodePotential: 0.05, AmbientTemperature: 25}

	for i := 0; i < 200; i++ {
		in := safe
		want := Rules()[i%4]
		switch want {
		case RuleThermal:
			in.MaxTemperature = MaxCellTemperature + 0.01 + rng.Float64()*40
		case RuleSubZero:
			in.AmbientTemperature = -0.01 - rng.Float64()*5
		case RulePlating:
			in.AnodePotential = MinAnodePotential - 0.0001 - rng.Float64()*0.1
		case RuleOvervoltage:
			in.FinalVoltage = MaxTerminalVoltage + 0.001 + rng.Float64()
		}

		v := Evaluate(in)
		if v.Safe || len(v.Reasons) != 1 || v.Triggered[0] != want {
			t.Fatalf("iteration %d: expected only %s, got %+v", i, want, v)
		}
	}
}
