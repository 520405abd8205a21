package battery

import (
	"fmt"
	"math"
	"strings"
)

const (
	// HorizonSeconds is the fixed simulated window (15 minutes).
	HorizonSeconds = 900.0
	// UpperVoltageCutoff ends the charge when the terminal voltage reaches it.
	UpperVoltageCutoff = 5.0
	// ContactResistance is forwarded to the solver in Ohm.m2.
	ContactResistance = 0.02
	KelvinOffset      = 273.15
)

// Parameters is one complete simulation request. Lengths are in metres.
type Parameters struct {
	Chemistry              Chemistry `json:"chemistry" yaml:"chemistry"`
	ChargeCurrent          float64   `json:"charge_current" yaml:"charge_current"`
	AmbientTemperature     float64   `json:"ambient_temperature" yaml:"ambient_temperature"`
	CoolingCoefficient     float64   `json:"cooling_coefficient" yaml:"cooling_coefficient"`
	AnodeThickness         float64   `json:"anode_thickness" yaml:"anode_thickness"`
	CathodeThickness       float64   `json:"cathode_thickness" yaml:"cathode_thickness"`
	ParticleRadius         float64   `json:"particle_radius" yaml:"particle_radius"`
	ActiveMaterialFraction float64   `json:"active_material_fraction" yaml:"active_material_fraction"`
}

func DefaultParameters() Parameters {
	p := Parameters{Chemistry: Chen2020}
	for _, c := range controls {
		p = p.With(c.Key, c.Default)
	}
	return p
}

// Micrometres converts a slider value in μm to metres.
func Micrometres(um float64) float64 {
	return um / 1e6
}

// Validate rejects non-physical values. The error is a *SolverFailure so the
// dashboard shows it the same way as a diverged solve.
func (p Parameters) Validate() error {
	if !p.Chemistry.Valid() {
		return NewSolverFailure("unknown chemistry %q", p.Chemistry)
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"charge current", p.ChargeCurrent},
		{"anode thickness", p.AnodeThickness},
		{"cathode thickness", p.CathodeThickness},
		{"particle radius", p.ParticleRadius},
		{"active material fraction", p.ActiveMaterialFraction},
	}
	for _, c := range checks {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || c.v <= 0 {
			return NewSolverFailure("non-physical %s: %g", c.name, c.v)
		}
	}
	if p.ActiveMaterialFraction > 1 {
		return NewSolverFailure("non-physical active material fraction: %g (must be in (0, 1])", p.ActiveMaterialFraction)
	}
	if math.IsNaN(p.CoolingCoefficient) || p.CoolingCoefficient < 0 {
		return NewSolverFailure("non-physical cooling coefficient: %g", p.CoolingCoefficient)
	}
	if math.IsNaN(p.AmbientTemperature) || p.AmbientKelvin() <= 0 {
		return NewSolverFailure("non-physical ambient temperature: %g°C", p.AmbientTemperature)
	}
	return nil
}

func (p Parameters) AmbientKelvin() float64 {
	return p.AmbientTemperature + KelvinOffset
}

// Overrides maps the parameters onto the simulation library's parameter names.
// Current is negative because the library treats discharge as positive.
func (p Parameters) Overrides() map[string]float64 {
	return map[string]float64{
		"Upper voltage cut-off [V]":                          UpperVoltageCutoff,
		"Ambient temperature [K]":                            p.AmbientKelvin(),
		"Current function [A]":                               -math.Abs(p.ChargeCurrent),
		"Negative electrode thickness [m]":                   p.AnodeThickness,
		"Positive electrode thickness [m]":                   p.CathodeThickness,
		"Negative particle radius [m]":                       p.ParticleRadius,
		"Negative electrode active material volume fraction": p.ActiveMaterialFraction,
		"Total heat transfer coefficient [W.m-2.K-1]":        p.CoolingCoefficient,
		"Contact resistance [Ohm.m2]":                        ContactResistance,
	}
}

// Get returns the value of a control in its display unit.
func (p Parameters) Get(key string) float64 {
	switch key {
	case KeyChargeCurrent:
		return p.ChargeCurrent
	case KeyAmbientTemperature:
		return p.AmbientTemperature
	case KeyCoolingCoefficient:
		return p.CoolingCoefficient
	case KeyAnodeThickness:
		return roundMicro(p.AnodeThickness)
	case KeyCathodeThickness:
		return roundMicro(p.CathodeThickness)
	case KeyParticleRadius:
		return roundMicro(p.ParticleRadius)
	case KeyActiveMaterialFraction:
		return p.ActiveMaterialFraction
	}
	return math.NaN()
}

// With returns a copy with the control set from a display-unit value.
// Unknown keys leave the parameters unchanged.
func (p Parameters) With(key string, v float64) Parameters {
	switch key {
	case KeyChargeCurrent:
		p.ChargeCurrent = v
	case KeyAmbientTemperature:
		p.AmbientTemperature = v
	case KeyCoolingCoefficient:
		p.CoolingCoefficient = v
	case KeyAnodeThickness:
		p.AnodeThickness = Micrometres(v)
	case KeyCathodeThickness:
		p.CathodeThickness = Micrometres(v)
	case KeyParticleRadius:
		p.ParticleRadius = Micrometres(v)
	case KeyActiveMaterialFraction:
		p.ActiveMaterialFraction = v
	}
	return p
}

// CheckRanges reports every control that lies outside its slider range.
func (p Parameters) CheckRanges() error {
	var bad []string
	for _, c := range controls {
		v := p.Get(c.Key)
		if !c.Contains(v) {
			bad = append(bad, fmt.Sprintf("%s=%g (range %g-%g %s)", c.Key, v, c.Min, c.Max, c.Unit))
		}
	}
	if !p.Chemistry.Valid() {
		bad = append(bad, fmt.Sprintf("chemistry=%q", p.Chemistry))
	}
	if len(bad) > 0 {
		return fmt.Errorf("parameters out of range: %s", strings.Join(bad, ", "))
	}
	return nil
}

func roundMicro(m float64) float64 {
	return math.Round(m*1e6*1e6) / 1e6
}
