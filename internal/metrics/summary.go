package metrics

import (
	"math"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/safety"
)

// Summary is what the dashboard shows above the plot grid, plus a few
// derived figures used by sweeps and stored runs. Temperatures are in °C.
type Summary struct {
	FinalVoltage       float64 `json:"final_voltage"`
	MaxTemperature     float64 `json:"max_temperature"`
	AnodePotential     float64 `json:"anode_potential"`
	AmbientTemperature float64 `json:"ambient_temperature"`
	CoolingCoefficient float64 `json:"cooling_coefficient"`

	MinAnodePotential float64 `json:"min_anode_potential"`
	TimeOverThermal   float64 `json:"time_over_thermal_limit"`
	ChargeIn          float64 `json:"charge_in_ah"`
	EnergyIn          float64 `json:"energy_in_wh"`
	Duration          float64 `json:"duration"`
}

// Summarize extracts the safety inputs from a bundle. The ambient temperature
// and cooling coefficient are echoed from the request.
func Summarize(b *battery.SeriesBundle, p battery.Parameters) Summary {
	times := b.Time()
	celsius := b.Values(battery.SeriesCellTemperature)
	for i := range celsius {
		celsius[i] -= battery.KelvinOffset
	}
	voltage := b.Values(battery.SeriesTerminalVoltage)
	power := make([]float64, len(voltage))
	for i, v := range voltage {
		power[i] = v * math.Abs(p.ChargeCurrent)
	}

	return Summary{
		FinalVoltage:       Feed(NewFinal("final_voltage"), times, voltage),
		MaxTemperature:     Feed(NewMax("max_temperature"), times, celsius),
		AnodePotential:     Feed(NewFinal("anode_potential"), times, b.Values(battery.SeriesAnodePotential)),
		AmbientTemperature: p.AmbientTemperature,
		CoolingCoefficient: p.CoolingCoefficient,
		MinAnodePotential:  Feed(NewMin("min_anode_potential"), times, b.Values(battery.SeriesAnodePotential)),
		TimeOverThermal:    Feed(NewTimeAbove("time_over_thermal_limit", safety.MaxCellTemperature), times, celsius),
		ChargeIn:           math.Abs(p.ChargeCurrent) * (b.EndTime() - times[0]) / 3600,
		EnergyIn:           Feed(NewIntegral("energy_in", 1.0/3600), times, power),
		Duration:           b.EndTime(),
	}
}

// Verdict runs the safety engine on the summary.
func (s Summary) Verdict() safety.Verdict {
	return safety.Assess(s.FinalVoltage, s.MaxTemperature, s.AnodePotential, s.AmbientTemperature)
}
