package battery

import "math"

const (
	KeyChargeCurrent          = "charge_current"
	KeyAmbientTemperature     = "ambient_temperature"
	KeyCoolingCoefficient     = "cooling_coefficient"
	KeyAnodeThickness         = "anode_thickness"
	KeyCathodeThickness       = "cathode_thickness"
	KeyParticleRadius         = "particle_radius"
	KeyActiveMaterialFraction = "active_material_fraction"
)

// Control is a range-constrained user input.
type Control struct {
	Key     string
	Label   string
	Unit    string
	Section string
	Min     float64
	Max     float64
	Step    float64
	Default float64
	Caption string
}

var controls = []Control{
	{Key: KeyChargeCurrent, Label: "Charge Current", Unit: "A", Section: "Operational", Min: 0.1, Max: 15.0, Step: 0.1, Default: 7.5},
	{Key: KeyAmbientTemperature, Label: "Ambient Temp", Unit: "°C", Section: "Operational", Min: -5, Max: 55, Step: 1, Default: 25},
	{Key: KeyCoolingCoefficient, Label: "Cooling Coefficient", Unit: "W/m²K", Section: "Thermal Management", Min: 0, Max: 50, Step: 1, Default: 10,
		Caption: "Lower value = higher heat buildup."},
	{Key: KeyAnodeThickness, Label: "Anode Thickness", Unit: "μm", Section: "Electrode Design", Min: 50, Max: 200, Step: 1, Default: 100},
	{Key: KeyCathodeThickness, Label: "Cathode Thickness", Unit: "μm", Section: "Electrode Design", Min: 50, Max: 200, Step: 1, Default: 100},
	{Key: KeyParticleRadius, Label: "Neg. Particle Radius", Unit: "μm", Section: "Electrode Design", Min: 1, Max: 15, Step: 1, Default: 5},
	{Key: KeyActiveMaterialFraction, Label: "Active Material Fraction", Unit: "", Section: "Electrode Design", Min: 0.5, Max: 0.95, Step: 0.01, Default: 0.75},
}

// Controls returns the slider definitions in display order.
func Controls() []Control {
	out := make([]Control, len(controls))
	copy(out, controls)
	return out
}

func LookupControl(key string) (Control, bool) {
	for _, c := range controls {
		if c.Key == key {
			return c, true
		}
	}
	return Control{}, false
}

func (c Control) Contains(v float64) bool {
	const eps = 1e-9
	return !math.IsNaN(v) && v >= c.Min-eps && v <= c.Max+eps
}

// Clamp pins v into range and snaps it to the control's step grid.
func (c Control) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return c.Default
	}
	if c.Step > 0 {
		v = c.Min + math.Round((v-c.Min)/c.Step)*c.Step
		// keep the slider values free of accumulated float noise
		v = math.Round(v*1e6) / 1e6
	}
	return math.Max(c.Min, math.Min(c.Max, v))
}

// Nudge moves v by n steps and clamps the result.
func (c Control) Nudge(v float64, n int) float64 {
	return c.Clamp(v + float64(n)*c.Step)
}
