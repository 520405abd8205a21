package config

import (
	"sort"

	"github.com/san-kum/cellsim/internal/battery"
)

// Presets are named starting points for the controls, in display units.
var Presets = map[string]ParametersConfig{
	"nominal": FromParameters(battery.DefaultParameters()),
	"fast-charge": {
		Chemistry: string(battery.Chen2020), ChargeCurrent: 15, AmbientTemperature: 25,
		CoolingCoefficient: 10, AnodeThickness: 100, CathodeThickness: 100,
		ParticleRadius: 5, ActiveMaterialFraction: 0.75,
	},
	"cold-start": {
		Chemistry: string(battery.Chen2020), ChargeCurrent: 5, AmbientTemperature: -5,
		CoolingCoefficient: 10, AnodeThickness: 100, CathodeThickness: 100,
		ParticleRadius: 5, ActiveMaterialFraction: 0.75,
	},
	"hot-ambient": {
		Chemistry: string(battery.Chen2020), ChargeCurrent: 7.5, AmbientTemperature: 45,
		CoolingCoefficient: 5, AnodeThickness: 100, CathodeThickness: 100,
		ParticleRadius: 5, ActiveMaterialFraction: 0.75,
	},
	"thin-electrode": {
		Chemistry: string(battery.OKane2022), ChargeCurrent: 3, AmbientTemperature: 25,
		CoolingCoefficient: 20, AnodeThickness: 60, CathodeThickness: 60,
		ParticleRadius: 3, ActiveMaterialFraction: 0.8,
	},
}

func GetPreset(name string) (ParametersConfig, bool) {
	p, ok := Presets[name]
	return p, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset replaces the parameter defaults with a named preset.
func (c *Config) ApplyPreset(name string) bool {
	p, ok := GetPreset(name)
	if !ok {
		return false
	}
	c.Parameters = p
	return true
}
