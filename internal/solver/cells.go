package solver

import (
	"math"

	"github.com/san-kum/cellsim/internal/battery"
)

// Physical constants.
const (
	faraday       = 96485.33212
	gasConstant   = 8.314462618
	referenceTemp = 298.15
)

// Cell geometry and transport shared by every parameter set.
const (
	electrodeArea       = 0.1027 // m2
	initialElectrolyte  = 1000.0 // mol/m3
	transferenceNumber  = 0.2594
	electrolyteDiff     = 1.77e-10 // m2/s
	electrolyteCond     = 0.95     // S/m
	separatorThickness  = 12e-6
	separatorPorosity   = 0.47
	heatCapacity        = 70.0    // J/K
	coolingArea         = 0.00531 // m2
	kineticsActivation  = 35000.0 // J/mol
	diffusionActivation = 30000.0
	transportActivation = 17000.0
	// Plating diverts current once the anode drops below 0 V, saturating
	// at platingCap of the applied current.
	platingScale = 0.02
	platingCap   = 0.9
	// Film resistance after a full horizon of growth.
	filmResistance = 0.002 // Ohm
	// Current concentrates near the separator.
	separatorCurrentFactor = 1.25
)

type electrode struct {
	maxConcentration float64 // mol/m3
	diffusivity      float64 // m2/s at the reference temperature
	rateConstant     float64 // A/m2 (m3/mol)^1.5
	porosity         float64
	// Fixed design of the electrode not exposed as a control.
	solidFraction  float64
	particleRadius float64
	// Stoichiometry at 0% and 100% state of charge.
	emptyStoich float64
	fullStoich  float64
	ocp         func(float64) float64
}

func (e electrode) stoichAt(soc float64) float64 {
	return e.emptyStoich + soc*(e.fullStoich-e.emptyStoich)
}

type cell struct {
	anode            electrode
	cathode          electrode
	seriesResistance float64 // Ohm
	filmGrowth       bool
	plating          bool
}

var cells = map[battery.Chemistry]cell{
	battery.Chen2020: {
		anode:            graphite(33133, 3.3e-14, 6.48e-7, 0.25, 0.0279, 0.9014),
		cathode:          nmc(),
		seriesResistance: 0.008,
	},
	battery.OKane2022: {
		anode:            graphite(33133, 3.3e-14, 6.48e-7, 0.25, 0.0279, 0.9014),
		cathode:          nmc(),
		seriesResistance: 0.008,
		filmGrowth:       true,
		plating:          true,
	},
	battery.Ai2020: {
		anode:            graphite(28700, 3.9e-14, 1.0e-6, 0.33, 0.02, 0.85),
		cathode:          lfp(),
		seriesResistance: 0.012,
	},
}

func cellFor(c battery.Chemistry) (cell, bool) {
	cl, ok := cells[c]
	if !ok {
		return cell{}, false
	}
	cl.filmGrowth = cl.filmGrowth && c.Options()["SEI"] != ""
	cl.plating = cl.plating && c.Options()["lithium plating"] != ""
	return cl, true
}

func graphite(cmax, diff, k, porosity, empty, full float64) electrode {
	return electrode{
		maxConcentration: cmax,
		diffusivity:      diff,
		rateConstant:     k,
		porosity:         porosity,
		emptyStoich:      empty,
		fullStoich:       full,
		ocp:              graphiteOCP,
	}
}

func nmc() electrode {
	return electrode{
		maxConcentration: 63104,
		diffusivity:      4e-15,
		rateConstant:     3.42e-6,
		porosity:         0.335,
		solidFraction:    0.665,
		particleRadius:   5.22e-6,
		emptyStoich:      0.9084,
		fullStoich:       0.2661,
		ocp:              nmcOCP,
	}
}

func lfp() electrode {
	return electrode{
		maxConcentration: 22806,
		diffusivity:      5.9e-18,
		rateConstant:     6e-7,
		porosity:         0.3,
		solidFraction:    0.52,
		particleRadius:   5e-8,
		emptyStoich:      0.95,
		fullStoich:       0.05,
		ocp:              lfpOCP,
	}
}

func graphiteOCP(x float64) float64 {
	return 1.9793*math.Exp(-39.3631*x) + 0.2482 -
		0.0909*math.Tanh(29.8538*(x-0.1234)) -
		0.04478*math.Tanh(14.9159*(x-0.2769)) -
		0.0205*math.Tanh(30.4444*(x-0.6103))
}

func nmcOCP(y float64) float64 {
	return -0.8090*y + 4.4875 -
		0.0428*math.Tanh(18.5138*(y-0.5542)) -
		17.7326*math.Tanh(15.7890*(y-0.3117)) +
		17.5842*math.Tanh(15.9308*(y-0.3120))
}

// lfpOCP is a flat plateau with exponential walls at both ends.
func lfpOCP(y float64) float64 {
	return 3.4245 - 0.06*(y-0.5) + 0.25*math.Exp(-45*y) - 0.6*math.Exp(-40*(1-y))
}

func arrhenius(temp, activation float64) float64 {
	return math.Exp(activation / gasConstant * (1/referenceTemp - 1/temp))
}
