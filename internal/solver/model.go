package solver

import (
	"fmt"
	"math"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/dynamo"
)

// State layout of the reduced-order cell.
const (
	iAnodeStoich = iota
	iAnodeSurface
	iCathodeStoich
	iCathodeSurface
	iElectrolyte
	iTemperature
	iPlated
	stateDim
)

// cellModel is a single-particle style reduction: one averaged particle per
// electrode with a first-order lag between bulk and surface stoichiometry,
// one electrolyte polarization state on the anode side, Butler-Volmer
// kinetics and a lumped thermal balance. It implements dynamo.System with the
// applied charge current as the only input.
type cellModel struct {
	cell   cell
	params battery.Parameters

	ambient float64
	cooling float64

	anodeCapacity   float64 // C
	cathodeCapacity float64
	anodeSurface    float64 // total reactive area, m2
	cathodeSurface  float64
	anodeRadius     float64
}

// operatingPoint holds every algebraic quantity derived from one state.
type operatingPoint struct {
	anodeFlux        float64 // A/m2 of particle surface
	cathodeFlux      float64
	anodeOverpot     float64 // V, magnitude
	cathodeOverpot   float64
	anodePotential   float64 // V vs Li at the separator
	cathodePotential float64
	voltage          float64
	heat             float64 // W
	intercalating    float64 // A
	plating          float64 // A
	electrolyte      float64 // mol/m3
	anodeStoich      float64 // surface
	cathodeStoich    float64
}

func newCellModel(c cell, p battery.Parameters) *cellModel {
	anodeSpecific := 3 * p.ActiveMaterialFraction / p.ParticleRadius
	cathodeSpecific := 3 * c.cathode.solidFraction / c.cathode.particleRadius
	return &cellModel{
		cell:    c,
		params:  p,
		ambient: p.AmbientKelvin(),
		cooling: p.CoolingCoefficient,
		anodeCapacity: faraday * electrodeArea * p.AnodeThickness *
			p.ActiveMaterialFraction * c.anode.maxConcentration,
		cathodeCapacity: faraday * electrodeArea * p.CathodeThickness *
			c.cathode.solidFraction * c.cathode.maxConcentration,
		anodeSurface:   electrodeArea * anodeSpecific * p.AnodeThickness,
		cathodeSurface: electrodeArea * cathodeSpecific * p.CathodeThickness,
		anodeRadius:    p.ParticleRadius,
	}
}

func (m *cellModel) StateDim() int   { return stateDim }
func (m *cellModel) ControlDim() int { return 1 }

func (m *cellModel) initialState(soc float64) dynamo.State {
	x := make(dynamo.State, stateDim)
	x[iAnodeStoich] = m.cell.anode.stoichAt(soc)
	x[iCathodeStoich] = m.cell.cathode.stoichAt(soc)
	x[iTemperature] = m.ambient
	return x
}

func (m *cellModel) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	current := u[0]
	op := m.evaluate(x, current, t)
	temp := x[iTemperature]
	an, ca := m.cell.anode, m.cell.cathode

	anodeDiff := an.diffusivity * arrhenius(temp, diffusionActivation)
	cathodeDiff := ca.diffusivity * arrhenius(temp, diffusionActivation)

	anodeLag := op.anodeFlux * m.anodeRadius / (5 * faraday * anodeDiff * an.maxConcentration)
	anodeTau := m.anodeRadius * m.anodeRadius / (15 * anodeDiff)
	cathodeLag := -op.cathodeFlux * ca.particleRadius / (5 * faraday * cathodeDiff * ca.maxConcentration)
	cathodeTau := ca.particleRadius * ca.particleRadius / (15 * cathodeDiff)

	effDiff := electrolyteDiff * arrhenius(temp, transportActivation) * math.Pow(an.porosity, 1.5)
	thickness := m.params.AnodeThickness
	polarization := (1 - transferenceNumber) * op.intercalating * thickness /
		(6 * faraday * electrodeArea * effDiff)
	electrolyteTau := an.porosity * thickness * thickness / (2 * effDiff)

	dx := make(dynamo.State, stateDim)
	dx[iAnodeStoich] = op.intercalating / m.anodeCapacity
	dx[iAnodeSurface] = (anodeLag - x[iAnodeSurface]) / anodeTau
	dx[iCathodeStoich] = -current / m.cathodeCapacity
	dx[iCathodeSurface] = (cathodeLag - x[iCathodeSurface]) / cathodeTau
	dx[iElectrolyte] = (polarization - x[iElectrolyte]) / electrolyteTau
	dx[iTemperature] = (op.heat - m.cooling*coolingArea*(temp-m.ambient)) / heatCapacity
	dx[iPlated] = op.plating
	return dx
}

func (m *cellModel) evaluate(x dynamo.State, current, t float64) operatingPoint {
	an, ca := m.cell.anode, m.cell.cathode
	temp := x[iTemperature]
	thermalVoltage := 2 * gasConstant * temp / faraday
	kinetics := arrhenius(temp, kineticsActivation)

	op := operatingPoint{
		electrolyte:   initialElectrolyte - x[iElectrolyte],
		anodeStoich:   x[iAnodeStoich] + x[iAnodeSurface],
		cathodeStoich: x[iCathodeStoich] + x[iCathodeSurface],
	}
	anodeElectrolyte := math.Max(op.electrolyte, 1)
	cathodeElectrolyte := math.Max(initialElectrolyte+x[iElectrolyte], 1)
	anodeSurf := clampStoich(op.anodeStoich)
	cathodeSurf := clampStoich(op.cathodeStoich)

	film := 0.0
	if m.cell.filmGrowth {
		film = filmResistance * math.Sqrt(math.Max(t, 0)/battery.HorizonSeconds)
	}

	anodeOCP := an.ocp(anodeSurf)
	anodeExchange := an.rateConstant * kinetics * math.Sqrt(anodeElectrolyte) *
		math.Sqrt(anodeSurf*an.maxConcentration*(1-anodeSurf)*an.maxConcentration)
	anode := func(i float64) (flux, overpot, potential float64) {
		flux = i / m.anodeSurface
		overpot = thermalVoltage * math.Asinh(flux/(2*anodeExchange))
		sep := thermalVoltage * math.Asinh(separatorCurrentFactor*flux/(2*anodeExchange))
		potential = anodeOCP - sep - i*film
		return flux, overpot, potential
	}

	op.intercalating = current
	op.anodeFlux, op.anodeOverpot, op.anodePotential = anode(current)
	if m.cell.plating && op.anodePotential < 0 {
		op.plating = math.Min(platingCap, -op.anodePotential/platingScale) * current
		op.intercalating = current - op.plating
		op.anodeFlux, op.anodeOverpot, op.anodePotential = anode(op.intercalating)
	}

	op.cathodeFlux = current / m.cathodeSurface
	cathodeExchange := ca.rateConstant * kinetics * math.Sqrt(cathodeElectrolyte) *
		math.Sqrt(cathodeSurf*ca.maxConcentration*(1-cathodeSurf)*ca.maxConcentration)
	op.cathodeOverpot = thermalVoltage * math.Asinh(op.cathodeFlux/(2*cathodeExchange))

	cond := electrolyteCond * arrhenius(temp, transportActivation)
	ionic := (m.params.AnodeThickness/(3*cond*math.Pow(an.porosity, 1.5)) +
		separatorThickness/(cond*math.Pow(separatorPorosity, 1.5)) +
		m.params.CathodeThickness/(3*cond*math.Pow(ca.porosity, 1.5))) / electrodeArea

	ohmic := m.cell.seriesResistance + film
	op.cathodePotential = ca.ocp(cathodeSurf) - anodeOCP +
		op.cathodeOverpot + op.anodeOverpot + current*ionic
	op.voltage = op.cathodePotential + current*ohmic
	op.heat = current*(op.anodeOverpot+op.cathodeOverpot) + current*current*(ionic+ohmic)
	return op
}

// guard ends the run at the voltage cut-off and reports non-physical states
// as solver failures.
func (m *cellModel) guard(x dynamo.State, u dynamo.Control, t float64) error {
	bounds := []struct {
		name string
		v    float64
	}{
		{"negative particle stoichiometry", x[iAnodeStoich]},
		{"negative particle surface stoichiometry", x[iAnodeStoich] + x[iAnodeSurface]},
		{"positive particle stoichiometry", x[iCathodeStoich]},
		{"positive particle surface stoichiometry", x[iCathodeStoich] + x[iCathodeSurface]},
	}
	for _, b := range bounds {
		if b.v <= 0 || b.v >= 1 {
			return battery.Crash(fmt.Errorf("stoichiometric saturation: %s %.4f at t=%.0fs", b.name, b.v, t))
		}
	}
	if ce := initialElectrolyte - x[iElectrolyte]; ce <= 0 {
		return battery.Crash(fmt.Errorf("mass transport limit: electrolyte depleted (%.1f mol/m3) at t=%.0fs", ce, t))
	}
	if v := m.evaluate(x, u[0], t).voltage; v >= battery.UpperVoltageCutoff {
		return dynamo.Terminate(fmt.Sprintf("upper voltage cut-off %.2fV reached at t=%.0fs", v, t))
	}
	return nil
}

func clampStoich(v float64) float64 {
	const eps = 1e-6
	return math.Min(math.Max(v, eps), 1-eps)
}

// recorder turns sampled states into the named output series.
type recorder struct {
	model  *cellModel
	series map[battery.SeriesName][]float64
}

func newRecorder(m *cellModel) *recorder {
	r := &recorder{model: m, series: make(map[battery.SeriesName][]float64)}
	for _, name := range battery.SeriesNames() {
		r.series[name] = nil
	}
	return r
}

func (r *recorder) OnSample(x dynamo.State, u dynamo.Control, t float64) {
	op := r.model.evaluate(x, u[0], t)
	an, ca := r.model.cell.anode, r.model.cell.cathode
	r.add(battery.SeriesTerminalVoltage, op.voltage)
	r.add(battery.SeriesCellTemperature, x[iTemperature])
	r.add(battery.SeriesElectrolyteConcentration, op.electrolyte)
	r.add(battery.SeriesInterfacialCurrent, -op.anodeFlux)
	r.add(battery.SeriesAnodePotential, op.anodePotential)
	r.add(battery.SeriesCathodePotential, op.cathodePotential)
	r.add(battery.SeriesAnodeSurfaceConcentration, op.anodeStoich*an.maxConcentration)
	r.add(battery.SeriesCathodeSurfaceConcentration, op.cathodeStoich*ca.maxConcentration)
}

func (r *recorder) add(name battery.SeriesName, v float64) {
	r.series[name] = append(r.series[name], v)
}
