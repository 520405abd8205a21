package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/metrics"
	"github.com/san-kum/cellsim/internal/safety"
)

const (
	Title            = "🔋 Electrode Geometry & Battery Charging Stability Simulation"
	GridHeading      = "Internal Electrochemical State Analysis"
	VerdictHeading   = "🛡️ BMS Safety Assessment"
	SafeHeadline     = "SAFE TO CHARGE:"
	UnsafeHeadline   = "CHARGING UNSAFE:"
	DivergencePrefix = "⚠️ Physics Divergence: "

	minPanelWidth = 28
	plotHeight    = 6
	axisColumns   = 12 // y labels at three decimals plus the axis
)

// Metric is one card in the row above the grid.
type Metric struct {
	Label string
	Value string
}

func Metrics(s metrics.Summary) []Metric {
	return []Metric{
		{"Terminal Voltage", fmt.Sprintf("%.2f V", s.FinalVoltage)},
		{"Max Cell Temp", fmt.Sprintf("%.1f °C", s.MaxTemperature)},
		{"Anode Potential", fmt.Sprintf("%.4f V", s.AnodePotential)},
		{"Ambient Temp", fmt.Sprintf("%g °C", s.AmbientTemperature)},
		{"Cooling Coeff.", fmt.Sprintf("%g W/m²K", s.CoolingCoefficient)},
	}
}

// DivergenceText is the error state shown in place of results.
func DivergenceText(message string) string {
	return DivergencePrefix + message
}

// VerdictMarkdown formats a verdict as a markdown block.
func VerdictMarkdown(v safety.Verdict) string {
	var b strings.Builder
	if v.Safe {
		b.WriteString("✅ **" + SafeHeadline + "** Parameters are within safe operation boundaries.\n")
		return b.String()
	}
	b.WriteString("❌ **" + UnsafeHeadline + "** The BMS detected safety violations:\n\n")
	for _, r := range v.Reasons {
		b.WriteString("- " + r + "\n")
	}
	return b.String()
}

func renderMetrics(ms []Metric, st styles, width int) string {
	cardWidth := width/len(ms) - 2
	if cardWidth < 16 {
		cardWidth = 16
	}
	cards := make([]string, len(ms))
	for i, m := range ms {
		body := st.cardLabel.Render(m.Label) + "\n" + st.cardValue.Render(m.Value)
		cards[i] = st.card.Width(cardWidth).Render(body)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// PlotPanel draws one grid panel as plain text.
func PlotPanel(p battery.Panel, b *battery.SeriesBundle, width, height int) string {
	minutes := b.Minutes()
	end := 0.0
	if len(minutes) > 0 {
		end = minutes[len(minutes)-1]
	}
	return asciigraph.Plot(b.Values(p.Series),
		asciigraph.Width(width),
		asciigraph.Height(height),
		asciigraph.Precision(3),
		asciigraph.Caption(fmt.Sprintf("%s 0 to %.1f", battery.TimeAxisLabel, end)),
	)
}

func renderGrid(b *battery.SeriesBundle, width int, st styles) string {
	panelWidth := width / battery.GridCols
	if panelWidth < minPanelWidth {
		panelWidth = minPanelWidth
	}
	plotWidth := panelWidth - axisColumns - 4
	if plotWidth < 8 {
		plotWidth = 8
	}

	panels := battery.Panels()
	rows := make([]string, 0, battery.GridRows)
	for r := 0; r < battery.GridRows; r++ {
		cells := make([]string, 0, battery.GridCols)
		for c := 0; c < battery.GridCols; c++ {
			p := panels[r*battery.GridCols+c]
			body := st.panelTitle.Render(p.Title) + "\n" +
				st.caption.Render(p.YLabel) + "\n" +
				st.graph.Render(PlotPanel(p, b, plotWidth, plotHeight))
			cells = append(cells, st.panel.Width(panelWidth-2).Render(body))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderVerdict(v safety.Verdict, st styles) string {
	var b strings.Builder
	if v.Safe {
		b.WriteString(st.safe.Render("✅ "+SafeHeadline) + " " + st.value.Render("Parameters are within safe operation boundaries."))
		return b.String()
	}
	b.WriteString(st.unsafe.Render("❌ "+UnsafeHeadline) + " " + st.value.Render("The BMS detected safety violations:"))
	for _, r := range v.Reasons {
		b.WriteString("\n  " + st.reason.Render("- "+r))
	}
	return b.String()
}

func renderDivergence(message string, st styles) string {
	return st.divergence.Render(DivergenceText(message))
}
