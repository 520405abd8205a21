package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/cellsim/internal/battery"
)

// Point is one plotted sample.
type Point struct{ X, Y float64 }

const (
	background  = "#0e1117"
	lineColor   = "#00d4ff"
	textColor   = "#fafafa"
	gridColor   = "#2a2f3a"
	panelWidth  = 360
	panelHeight = 260
	panelMargin = 48
)

// PanelPoints pairs the time axis in minutes with the panel's series.
func PanelPoints(b *battery.SeriesBundle, name battery.SeriesName) []Point {
	minutes := b.Minutes()
	values := b.Values(name)
	points := make([]Point, 0, len(values))
	for i, v := range values {
		points = append(points, Point{X: minutes[i], Y: v})
	}
	return points
}

// TrajectoryToSVG creates a standalone SVG line chart.
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background))
	sb.WriteString(linePath(points, 0, 0, float64(width), float64(height), strokeColor))
	sb.WriteString("</svg>")
	return sb.String()
}

// GridToSVG lays out every panel of the bundle in the 2×4 grid with titles,
// axis labels and min/max ticks to three decimals.
func GridToSVG(w io.Writer, b *battery.SeriesBundle, title string) error {
	width := battery.GridCols * (panelWidth + panelMargin)
	height := battery.GridRows*(panelHeight+panelMargin*2) + panelMargin

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">
<rect width="100%%" height="100%%" fill="%s"/>
<text x="%d" y="%d" fill="%s" font-size="18">%s</text>
`, width, height, width, height, background, panelMargin/2, panelMargin/2+6, textColor, escape(title)))

	for i, panel := range battery.Panels() {
		row, col := i/battery.GridCols, i%battery.GridCols
		x := float64(col*(panelWidth+panelMargin) + panelMargin)
		y := float64(row*(panelHeight+panelMargin*2) + panelMargin*2)
		writePanel(&sb, panel, PanelPoints(b, panel.Series), x, y)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writePanel(sb *strings.Builder, panel battery.Panel, points []Point, x, y float64) {
	w, h := float64(panelWidth-panelMargin/2), float64(panelHeight)
	sb.WriteString(fmt.Sprintf(`<g transform="translate(%.1f,%.1f)">
<text x="%.1f" y="-12" fill="%s" font-size="14" text-anchor="middle">%s</text>
<rect width="%.1f" height="%.1f" fill="none" stroke="%s"/>
`, x, y, w/2, textColor, escape(panel.Title), w, h, gridColor))

	minY, maxY := bounds(points)
	sb.WriteString(fmt.Sprintf(`<text x="-4" y="10" fill="%s" font-size="10" text-anchor="end">%.3f</text>
<text x="-4" y="%.1f" fill="%s" font-size="10" text-anchor="end">%.3f</text>
<text x="%.1f" y="%.1f" fill="%s" font-size="11" text-anchor="middle">%s</text>
<text x="-36" y="%.1f" fill="%s" font-size="11" text-anchor="middle" transform="rotate(-90 -36 %.1f)">%s</text>
`, textColor, maxY, h, textColor, minY, w/2, h+18, textColor, battery.TimeAxisLabel,
		h/2, textColor, h/2, escape(panel.YLabel)))

	if len(points) >= 2 {
		sb.WriteString(linePath(points, 0, 0, w, h, lineColor))
	}
	sb.WriteString("</g>\n")
}

// linePath maps points into the box with 10% padding on each axis.
func linePath(points []Point, x0, y0, width, height float64, strokeColor string) string {
	minX, maxX := points[0].X, points[0].X
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	minY, maxY := bounds(points)

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))
	for i, p := range points {
		px := x0 + (p.X-minX)/rangeX*width
		py := y0 + height - (p.Y-minY)/rangeY*height
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", px, py))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", px, py))
		}
	}
	sb.WriteString(`"/>
`)
	return sb.String()
}

func bounds(points []Point) (float64, float64) {
	if len(points) == 0 {
		return 0, 0
	}
	lo, hi := points[0].Y, points[0].Y
	for _, p := range points {
		lo = math.Min(lo, p.Y)
		hi = math.Max(hi, p.Y)
	}
	return lo, hi
}

var svgEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return svgEscaper.Replace(s) }
