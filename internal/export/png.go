package export

import (
	"fmt"
	"image/color"
	"io"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/cellsim/internal/battery"
)

var (
	pngBackground = color.RGBA{R: 0x0e, G: 0x11, B: 0x17, A: 0xff}
	pngLine       = color.RGBA{R: 0x00, G: 0xd4, B: 0xff, A: 0xff}
	pngText       = color.RGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	pngGrid       = color.RGBA{R: 0x2a, G: 0x2f, B: 0x3a, A: 0xff}
)

// threeDecimals relabels the default ticks with a fixed .3f format.
type threeDecimals struct{ plot.Ticker }

func (t threeDecimals) Ticks(min, max float64) []plot.Tick {
	ticks := t.Ticker.Ticks(min, max)
	for i := range ticks {
		if ticks[i].Label != "" {
			ticks[i].Label = strconv.FormatFloat(ticks[i].Value, 'f', 3, 64)
		}
	}
	return ticks
}

// PanelPlot builds the gonum plot for one panel.
func PanelPlot(b *battery.SeriesBundle, panel battery.Panel) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = panel.Title
	p.X.Label.Text = battery.TimeAxisLabel
	p.Y.Label.Text = panel.YLabel
	p.Y.Tick.Marker = threeDecimals{plot.DefaultTicks{}}

	p.BackgroundColor = pngBackground
	for _, c := range []*color.Color{
		&p.Title.TextStyle.Color,
		&p.X.Label.TextStyle.Color, &p.Y.Label.TextStyle.Color,
		&p.X.Tick.Label.Color, &p.Y.Tick.Label.Color,
		&p.X.Color, &p.Y.Color,
		&p.X.Tick.Color, &p.Y.Tick.Color,
	} {
		*c = pngText
	}

	points := PanelPoints(b, panel.Series)
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X, xys[i].Y = pt.X, pt.Y
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, fmt.Errorf("panel %q: %w", panel.Title, err)
	}
	line.Color = pngLine
	line.Width = vg.Points(2)

	grid := plotter.NewGrid()
	grid.Vertical.Color = pngGrid
	grid.Horizontal.Color = pngGrid

	p.Add(grid, line)
	return p, nil
}

// GridToPNG renders the full 2×4 grid into one PNG image.
func GridToPNG(w io.Writer, b *battery.SeriesBundle, width, height vg.Length) error {
	plots := make([][]*plot.Plot, battery.GridRows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, battery.GridCols)
	}
	for i, panel := range battery.Panels() {
		p, err := PanelPlot(b, panel)
		if err != nil {
			return err
		}
		plots[i/battery.GridCols][i%battery.GridCols] = p
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	dc.SetColor(pngBackground)
	dc.Fill(dc.Rectangle.Path())

	tiles := draw.Tiles{
		Rows:      battery.GridRows,
		Cols:      battery.GridCols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 6,
		PadTop:    vg.Millimeter * 4,
		PadBottom: vg.Millimeter * 4,
		PadLeft:   vg.Millimeter * 4,
		PadRight:  vg.Millimeter * 4,
	}

	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// DefaultPNGSize matches a wide dashboard screenshot.
var (
	DefaultPNGWidth  = 16 * vg.Inch
	DefaultPNGHeight = 7.5 * vg.Inch
)
