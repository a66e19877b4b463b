package report

import (
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var ErrNoSamples = errors.New("no samples to chart")

var (
	buyColor    = color.RGBA{R: 0x2e, G: 0x8b, B: 0x57, A: 0xff}
	sellColor   = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	spreadColor = color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x33}
)

const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 6 * vg.Inch
)

func ChartTitle(symbol, quote string) string {
	return fmt.Sprintf("%s/%s Top of Book Evolution", symbol, quote)
}

// NewChart plots best buy and best sell against tick with the region
// between them shaded.
func NewChart(title, quote string, samples []Sample) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	buys := make(plotter.XYs, len(samples))
	sells := make(plotter.XYs, len(samples))
	for i, s := range samples {
		buys[i] = plotter.XY{X: float64(s.Tick), Y: s.BestBuy}
		sells[i] = plotter.XY{X: float64(s.Tick), Y: s.BestSell}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Order Count"
	p.Y.Label.Text = fmt.Sprintf("Price (%s)", quote)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	// Walk the buy series forward and the sell series back to close the band.
	band := make(plotter.XYs, 0, 2*len(samples))
	band = append(band, buys...)
	for i := len(sells) - 1; i >= 0; i-- {
		band = append(band, sells[i])
	}
	spread, err := plotter.NewPolygon(band)
	if err != nil {
		return nil, fmt.Errorf("spread band: %w", err)
	}
	spread.Color = spreadColor
	spread.LineStyle.Width = 0
	p.Add(spread)

	buyLine, buyPoints, err := plotter.NewLinePoints(buys)
	if err != nil {
		return nil, fmt.Errorf("buy series: %w", err)
	}
	buyLine.Color = buyColor
	buyLine.Width = vg.Points(2)
	buyPoints.Shape = draw.CircleGlyph{}
	buyPoints.Color = buyColor

	sellLine, sellPoints, err := plotter.NewLinePoints(sells)
	if err != nil {
		return nil, fmt.Errorf("sell series: %w", err)
	}
	sellLine.Color = sellColor
	sellLine.Width = vg.Points(2)
	sellPoints.Shape = draw.BoxGlyph{}
	sellPoints.Color = sellColor

	p.Add(buyLine, buyPoints, sellLine, sellPoints)
	p.Legend.Add("Buy (best bid)", buyLine, buyPoints)
	p.Legend.Add("Sell (best ask)", sellLine, sellPoints)
	p.Legend.Add("Spread", spread)
	return p, nil
}

// RenderChart writes the chart to path. The image format follows the
// file extension.
func RenderChart(path, title, quote string, samples []Sample) error {
	p, err := NewChart(title, quote, samples)
	if err != nil {
		return err
	}
	if err := p.Save(chartWidth, chartHeight, path); err != nil {
		return fmt.Errorf("save chart %s: %w", path, err)
	}
	return nil
}
