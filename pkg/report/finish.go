package report

import (
	"io"

	"go.uber.org/zap"
)

// Presenter renders a finished run: the table always, the chart when
// there is something to draw and somewhere to put it.
type Presenter struct {
	Out        io.Writer
	ChartPath  string
	Symbol     string
	QuoteAsset string
	Logger     *zap.SugaredLogger
}

// Finish returns the chart path it wrote, or "" if none was written.
// A chart that fails to render is logged, not returned.
func (p Presenter) Finish(samples []Sample) string {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	WriteSummary(p.Out, samples)
	if len(samples) == 0 || p.ChartPath == "" {
		return ""
	}

	title := ChartTitle(p.Symbol, p.QuoteAsset)
	if err := RenderChart(p.ChartPath, title, p.QuoteAsset, samples); err != nil {
		logger.Errorw("chart_failed", "path", p.ChartPath, "err", err)
		return ""
	}
	logger.Infow("chart_saved", "path", p.ChartPath, "samples", len(samples))
	return p.ChartPath
}
