package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Table renders samples as one row per observation.
func Table(samples []Sample) string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{
			strconv.Itoa(s.Tick),
			money(s.BestBuy),
			money(s.BestSell),
			money(s.Spread()),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ORDER #", "BUY", "SELL", "SPREAD").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// WriteSummary prints the sample table, or a note that there is none.
func WriteSummary(w io.Writer, samples []Sample) {
	if len(samples) == 0 {
		fmt.Fprintln(w, "No top-of-book samples recorded.")
		return
	}
	fmt.Fprintf(w, "\nPrice evolution (%d samples):\n", len(samples))
	fmt.Fprintln(w, Table(samples))
}

// RunsTable lists archived runs.
func RunsTable(runs []RunMeta) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Symbol + "/" + r.QuoteAsset,
			r.Trend,
			strconv.FormatInt(r.Seed, 10),
			strconv.Itoa(r.Orders),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("RUN", "STARTED", "PAIR", "TREND", "SEED", "ORDERS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Render()
}
