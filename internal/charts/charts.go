// Package charts renders top-N series as go-echarts pages.
package charts

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"sigmine-dashboard/internal/aggregator"
)

// RowHeight is the pixel height given to each bar of a horizontal chart.
const RowHeight = 60

const minHeight = 400

// Options tune rendering. AssetsHost overrides the echarts CDN.
type Options struct {
	PageTitle  string
	AssetsHost string
}

func (o Options) init(height int) opts.Initialization {
	in := opts.Initialization{
		PageTitle: o.PageTitle,
		Width:     "100%",
		Height:    fmt.Sprintf("%dpx", height),
	}
	if o.AssetsHost != "" {
		in.AssetsHost = o.AssetsHost
	}
	return in
}

// SubsetLabel names a subset the way the dashboard does.
func SubsetLabel(s aggregator.Subset) string {
	if s == aggregator.SubsetAll {
		return "todos"
	}
	return "filtrados"
}

// MeasureLabel names a measure the way the dashboard does.
func MeasureLabel(m aggregator.Measure) string {
	switch m {
	case aggregator.MeasureCount:
		return "Quantidade de DMs"
	case aggregator.MeasureAmount:
		return "Arrecadação (R$)"
	default:
		return "Área (ha)"
	}
}

// points returns the series points with the others row appended.
func points(s aggregator.Series) []aggregator.Point {
	out := make([]aggregator.Point, 0, len(s.Points)+1)
	out = append(out, s.Points...)
	if s.Others != nil {
		out = append(out, *s.Others)
	}
	return out
}

// Bar draws the series as horizontal bars, largest on top, with the
// companion subset as a second bar per company.
func Bar(s aggregator.Series, o Options) *charts.Bar {
	pts := points(s)
	names := make([]string, len(pts))
	ranking := make([]opts.BarData, len(pts))
	companion := make([]opts.BarData, len(pts))
	for i, p := range pts {
		names[i] = p.Company
		ranking[i] = opts.BarData{Name: p.Company, Value: p.Value}
		companion[i] = opts.BarData{Name: p.Company, Value: p.Companion}
	}

	height := RowHeight * len(pts)
	if height < minHeight {
		height = minHeight
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(height)),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Top %d empresas: %s", len(s.Points), MeasureLabel(s.Measure)),
			Subtitle: fmt.Sprintf("ranking por %s, base %s", SubsetLabel(s.Ranking), s.Baseline),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithGridOpts(opts.Grid{Left: "3%", Right: "8%", ContainLabel: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: MeasureLabel(s.Measure)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Inverse: opts.Bool(true)}),
	)
	bar.SetXAxis(names).
		AddSeries(SubsetLabel(s.Ranking), ranking,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "right"}),
		).
		AddSeries(SubsetLabel(s.Ranking.Other()), companion)
	bar.XYReversal()
	return bar
}

// Pie draws the ranking values, others included, as a donut.
func Pie(s aggregator.Series, o Options) *charts.Pie {
	pts := points(s)
	data := make([]opts.PieData, len(pts))
	for i, p := range pts {
		data[i] = opts.PieData{Name: p.Company, Value: p.Value}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(minHeight+200)),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Participação: %s", MeasureLabel(s.Measure)),
			Subtitle: fmt.Sprintf("relativo ao total %s", s.Baseline),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
	)
	pie.AddSeries(MeasureLabel(s.Measure), data,
		charts.WithPieChartOpts(opts.PieChart{Radius: []string{"50%", "75%"}}),
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {d}%"}),
	)
	return pie
}

// Scatter places each company at (all, filtered) for measure m.
func Scatter(rows []aggregator.Row, m aggregator.Measure, o Options) *charts.Scatter {
	data := make([]opts.ScatterData, len(rows))
	for i, r := range rows {
		data[i] = opts.ScatterData{
			Name:  r.Company,
			Value: []interface{}{r.All.Value(m), r.Filtered.Value(m)},
		}
	}

	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithInitializationOpts(o.init(minHeight+200)),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s: todos x filtrados", MeasureLabel(m))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: SubsetLabel(aggregator.SubsetAll)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: SubsetLabel(aggregator.SubsetFiltered)}),
	)
	sc.AddSeries("empresas", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top", Formatter: "{b}"}),
	)
	return sc
}

// Render writes a single HTML page holding every chart.
func Render(w io.Writer, o Options, cs ...components.Charter) error {
	page := components.NewPage()
	if o.PageTitle != "" {
		page.SetPageTitle(o.PageTitle)
	}
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.AddCharts(cs...)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}
