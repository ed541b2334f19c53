package charts

import (
	"bytes"
	"testing"

	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigmine-dashboard/internal/aggregator"
	"sigmine-dashboard/internal/filter"
)

func series(n int, others bool) aggregator.Series {
	s := aggregator.Series{
		Measure:       aggregator.MeasureArea,
		Ranking:       aggregator.SubsetFiltered,
		Baseline:      filter.BaselineFiltered,
		BaselineTotal: 100,
	}
	names := []string{"Alfa", "Beta", "Gama", "Delta", "Epsilon", "Zeta", "Eta", "Teta", "Iota"}
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, aggregator.Point{Company: names[i], Value: float64(10 - i), Companion: float64(20 - i)})
	}
	if others {
		s.Others = &aggregator.Point{Company: aggregator.OthersLabel, Value: 5, Companion: 7}
	}
	return s
}

func TestBar(t *testing.T) {
	bar := Bar(series(8, true), Options{})

	require.Len(t, bar.MultiSeries, 2)
	assert.Equal(t, "filtrados", bar.MultiSeries[0].Name)
	assert.Equal(t, "todos", bar.MultiSeries[1].Name)

	data, ok := bar.MultiSeries[0].Data.([]opts.BarData)
	require.True(t, ok)
	require.Len(t, data, 9)
	assert.Equal(t, "Alfa", data[0].Name)
	assert.Equal(t, aggregator.OthersLabel, data[8].Name)
	assert.Equal(t, 5.0, data[8].Value)

	// nine rows of 60px
	assert.Equal(t, "540px", bar.Initialization.Height)
	assert.Equal(t, "400px", Bar(series(2, false), Options{}).Initialization.Height)
}

func TestPie(t *testing.T) {
	pie := Pie(series(3, true), Options{})
	require.Len(t, pie.MultiSeries, 1)
	data, ok := pie.MultiSeries[0].Data.([]opts.PieData)
	require.True(t, ok)
	require.Len(t, data, 4)
	assert.Equal(t, aggregator.OthersLabel, data[3].Name)

	pie = Pie(series(3, false), Options{})
	data = pie.MultiSeries[0].Data.([]opts.PieData)
	assert.Len(t, data, 3)
}

func TestScatter(t *testing.T) {
	rows := []aggregator.Row{
		{Company: "Alfa", All: aggregator.Measures{Count: 2, Area: 30}, Filtered: aggregator.Measures{Count: 1, Area: 10}},
		{Company: "Beta", All: aggregator.Measures{Count: 1, Area: 5}},
	}
	sc := Scatter(rows, aggregator.MeasureCount, Options{})
	data, ok := sc.MultiSeries[0].Data.([]opts.ScatterData)
	require.True(t, ok)
	require.Len(t, data, 2)
	assert.Equal(t, []interface{}{2.0, 1.0}, data[0].Value)
	assert.Equal(t, []interface{}{1.0, 0.0}, data[1].Value)
}

func TestRender(t *testing.T) {
	s := series(2, true)
	o := Options{PageTitle: "SIGMINE", AssetsHost: "http://localhost/assets/"}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, o, Bar(s, o), Pie(s, o)))

	out := buf.String()
	assert.Contains(t, out, "SIGMINE")
	assert.Contains(t, out, "Alfa")
	assert.Contains(t, out, "Outras")
	assert.Contains(t, out, "http://localhost/assets/")
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "todos", SubsetLabel(aggregator.SubsetAll))
	assert.Equal(t, "filtrados", SubsetLabel(aggregator.SubsetFiltered))
	assert.Equal(t, "Quantidade de DMs", MeasureLabel(aggregator.MeasureCount))
}
