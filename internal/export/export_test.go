package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sigmine-dashboard/internal/aggregator"
	"sigmine-dashboard/internal/filter"
	"sigmine-dashboard/internal/groups"
	"sigmine-dashboard/internal/types"
)

func result(t *testing.T) *aggregator.Result {
	t.Helper()
	spec, err := filter.New(filter.Options{
		Phases: []types.Phase{types.PhaseLicenciamento},
		States: []types.State{"SP", "MG"},
		TopN:   2,
	})
	require.NoError(t, err)
	records := []types.Record{
		{ID: "1/2020", Company: "Alfa Ltda", Phase: types.PhaseLicenciamento, State: "SP", AreaHa: 10, AmountCollected: 2.5,
			Date: time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)},
		{ID: "2/2020", Company: "Beta", Phase: types.PhaseLicenciamento, State: "SP", AreaHa: 5},
		{ID: "3/2020", Company: "Beta", Phase: types.PhaseDisponibilidade, State: "MG", AreaHa: 20},
	}
	norm := groups.New(map[string]string{"Alfa Ltda": "Grupo Alfa"})
	res, err := aggregator.Compute(records, spec, norm)
	require.NoError(t, err)
	return res
}

func TestTable(t *testing.T) {
	sh := Table(result(t), aggregator.MeasureArea, aggregator.SubsetFiltered)

	assert.Equal(t, "empresas", sh.Name)
	require.Len(t, sh.Rows, 2)
	assert.Equal(t, []any{"Grupo Alfa", 1, 10.0, 2.5, 1, 10.0, 2.5}, sh.Rows[0])
	assert.Equal(t, []any{"Beta", 2, 25.0, 0.0, 1, 5.0, 0.0}, sh.Rows[1])
}

func TestRecords(t *testing.T) {
	sh := Records(result(t).FilteredEntries)

	require.Len(t, sh.Rows, 2)
	assert.Equal(t, []any{"1/2020", "SP", "LICENCIAMENTO", "Alfa Ltda", "Grupo Alfa", 10.0, 2.5, "2020-03-04"}, sh.Rows[0])
	assert.Equal(t, "", sh.Rows[1][7])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Records(result(t).FilteredEntries)))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"processo", "uf", "fase", "empresa", "grupo", "area_ha", "arrecadado", "data"}, lines[0])
	assert.Equal(t, []string{"1/2020", "SP", "LICENCIAMENTO", "Alfa Ltda", "Grupo Alfa", "10", "2.5", "2020-03-04"}, lines[1])
	assert.Equal(t, []string{"2/2020", "SP", "LICENCIAMENTO", "Beta", "Beta", "5", "0", ""}, lines[2])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Table(result(t), aggregator.MeasureArea, aggregator.SubsetAll)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"empresas"}, f.GetSheetList())
	rows, err := f.GetRows("empresas")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "empresa", rows[0][0])
	assert.Equal(t, "Beta", rows[1][0])
	assert.Equal(t, "25", rows[1][2])
	assert.Equal(t, "Grupo Alfa", rows[2][0])
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "3", formatCell(3))
	assert.Equal(t, "0.1", formatCell(0.1))
	assert.Equal(t, "true", formatCell(true))
}
