package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

func TestReadCSVSingleSeries(t *testing.T) {
	input := "Date,Demand,Qty,Price\n2024-01-01,10,2,3.5\n2024-01-02,12,,\n\n2024-01-03,15,1,4\n"

	series, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	points, err := series.Product("anything")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{10, 12, 15}, domain.Values(points))
	require.NotNil(t, points[0].Quantity)
	assert.Equal(t, 2, *points[0].Quantity)
	assert.Equal(t, 3.5, points[0].EffectivePrice())
	assert.Nil(t, points[1].Quantity)
	assert.Equal(t, 12.0, points[1].EffectivePrice())
}

func TestReadCSVMultipleProducts(t *testing.T) {
	input := "product,date,value\nrice,2024-01-01,1\nsugar,2024-01-01,5\nrice,2024-01-02,2\n"

	series, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	rice, err := series.Product("rice")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, domain.Values(rice))

	_, err = series.Product("salt")
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = ReadCSV(strings.NewReader("date,price\n2024-01-01,2\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = ReadCSV(strings.NewReader("date,value\n2024-01-01,abc\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = ReadCSV(strings.NewReader("date,value\nnot-a-date,1\n"))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = ReadCSV(strings.NewReader("date,value\n"))
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"date", "value", "product"},
		{"2024-02-01", 7, "tea"},
		{"2024-02-02", 9, "tea"},
	}
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cellName, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	series, err := ReadXLSX(&buf)
	require.NoError(t, err)

	tea, err := series.Product("tea")
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 9}, domain.Values(tea))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "history.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("date,value\n2024-01-01,3\n"), 0o644))
	series, err := LoadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, series[""], 1)

	txtPath := filepath.Join(dir, "history.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = LoadFile(txtPath)
	assert.Error(t, err)
}
