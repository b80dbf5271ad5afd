// Package ingest loads historical demand series from CSV and XLSX exports.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

// Series maps product name to its chronological history. Files without a
// product column put every row under the empty name.
type Series map[string][]domain.HistoricalPoint

var columnAliases = map[string]string{
	"date":         "date",
	"day":          "date",
	"value":        "value",
	"demand":       "value",
	"sales":        "value",
	"quantity":     "quantity",
	"qty":          "quantity",
	"price":        "price",
	"product":      "product",
	"product_name": "product",
	"sku":          "product",
}

// LoadFile dispatches on the file extension.
func LoadFile(path string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return ReadXLSX(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func ReadCSV(r io.Reader) (Series, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return parseRecords(records)
}

// ReadXLSX reads the first sheet.
func ReadXLSX(r io.Reader) (Series, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx file has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) (Series, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrInsufficientData)
	}

	columns := map[string]int{}
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := columnAliases[key]; ok {
			if _, seen := columns[canonical]; !seen {
				columns[canonical] = i
			}
		}
	}
	for _, required := range []string{"date", "value"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: missing %q column", domain.ErrInvalidRequest, required)
		}
	}

	series := Series{}
	for line, record := range records[1:] {
		if blank(record) {
			continue
		}
		rowNum := line + 2

		point := domain.HistoricalPoint{Date: cell(record, columns["date"])}
		if _, err := point.Time(); err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		value, err := strconv.ParseFloat(cell(record, columns["value"]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: invalid value", domain.ErrInvalidRequest, rowNum)
		}
		point.Value = value

		if idx, ok := columns["quantity"]; ok && cell(record, idx) != "" {
			qty, err := strconv.Atoi(cell(record, idx))
			if err != nil || qty < 0 {
				return nil, fmt.Errorf("%w: row %d: invalid quantity", domain.ErrInvalidRequest, rowNum)
			}
			point.Quantity = &qty
		}
		if idx, ok := columns["price"]; ok && cell(record, idx) != "" {
			price, err := strconv.ParseFloat(cell(record, idx), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid price", domain.ErrInvalidRequest, rowNum)
			}
			point.Price = &price
		}

		product := ""
		if idx, ok := columns["product"]; ok {
			product = cell(record, idx)
		}
		series[product] = append(series[product], point)
	}

	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no data rows", domain.ErrInsufficientData)
	}
	return series, nil
}

// Product picks one product's history. An empty name is accepted when the
// file holds a single series.
func (s Series) Product(name string) ([]domain.HistoricalPoint, error) {
	if points, ok := s[name]; ok {
		return points, nil
	}
	if name == "" && len(s) == 1 {
		for _, points := range s {
			return points, nil
		}
	}
	if points, ok := s[""]; ok && len(s) == 1 {
		return points, nil
	}
	return nil, fmt.Errorf("%w: no rows for product %q", domain.ErrInsufficientData, name)
}

func cell(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
