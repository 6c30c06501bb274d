// Package input reads lists of businesses to extract from CSV and XLSX
// files.
package input

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/model"
)

// Header aliases accepted for each input column.
var (
	nameHeaders     = []string{"business_name", "business", "name", "company"}
	urlHeaders      = []string{"base_url", "url", "website", "domain"}
	platformHeaders = []string{"platform"}
	maxPagesHeaders = []string{"max_pages"}
)

// columns maps input fields to row indexes; -1 means absent.
type columns struct {
	name, url, platform, maxPages int
}

// Read loads run inputs from a .csv or .xlsx file. The first row is a
// header naming at least a business name and a URL column. Rows missing
// either are skipped with a warning.
func Read(ctx context.Context, path string) ([]model.RunInput, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = ReadCSVFile(ctx, path)
	case ".xlsx":
		rows, err = ReadXLSX(path, XLSXOptions{})
	default:
		return nil, eris.Errorf("input: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return FromRows(rows)
}

// FromRows converts a header row plus data rows into run inputs.
func FromRows(rows [][]string) ([]model.RunInput, error) {
	if len(rows) == 0 {
		return nil, eris.New("input: no header row")
	}

	cols := mapColumns(rows[0])
	if cols.name < 0 || cols.url < 0 {
		return nil, eris.Errorf("input: header must name a business and a url column, got %v", rows[0])
	}

	var out []model.RunInput
	for i, row := range rows[1:] {
		in := model.RunInput{
			BusinessName: cell(row, cols.name),
			BaseURL:      cell(row, cols.url),
			Platform:     cell(row, cols.platform),
		}
		if in.BusinessName == "" || in.BaseURL == "" {
			if !blank(row) {
				zap.L().Warn("input: skipping incomplete row", zap.Int("row", i+2))
			}
			continue
		}
		if v := cell(row, cols.maxPages); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				zap.L().Warn("input: ignoring invalid max_pages",
					zap.Int("row", i+2),
					zap.String("value", v),
				)
			} else {
				in.MaxPages = n
			}
		}
		out = append(out, in)
	}
	return out, nil
}

func mapColumns(header []string) columns {
	find := func(aliases []string) int {
		for i, h := range header {
			h = strings.ToLower(strings.TrimSpace(h))
			h = strings.ReplaceAll(h, " ", "_")
			for _, a := range aliases {
				if h == a {
					return i
				}
			}
		}
		return -1
	}
	return columns{
		name:     find(nameHeaders),
		url:      find(urlHeaders),
		platform: find(platformHeaders),
		maxPages: find(maxPagesHeaders),
	}
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
