package input

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/program-extractor/internal/model"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "businesses.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV(t *testing.T) {
	input := "a|b|c\n 1 | 2 |3\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Delimiter: '|',
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
}

func TestStreamCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader("a,b\n1,2\n"), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestFromRows(t *testing.T) {
	rows := [][]string{
		{"Business Name", "Website", "Platform", "max_pages"},
		{"Flip City", "flipcity.test", "jackrabbit", "5"},
		{"", "nameless.test", "", ""},
		{"Solo Gym", "https://solo.test", "", "lots"},
		{"", "", "", ""},
	}

	got, err := FromRows(rows)
	require.NoError(t, err)
	assert.Equal(t, []model.RunInput{
		{BusinessName: "Flip City", BaseURL: "flipcity.test", Platform: "jackrabbit", MaxPages: 5},
		{BusinessName: "Solo Gym", BaseURL: "https://solo.test"},
	}, got)
}

func TestFromRows_MissingColumns(t *testing.T) {
	_, err := FromRows(nil)
	require.Error(t, err)

	_, err = FromRows([][]string{{"name", "phone"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url column")
}

func TestRead_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "businesses.csv")
	data := "# exported list\nname,url\n\"Flip City, LLC\",https://flipcity.test\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	got, err := Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Flip City, LLC", got[0].BusinessName)
	assert.Equal(t, "https://flipcity.test", got[0].BaseURL)
}

func TestRead_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"company", "domain"},
			{"Flip City", "flipcity.test"},
			{"Solo Gym", "solo.test"},
		},
	})

	got, err := Read(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Solo Gym", got[1].BusinessName)
}

func TestReadXLSX_Sheets(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Gyms": {{"name", "url"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Gyms"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "url"}}, rows)

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
}

func TestRead_UnsupportedType(t *testing.T) {
	_, err := Read(context.Background(), "businesses.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
