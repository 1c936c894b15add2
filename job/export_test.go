package job

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testExport() Export {
	return Export{
		Header: Header(NameHeader, SireFields()),
		Rows: []ResultRow{
			{"A", "10", "2", "5", "1", "1600", "1800"},
			{"B"},
			{"C, \"quoted\"", "3"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testExport()))

	expected := "horse,turf,turf win,dirt,dirt win,turf distance,dirt distance\n" +
		"A,10,2,5,1,1600,1800\n" +
		"B,,,,,,\n" +
		"\"C, \"\"quoted\"\"\",3,,,,,\n"
	assert.Equal(t, expected, buf.String())

	export, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, testExport(), export)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, testExport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, testExport().Header, rows[0])
	assert.Equal(t, []string{"A", "10", "2", "5", "1", "1600", "1800"}, rows[1])
	assert.Equal(t, []string{"B"}, rows[2])
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "csv": FormatCSV, " XLSX ": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("ods")
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	start := time.Date(2024, 3, 1, 21, 0, 5, 0, jst)
	assert.Equal(t, "20240301120005.csv", Filename(start, FormatCSV))
	assert.Equal(t, "20240301120005.xlsx", Filename(start, FormatXLSX))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	filename, err := WriteFile(dir, start, FormatXLSX, testExport())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240301120000.xlsx"), filename)
	assert.FileExists(t, filename)
}

func TestWriteFileError(t *testing.T) {
	// a regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	_, err := WriteFile(blocker, time.Now(), FormatCSV, testExport())
	var writeErr OutputWriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Contains(t, writeErr.Filename, blocker)
}
