package job

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ResultRow holds the name followed by the non-empty extracted values, in field order.
type ResultRow []string

// Export is the finished table of a run.
type Export struct {
	Header []string
	Rows   []ResultRow
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"

	xlsxSheet = "Sheet1"

	// FilenameLayout is the run start time in compact numeric form.
	FilenameLayout = "20060102150405"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// OutputWriteError means the export could not be written. It is fatal.
type OutputWriteError struct {
	Filename string
	Err      error
}

func (error OutputWriteError) Error() string {
	return fmt.Sprintf("couldn't write %v: %v", error.Filename, error.Err)
}

func (error OutputWriteError) Unwrap() error {
	return error.Err
}

// padded returns row extended with empty cells to width.
func padded(row ResultRow, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// WriteCSV writes the header line and every row padded to the header width.
func WriteCSV(w io.Writer, export Export) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(export.Header); err != nil {
		return err
	}
	for _, row := range export.Rows {
		if err := writer.Write(padded(row, len(export.Header))); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV parses what WriteCSV wrote. Trailing empty cells are dropped, as
// empty values are never part of a row.
func ReadCSV(r io.Reader) (Export, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return Export{}, err
	}
	export := Export{Header: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Export{}, err
		}
		n := len(record)
		for n > 0 && record[n-1] == "" {
			n--
		}
		export.Rows = append(export.Rows, ResultRow(record[:n]))
	}
	return export, nil
}

// WriteXLSX writes the export as a single-sheet workbook.
func WriteXLSX(w io.Writer, export Export) error {
	f := excelize.NewFile()
	defer f.Close()

	setRow := func(rowIndex int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIndex)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(xlsxSheet, cell, &row)
	}

	if err := setRow(1, export.Header); err != nil {
		return err
	}
	for i, row := range export.Rows {
		if err := setRow(i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// Filename is the export file name for a run started at start.
func Filename(start time.Time, format Format) string {
	return fmt.Sprintf("%v.%v", start.UTC().Format(FilenameLayout), format)
}

// WriteFile writes export into dir and returns the file path.
func WriteFile(dir string, start time.Time, format Format, export Export) (string, error) {
	filename := filepath.Join(dir, Filename(start, format))

	if err := os.MkdirAll(dir, os.FileMode(0755)); err != nil {
		return "", OutputWriteError{filename, err}
	}
	f, err := os.Create(filename)
	if err != nil {
		return "", OutputWriteError{filename, err}
	}

	switch format {
	case FormatXLSX:
		err = WriteXLSX(f, export)
	default:
		err = WriteCSV(f, export)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", OutputWriteError{filename, err}
	}
	return filename, nil
}
