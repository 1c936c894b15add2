package job

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	scraper "github.com/koizuka/keiba-scraper"
	"golang.org/x/text/encoding"
)

// InputRecord is one row of the input list.
type InputRecord struct {
	Path string // appended to the base URL
	Name string // display name, the first export column
}

type InputOptions struct {
	Encoding   encoding.Encoding // nil reads UTF-8
	SkipLines  int               // leading header lines
	PathColumn int
	NameColumn int
}

// DefaultInputOptions reads Shift_JIS files laid out as "urls,horse" with one header line.
func DefaultInputOptions() InputOptions {
	return InputOptions{
		Encoding:   scraper.CharsetEncoding("shift_jis"),
		SkipLines:  1,
		PathColumn: 0,
		NameColumn: 1,
	}
}

// InputFormatError means the input list could not be read. It is fatal.
type InputFormatError struct {
	Filename string
	Line     int // 0 when not tied to a line
	Err      error
}

func (error InputFormatError) Error() string {
	name := error.Filename
	if name == "" {
		name = "input"
	}
	if error.Line > 0 {
		return fmt.Sprintf("%v:%d: %v", name, error.Line, error.Err)
	}
	return fmt.Sprintf("%v: %v", name, error.Err)
}

func (error InputFormatError) Unwrap() error {
	return error.Err
}

// ReadInput parses the input list in order.
func ReadInput(r io.Reader, opt InputOptions) ([]InputRecord, error) {
	reader := scraper.NewCsvReader(r, opt.Encoding)
	reader.TrimLeadingSpace = true

	need := opt.PathColumn
	if opt.NameColumn > need {
		need = opt.NameColumn
	}

	var records []InputRecord
	for n := 0; ; n++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.StartLine
			}
			return nil, InputFormatError{Line: line, Err: err}
		}
		line, _ := reader.FieldPos(0)
		if n < opt.SkipLines {
			continue
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) <= need {
			return nil, InputFormatError{Line: line, Err: fmt.Errorf("want %d columns, got %d", need+1, len(row))}
		}
		path := strings.TrimSpace(row[opt.PathColumn])
		if path == "" {
			return nil, InputFormatError{Line: line, Err: errors.New("empty path")}
		}
		records = append(records, InputRecord{
			Path: path,
			Name: strings.TrimSpace(row[opt.NameColumn]),
		})
	}
	return records, nil
}

func ReadInputFile(filename string, opt InputOptions) ([]InputRecord, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, InputFormatError{Filename: filename, Err: err}
	}
	defer f.Close()

	records, err := ReadInput(f, opt)
	if err != nil {
		var formatErr InputFormatError
		if errors.As(err, &formatErr) {
			formatErr.Filename = filename
			return nil, formatErr
		}
		return nil, InputFormatError{Filename: filename, Err: err}
	}
	return records, nil
}
