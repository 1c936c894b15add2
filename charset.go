package scraper

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/dimchansky/utfbom"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// CharsetEncoding parses a charset name and returns its encoding.
// UTF-8 and unknown names return nil, meaning no conversion.
func CharsetEncoding(charset string) encoding.Encoding {
	var encode encoding.Encoding
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "shift_jis", "shift-jis", "sjis", "windows-31j", "cp932", "x-sjis":
		encode = japanese.ShiftJIS
	case "euc-jp":
		encode = japanese.EUCJP
	case "iso-2022-jp":
		encode = japanese.ISO2022JP
	}
	return encode
}

// NewCsvReader returns a CSV reader over r decoded from enc to UTF-8.
// A leading byte order mark is skipped.
func NewCsvReader(r io.Reader, enc encoding.Encoding) *csv.Reader {
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	reader := csv.NewReader(utfbom.SkipOnly(r))
	reader.FieldsPerRecord = -1
	return reader
}
