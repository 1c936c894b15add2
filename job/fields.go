package job

// ExtractionTarget names one value read from a record page.
type ExtractionTarget struct {
	Header   string `json:"header"`   // export column
	Selector string `json:"selector"` // CSS selector of the element
	Property string `json:"property"` // DOM property read from it
}

const (
	SireBaseURL  = "https://db.netkeiba.com/horse/sire/"
	SireMarker   = ".race_table_01"
	sireRow      = "#contents > div.db_main_deta > table > tbody > tr:nth-child(3) >"
	NameHeader   = "horse"
	textProperty = "textContent"
)

// SireFields are the columns read from the third row of a sire statistics table.
func SireFields() []ExtractionTarget {
	return []ExtractionTarget{
		{Header: "turf", Selector: sireRow + " td:nth-child(13) > a", Property: textProperty},
		{Header: "turf win", Selector: sireRow + " td:nth-child(14) > a", Property: textProperty},
		{Header: "dirt", Selector: sireRow + " td:nth-child(15) > a", Property: textProperty},
		{Header: "dirt win", Selector: sireRow + " td:nth-child(16) > a", Property: textProperty},
		{Header: "turf distance", Selector: sireRow + " td:nth-child(20)", Property: textProperty},
		{Header: "dirt distance", Selector: sireRow + " td:nth-child(21)", Property: textProperty},
	}
}

// Header returns the export header: the name column followed by one column per field.
func Header(nameHeader string, fields []ExtractionTarget) []string {
	header := make([]string, 0, len(fields)+1)
	header = append(header, nameHeader)
	for _, f := range fields {
		header = append(header, f.Header)
	}
	return header
}
