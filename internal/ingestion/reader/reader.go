package reader

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

var (
	zipSignature = []byte("PK\x03\x04")
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Row is one data row, padded or truncated to the header width. Number is
// the 1-based row position in the source, the header row being 1 when it
// is the first row.
type Row struct {
	Number int
	Cells  []string
}

type Table struct {
	Headers  []string
	Rows     []Row
	Format   string
	Encoding string
	Sheet    string
}

// Read detects the container by signature, never by file extension.
func Read(name string, data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fileErr(name, FileErrorEmpty, nil)
	}
	switch {
	case bytes.HasPrefix(data, zipSignature):
		return readXLSX(name, data)
	case bytes.HasPrefix(data, oleSignature):
		return nil, fileErr(name, FileErrorCorruptContainer, fmt.Errorf("legacy OLE2 workbook"))
	default:
		return readDelimited(name, data)
	}
}

// buildTable picks the first non-blank record as the header and shapes the
// rest. records[i] sits at source row numbers[i].
func buildTable(name string, records [][]string, numbers []int) (*Table, error) {
	hdrIdx := -1
	for i, rec := range records {
		if !blank(rec) {
			hdrIdx = i
			break
		}
	}
	if hdrIdx < 0 {
		return nil, fileErr(name, FileErrorNoHeader, nil)
	}
	headers := dedupeHeaders(records[hdrIdx])
	width := len(headers)

	t := &Table{Headers: headers}
	for i := hdrIdx + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		cells := make([]string, width)
		for j := 0; j < width && j < len(rec); j++ {
			cells[j] = clean(rec[j])
		}
		t.Rows = append(t.Rows, Row{Number: numbers[i], Cells: cells})
	}
	return t, nil
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// dedupeHeaders trims header cells and suffixes repeats with ".1", ".2", ...
func dedupeHeaders(raw []string) []string {
	// trailing empty header cells carry no column
	end := len(raw)
	for end > 0 && strings.TrimSpace(raw[end-1]) == "" {
		end--
	}
	out := make([]string, 0, end)
	seen := map[string]int{}
	for _, h := range raw[:end] {
		h = clean(h)
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			h = h + "." + strconv.Itoa(n+1)
		} else {
			seen[h] = 0
		}
		out = append(out, h)
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
