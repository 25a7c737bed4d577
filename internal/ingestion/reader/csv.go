package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type textEncoding struct {
	label  string
	decode func([]byte) ([]byte, bool)
}

// Tried in order. UTF-16 is only accepted with a byte order mark. x/text's EUC-KR decoder is the CP949 superset, so it also
// covers the euc-kr label; plain utf-8 is covered by the BOM-optional first
// entry.
var textEncodings = []textEncoding{
	{label: "utf-16", decode: decodeUTF16},
	{label: "utf-8-sig", decode: decodeUTF8},
	{label: "cp949", decode: decodeWith(korean.EUCKR)},
	{label: "latin-1", decode: decodeWith(charmap.ISO8859_1)},
}

func decodeUTF8(data []byte) ([]byte, bool) {
	data = bytes.TrimPrefix(data, utf8BOM)
	return data, utf8.Valid(data)
}

func decodeUTF16(data []byte) ([]byte, bool) {
	if !bytes.HasPrefix(data, []byte{0xFF, 0xFE}) && !bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return nil, false
	}
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(data)
	if err != nil {
		return nil, false
	}
	return out, !bytes.ContainsRune(out, utf8.RuneError)
}

func decodeWith(enc encoding.Encoding) func([]byte) ([]byte, bool) {
	return func(data []byte) ([]byte, bool) {
		out, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return nil, false
		}
		return out, !bytes.ContainsRune(out, utf8.RuneError)
	}
}

func readDelimited(name string, data []byte) (*Table, error) {
	var lastErr error
	for _, enc := range textEncodings {
		text, ok := enc.decode(data)
		if !ok || bytes.IndexByte(text, 0) >= 0 {
			continue
		}
		records, numbers, err := parseDelimited(name, text)
		if err != nil {
			lastErr = err
			continue
		}
		t, err := buildTable(name, records, numbers)
		if err != nil {
			return nil, err
		}
		t.Format = FormatCSV
		t.Encoding = enc.label
		if enc.label == "utf-8-sig" && !bytes.HasPrefix(data, utf8BOM) {
			t.Encoding = "utf-8"
		}
		return t, nil
	}
	return nil, fileErr(name, FileErrorUnreadableEncoding, lastErr)
}

func parseDelimited(name string, text []byte) ([][]string, []int, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = sniffDelimiter(name, text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records [][]string
	var numbers []int
	for n := 1; ; n++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		records = append(records, rec)
		numbers = append(numbers, n)
	}
	return records, numbers, nil
}

func sniffDelimiter(name string, text []byte) rune {
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		return '\t'
	}
	first := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}
	if bytes.IndexByte(first, '\t') >= 0 && bytes.IndexByte(first, ',') < 0 {
		return '\t'
	}
	return ','
}
