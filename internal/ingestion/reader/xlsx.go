package reader

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

func readXLSX(name string, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fileErr(name, FileErrorCorruptContainer, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fileErr(name, FileErrorNoHeader, nil)
	}
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fileErr(name, FileErrorCorruptContainer, err)
		}
		numbers := make([]int, len(rows))
		for i := range rows {
			numbers[i] = i + 1
		}
		t, err := buildTable(name, rows, numbers)
		if err != nil {
			// empty sheet, try the next one
			continue
		}
		t.Format = FormatXLSX
		t.Sheet = sheet
		return t, nil
	}
	return nil, fileErr(name, FileErrorNoHeader, nil)
}
