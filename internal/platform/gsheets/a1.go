package gsheets

import "strings"

// ColumnLetter maps a 1-based column index onto A, B, ..., Z, AA, ...
func ColumnLetter(n int) string {
	if n < 1 {
		return ""
	}
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

// Range builds an A1 range on a quoted sheet title.
func Range(sheet, from, to string) string {
	title := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if to == "" {
		return title + "!" + from
	}
	return title + "!" + from + ":" + to
}
