package pipeline

import (
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
)

// Placeholders spreadsheet exports write into blank cells.
var placeholders = map[string]bool{
	"nan":  true,
	"none": true,
}

func isPlaceholder(v string) bool {
	return placeholders[strings.ToLower(v)]
}

// cleanCell trims a raw cell and reports why it carries no answer.
func cleanCell(raw string) (string, SkipReason) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", SkipEmpty
	}
	if isPlaceholder(v) {
		return "", SkipPlaceholder
	}
	return v, ""
}

// parseNumber accepts plain decimal reals only. Thousands separators and hex
// literals are rejected so "4,5" or a "1,3" multi-select never read as 45 or 13.
func parseNumber(v string) (float64, bool) {
	if strings.ContainsAny(v, ",_") || isHexLiteral(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isHexLiteral(v string) bool {
	v = strings.TrimLeft(v, "+-")
	return len(v) > 1 && v[0] == '0' && (v[1] == 'x' || v[1] == 'X')
}

// coerceCell turns a raw cell into the stored answer for an item of type
// mt. A non-empty reason means the cell yields no response.
func coerceCell(raw string, mt survey.MetricType) (value string, num *float64, reason SkipReason) {
	v, reason := cleanCell(raw)
	if reason != "" {
		return "", nil, reason
	}
	if f, ok := parseNumber(v); ok {
		num = &f
	}
	if num == nil && mt.Numeric() {
		return v, nil, SkipNonNumeric
	}
	return v, num, ""
}

func newResponse(item *survey.SurveyItem, value string, num *float64) survey.Response {
	r := survey.Response{
		ItemID:           item.ItemID,
		ResponseValue:    value,
		ResponseValueNum: num,
		CommentText:      value,
	}
	if item.MetricType == survey.MetricSingleChoice || item.MetricType == survey.MetricMultiChoice {
		r.ChoiceValue = value
	}
	return r
}
