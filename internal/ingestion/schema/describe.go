package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
)

// ItemDraft is everything the registry stores about a question that can be
// derived from its header alone.
type ItemDraft struct {
	ItemText         string
	ItemGroup        string
	MetricType       survey.MetricType
	Dimension        survey.Dimension
	ScaleMin         *int
	ScaleMax         *int
	ScaleLabelMin    string
	ScaleLabelMax    string
	Options          string
	AppliesToSpeaker string
	AppliesToSession string
	DefaultOrder     int
}

// DescribeItem infers the full item shape for a question header at the
// given column position.
func (e *Engine) DescribeItem(header string, order int) ItemDraft {
	inf := e.Infer(header)
	text := strings.TrimSpace(header)
	draft := ItemDraft{
		ItemText:     text,
		MetricType:   inf.MetricType,
		Dimension:    inf.Dimension,
		DefaultOrder: order,
	}
	if inf.MetricType.Numeric() {
		lo, hi := inf.ScaleMin, inf.ScaleMax
		draft.ScaleMin, draft.ScaleMax = &lo, &hi
	}
	draft.ScaleLabelMin, draft.ScaleLabelMax = e.ScaleLabels(inf.MetricType)
	if inf.MetricType == survey.MetricSingleChoice || inf.MetricType == survey.MetricMultiChoice {
		lower := strings.ToLower(text)
		for _, c := range e.choiceOptions {
			if containsAny(lower, c.keywords) {
				draft.Options = c.options
				break
			}
		}
	}
	draft.AppliesToSession = firstCapture(e.sessionPatterns, text)
	draft.AppliesToSpeaker = firstCapture(e.speakerPatterns, text)
	if draft.AppliesToSession != "" && e.groupFormat != "" {
		draft.ItemGroup = fmt.Sprintf(e.groupFormat, draft.AppliesToSession)
	}
	return draft
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}
