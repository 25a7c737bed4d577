package survey

import "time"

type MetricType string

const (
	MetricLikert       MetricType = "likert"
	MetricNPS          MetricType = "nps"
	MetricSingleChoice MetricType = "single_choice"
	MetricMultiChoice  MetricType = "multi_choice"
	MetricText         MetricType = "text"
)

func (m MetricType) Valid() bool {
	switch m {
	case MetricLikert, MetricNPS, MetricSingleChoice, MetricMultiChoice, MetricText:
		return true
	}
	return false
}

// Numeric reports whether answers for this type are expected to be numbers.
func (m MetricType) Numeric() bool {
	return m == MetricLikert || m == MetricNPS
}

// Dimension is drawn from a closed vocabulary; the empty value means none.
type Dimension string

const (
	DimensionNone          Dimension = ""
	DimensionSatisfaction  Dimension = "satisfaction"
	DimensionDifficulty    Dimension = "difficulty"
	DimensionUnderstanding Dimension = "understanding"
	DimensionInsight       Dimension = "insight"
	DimensionRecommend     Dimension = "recommend"
	DimensionOperations    Dimension = "operations"
	DimensionContent       Dimension = "content"
)

var Dimensions = []Dimension{
	DimensionSatisfaction,
	DimensionDifficulty,
	DimensionUnderstanding,
	DimensionInsight,
	DimensionRecommend,
	DimensionOperations,
	DimensionContent,
}

func (d Dimension) Valid() bool {
	if d == DimensionNone {
		return true
	}
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// SurveyItem is one canonical question in the shared registry. Items are
// never deleted; ItemCode is a pure function of the header text.
type SurveyItem struct {
	ItemID           string     `json:"item_id"`
	ItemCode         string     `json:"item_code"`
	ItemGroup        string     `json:"item_group,omitempty"`
	ItemText         string     `json:"item_text"`
	MetricType       MetricType `json:"metric_type"`
	Dimension        Dimension  `json:"dimension,omitempty"`
	ScaleMin         *int       `json:"scale_min,omitempty"`
	ScaleMax         *int       `json:"scale_max,omitempty"`
	ScaleLabelMin    string     `json:"scale_label_min,omitempty"`
	ScaleLabelMax    string     `json:"scale_label_max,omitempty"`
	Options          string     `json:"options,omitempty"`
	AppliesToSpeaker string     `json:"applies_to_speaker,omitempty"`
	AppliesToSession string     `json:"applies_to_session,omitempty"`
	DefaultOrder     int        `json:"default_order"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
