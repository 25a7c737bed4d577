package schema

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
)

type Classification string

const (
	ClassPII      Classification = "pii"
	ClassQuestion Classification = "question"
	ClassNoise    Classification = "noise"
)

// Verdict is a classification together with the rule that produced it.
type Verdict struct {
	Class Classification `json:"class"`
	Rule  string         `json:"rule"`
}

const (
	RuleShortHeader      = "short_header"
	RuleDefault          = "default"
	RuleValuableMetadata = "valuable_metadata"
	RulePersonalData     = "personal_data"
)

// Metadata reports whether the column was claimed by one of the metadata
// rules. Only those columns feed the respondent record.
func (v Verdict) Metadata() bool {
	return v.Rule == RuleValuableMetadata || v.Rule == RulePersonalData
}

type classifierRule struct {
	name   string
	result Classification
	match  matcher
}

type inferenceRule struct {
	name              string
	metricType        survey.MetricType
	dimension         survey.Dimension
	hasScale          bool
	scaleMin          int
	scaleMax          int
	dimensionFromText bool
	dimensionKeywords bool
	match             matcher
}

type dimensionRule struct {
	dim      survey.Dimension
	keywords []string
	context  []string
}

type choiceOptionRule struct {
	keywords []string
	options  string
}

type respondentFieldRule struct {
	field    string
	keywords []string
}

// Engine evaluates the header rule tables. It is immutable once built and
// safe for concurrent use.
type Engine struct {
	minQuestionRunes int
	classifier       []classifierRule
	defaultMetric    survey.MetricType
	inference        []inferenceRule
	dimensions       []dimensionRule
	labels           map[survey.MetricType][2]string
	choiceOptions    []choiceOptionRule
	groupFormat      string
	sessionPatterns  []*regexp.Regexp
	speakerPatterns  []*regexp.Regexp
	respondentFields []respondentFieldRule
}

func compileRules(spec *yamlRules) (*Engine, error) {
	eng := &Engine{
		minQuestionRunes: spec.Classifier.MinQuestionRunes,
		defaultMetric:    survey.MetricType(spec.Inference.DefaultMetricType),
		labels:           map[survey.MetricType][2]string{},
		groupFormat:      strings.TrimSpace(spec.Describe.ItemGroupFormat),
	}
	for _, r := range spec.Classifier.Rules {
		m, err := compileMatch(r.yamlMatch)
		if err != nil {
			return nil, fmt.Errorf("classifier rule %s: %w", r.Name, err)
		}
		eng.classifier = append(eng.classifier, classifierRule{name: r.Name, result: Classification(r.Result), match: m})
	}
	for _, r := range spec.Inference.Rules {
		m, err := compileMatch(r.yamlMatch)
		if err != nil {
			return nil, fmt.Errorf("inference rule %s: %w", r.Name, err)
		}
		if m.empty() && !r.DimensionKeywords {
			return nil, fmt.Errorf("inference rule %s: no predicate", r.Name)
		}
		rule := inferenceRule{
			name:              r.Name,
			metricType:        survey.MetricType(r.MetricType),
			dimension:         survey.Dimension(r.Dimension),
			dimensionFromText: r.DimensionFromText,
			dimensionKeywords: r.DimensionKeywords,
			match:             m,
		}
		if len(r.Scale) == 2 {
			rule.hasScale = true
			rule.scaleMin, rule.scaleMax = r.Scale[0], r.Scale[1]
		}
		eng.inference = append(eng.inference, rule)
	}
	for _, d := range spec.Inference.Dimensions {
		eng.dimensions = append(eng.dimensions, dimensionRule{
			dim:      survey.Dimension(d.Name),
			keywords: lowerAll(d.Keywords),
			context:  lowerAll(d.Context),
		})
	}
	for key, pair := range spec.Inference.Labels {
		eng.labels[survey.MetricType(key)] = [2]string{pair[0], pair[1]}
	}
	for _, c := range spec.Inference.ChoiceOptions {
		eng.choiceOptions = append(eng.choiceOptions, choiceOptionRule{keywords: lowerAll(c.Keywords), options: c.Options})
	}
	var err error
	if eng.sessionPatterns, err = compileAll(spec.Describe.SessionPatterns); err != nil {
		return nil, fmt.Errorf("session_patterns: %w", err)
	}
	if eng.speakerPatterns, err = compileAll(spec.Describe.SpeakerPatterns); err != nil {
		return nil, fmt.Errorf("speaker_patterns: %w", err)
	}
	for _, f := range spec.RespondentFields {
		eng.respondentFields = append(eng.respondentFields, respondentFieldRule{field: f.Field, keywords: lowerAll(f.Keywords)})
	}
	return eng, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("pattern %q: needs a capture group", p)
		}
		out = append(out, re)
	}
	return out, nil
}

func prepare(header string) (lower, raw string) {
	raw = strings.TrimSpace(header)
	return strings.ToLower(raw), raw
}

// Classify labels a raw column header as pii, question or noise.
func (e *Engine) Classify(header string) Classification {
	return e.Explain(header).Class
}

// Explain is Classify plus the name of the deciding rule.
func (e *Engine) Explain(header string) Verdict {
	lower, raw := prepare(header)
	for _, r := range e.classifier {
		if r.match.match(lower, raw) {
			return Verdict{Class: r.result, Rule: r.name}
		}
	}
	if utf8.RuneCountInString(raw) < e.minQuestionRunes {
		return Verdict{Class: ClassNoise, Rule: RuleShortHeader}
	}
	return Verdict{Class: ClassQuestion, Rule: RuleDefault}
}

// Inference is the measurement shape derived from a question header.
type Inference struct {
	MetricType survey.MetricType `json:"metric_type"`
	Dimension  survey.Dimension  `json:"dimension,omitempty"`
	ScaleMin   int               `json:"scale_min"`
	ScaleMax   int               `json:"scale_max"`
	Rule       string            `json:"rule"`
}

// Infer runs the ordered inference cascade; the first matching rule decides.
func (e *Engine) Infer(header string) Inference {
	lower, raw := prepare(header)
	for _, r := range e.inference {
		var dim survey.Dimension
		switch {
		case r.dimensionKeywords:
			d, ok := e.primaryDimension(lower)
			if !ok && !r.match.match(lower, raw) {
				continue
			}
			dim = d
		case r.match.match(lower, raw):
			dim = r.dimension
			if r.dimensionFromText && dim == survey.DimensionNone {
				dim = e.inferDimension(lower)
			}
		default:
			continue
		}
		out := Inference{MetricType: r.metricType, Dimension: dim, Rule: r.name}
		if r.hasScale {
			out.ScaleMin, out.ScaleMax = r.scaleMin, r.scaleMax
		}
		return out
	}
	return Inference{MetricType: e.defaultMetric, Rule: RuleDefault}
}

// InferDimension looks the text up in the dimension table, context keywords
// included. It returns DimensionNone when nothing matches.
func (e *Engine) InferDimension(text string) survey.Dimension {
	lower, _ := prepare(text)
	return e.inferDimension(lower)
}

func (e *Engine) inferDimension(lower string) survey.Dimension {
	for _, d := range e.dimensions {
		if containsAny(lower, d.keywords) || containsAny(lower, d.context) {
			return d.dim
		}
	}
	return survey.DimensionNone
}

func (e *Engine) primaryDimension(lower string) (survey.Dimension, bool) {
	for _, d := range e.dimensions {
		if containsAny(lower, d.keywords) {
			return d.dim, true
		}
	}
	return survey.DimensionNone, false
}

// ScaleLabels returns the fixed (min, max) label pair for a metric type.
func (e *Engine) ScaleLabels(mt survey.MetricType) (string, string) {
	pair, ok := e.labels[mt]
	if !ok {
		return "", ""
	}
	return pair[0], pair[1]
}

// RespondentField maps a column header onto a respondent attribute
// (company, email, timestamp, ...). ok is false when no entry matches.
func (e *Engine) RespondentField(header string) (string, bool) {
	lower, _ := prepare(header)
	for _, f := range e.respondentFields {
		if containsAny(lower, f.keywords) {
			return f.field, true
		}
	}
	return "", false
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

const (
	FieldTimestamp  = "timestamp"
	FieldPIIConsent = "pii_consent"
	FieldCompany    = "company"
	FieldDepartment = "department"
	FieldJobRole    = "job_role"
	FieldTenure     = "tenure_years"
	FieldName       = "name"
	FieldPhone      = "phone"
	FieldEmail      = "email"
)

func knownRespondentField(f string) bool {
	switch f {
	case FieldTimestamp, FieldPIIConsent, FieldCompany, FieldDepartment, FieldJobRole,
		FieldTenure, FieldName, FieldPhone, FieldEmail:
		return true
	}
	return false
}
