package schema

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

const RulesEnv = "SURVEY_RULES_YAML"

//go:embed survey_rules.yaml
var rulesFS embed.FS

type yamlRules struct {
	Version          int                 `yaml:"version"`
	Classifier       yamlClassifier      `yaml:"classifier"`
	Inference        yamlInference       `yaml:"inference"`
	Describe         yamlDescribe        `yaml:"describe"`
	RespondentFields []yamlRespondentKey `yaml:"respondent_fields"`
}

type yamlMatch struct {
	Keywords []string `yaml:"keywords"`
	Words    []string `yaml:"words"`
	Patterns []string `yaml:"patterns"`
}

type yamlClassifier struct {
	MinQuestionRunes int                  `yaml:"min_question_runes"`
	Rules            []yamlClassifierRule `yaml:"rules"`
}

type yamlClassifierRule struct {
	Name      string `yaml:"name"`
	Result    string `yaml:"result"`
	yamlMatch `yaml:",inline"`
}

type yamlInference struct {
	DefaultMetricType string                 `yaml:"default_metric_type"`
	Rules             []yamlInferenceRule    `yaml:"rules"`
	Dimensions        []yamlDimension        `yaml:"dimensions"`
	Labels            map[string][]string    `yaml:"labels"`
	ChoiceOptions     []yamlChoiceOptionRule `yaml:"choice_options"`
}

type yamlInferenceRule struct {
	Name              string `yaml:"name"`
	MetricType        string `yaml:"metric_type"`
	Dimension         string `yaml:"dimension"`
	Scale             []int  `yaml:"scale"`
	DimensionFromText bool   `yaml:"dimension_from_text"`
	DimensionKeywords bool   `yaml:"dimension_keywords"`
	yamlMatch         `yaml:",inline"`
}

type yamlDimension struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Context  []string `yaml:"context"`
}

type yamlChoiceOptionRule struct {
	Keywords []string `yaml:"keywords"`
	Options  string   `yaml:"options"`
}

type yamlDescribe struct {
	ItemGroupFormat string   `yaml:"item_group_format"`
	SessionPatterns []string `yaml:"session_patterns"`
	SpeakerPatterns []string `yaml:"speaker_patterns"`
}

type yamlRespondentKey struct {
	Field    string   `yaml:"field"`
	Keywords []string `yaml:"keywords"`
}

// matcher is the compiled predicate of one rule.
type matcher struct {
	keywords []string
	words    []string
	patterns []*regexp.Regexp
}

func compileMatch(m yamlMatch) (matcher, error) {
	out := matcher{
		keywords: lowerAll(m.Keywords),
		words:    lowerAll(m.Words),
	}
	for _, p := range m.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return matcher{}, fmt.Errorf("pattern %q: %w", p, err)
		}
		out.patterns = append(out.patterns, re)
	}
	return out, nil
}

func (m matcher) empty() bool {
	return len(m.keywords) == 0 && len(m.words) == 0 && len(m.patterns) == 0
}

// match reports whether header satisfies any keyword, word or pattern.
// lower is the trimmed lower-cased header, raw the trimmed original.
func (m matcher) match(lower, raw string) bool {
	for _, kw := range m.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, w := range m.words {
		if containsWord(lower, w) {
			return true
		}
	}
	for _, re := range m.patterns {
		if re.MatchString(raw) {
			return true
		}
	}
	return false
}

func containsWord(s, w string) bool {
	if w == "" {
		return false
	}
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], w)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(w)
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || !isASCIIWord(before)) && (end == len(s) || !isASCIIWord(after)) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isASCIIWord(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseRules(data []byte) (*Engine, error) {
	var spec yamlRules
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}
	if err := validateRules(&spec); err != nil {
		return nil, err
	}
	return compileRules(&spec)
}

func validateRules(spec *yamlRules) error {
	if spec == nil {
		return errors.New("missing rules")
	}
	if len(spec.Classifier.Rules) == 0 {
		return errors.New("no classifier rules defined")
	}
	for _, r := range spec.Classifier.Rules {
		switch Classification(r.Result) {
		case ClassPII, ClassQuestion, ClassNoise:
		default:
			return fmt.Errorf("classifier rule %s: unknown result %q", r.Name, r.Result)
		}
	}
	if !survey.MetricType(spec.Inference.DefaultMetricType).Valid() {
		return fmt.Errorf("unknown default_metric_type %q", spec.Inference.DefaultMetricType)
	}
	for _, r := range spec.Inference.Rules {
		if !survey.MetricType(r.MetricType).Valid() {
			return fmt.Errorf("inference rule %s: unknown metric_type %q", r.Name, r.MetricType)
		}
		if !survey.Dimension(r.Dimension).Valid() {
			return fmt.Errorf("inference rule %s: unknown dimension %q", r.Name, r.Dimension)
		}
		if len(r.Scale) != 0 && len(r.Scale) != 2 {
			return fmt.Errorf("inference rule %s: scale wants [min, max]", r.Name)
		}
		if len(r.Scale) == 2 && r.Scale[0] > r.Scale[1] {
			return fmt.Errorf("inference rule %s: scale min above max", r.Name)
		}
	}
	seen := map[string]bool{}
	for _, d := range spec.Inference.Dimensions {
		dim := survey.Dimension(d.Name)
		if dim == survey.DimensionNone || !dim.Valid() {
			return fmt.Errorf("unknown dimension %q", d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dimension %q", d.Name)
		}
		seen[d.Name] = true
	}
	for key, pair := range spec.Inference.Labels {
		if len(pair) != 2 {
			return fmt.Errorf("labels.%s wants [min, max]", key)
		}
	}
	if f := strings.TrimSpace(spec.Describe.ItemGroupFormat); f != "" && strings.Count(f, "%s") != 1 {
		return fmt.Errorf("item_group_format %q wants exactly one %%s", f)
	}
	for _, f := range spec.RespondentFields {
		if !knownRespondentField(f.Field) {
			return fmt.Errorf("unknown respondent field %q", f.Field)
		}
	}
	return nil
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide engine. When SURVEY_RULES_YAML names a
// readable, valid file it wins; otherwise the embedded table is used.
func Default(log *logger.Logger) *Engine {
	defaultOnce.Do(func() {
		if path := strings.TrimSpace(os.Getenv(RulesEnv)); path != "" {
			eng, err := LoadFile(path)
			if err == nil {
				defaultEngine = eng
				return
			}
			if log != nil {
				log.Warn("schema: rules override load failed; using embedded rules", "path", path, "error", err)
			}
		}
		defaultEngine = Embedded()
	})
	return defaultEngine
}

// Embedded compiles the rule table shipped with the binary.
func Embedded() *Engine {
	data, err := rulesFS.ReadFile("survey_rules.yaml")
	if err != nil {
		panic(fmt.Sprintf("schema: embedded rules missing: %v", err))
	}
	eng, err := parseRules(data)
	if err != nil {
		panic(fmt.Sprintf("schema: embedded rules invalid: %v", err))
	}
	return eng
}

func LoadFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

func Load(data []byte) (*Engine, error) {
	eng, err := parseRules(data)
	if err != nil {
		return nil, fmt.Errorf("schema rules: %w", err)
	}
	return eng, nil
}
