package schema

import (
	"testing"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
)

func TestClassify(t *testing.T) {
	eng := Embedded()
	cases := []struct {
		header string
		want   Classification
	}{
		{"소속 회사", ClassQuestion},
		{"회사명 (Company name)", ClassQuestion},
		{"응답자 이메일", ClassPII},
		{"타임스탬프(Timestamp)", ClassPII},
		{"Respondent ID", ClassPII},
		{"개인정보 수집 및 이용 동의", ClassPII},
		{"경품 수령 연락처", ClassPII},
		{"Did the video provide new insight?", ClassQuestion},
		{"Q1", ClassNoise},
		{"  가  ", ClassNoise},
		{"전반적으로 만족하셨나요? (1-5점)", ClassQuestion},
	}
	for _, tc := range cases {
		if got := eng.Classify(tc.header); got != tc.want {
			t.Fatalf("Classify(%q): want=%s got=%s", tc.header, tc.want, got)
		}
	}
}

func TestExplainNamesRule(t *testing.T) {
	eng := Embedded()
	if got := eng.Explain("소속 회사"); got.Rule != "valuable_metadata" {
		t.Fatalf("Explain rule: want=valuable_metadata got=%s", got.Rule)
	}
	if got := eng.Explain("Q1"); got.Rule != RuleShortHeader {
		t.Fatalf("Explain rule: want=%s got=%s", RuleShortHeader, got.Rule)
	}
}

func TestInfer(t *testing.T) {
	eng := Embedded()
	cases := []struct {
		header string
		mt     survey.MetricType
		dim    survey.Dimension
		lo, hi int
	}{
		{"전반적으로 만족하셨나요? (1-5점)", survey.MetricLikert, survey.DimensionSatisfaction, 1, 5},
		{"강의 내용은 5점 만점에 몇 점인가요?", survey.MetricLikert, survey.DimensionContent, 1, 5},
		{"이 과정을 동료에게 추천하시겠습니까? (0~10)", survey.MetricNPS, survey.DimensionRecommend, 0, 10},
		{"소속 회사 만족도 (1-5점)", survey.MetricText, survey.DimensionNone, 0, 0},
		{"세션 구성이 7점 만점 기준으로 어떠셨나요", survey.MetricLikert, survey.DimensionContent, 1, 7},
		{"Rate the venue on a 7-point scale", survey.MetricLikert, survey.DimensionOperations, 1, 7},
		{"강사의 설명은 이해하기 쉬웠나요?", survey.MetricLikert, survey.DimensionUnderstanding, 1, 5},
		{"다음 행사에 참석하시겠습니까? (예/아니오)", survey.MetricSingleChoice, survey.DimensionNone, 0, 0},
		{"관심 분야를 모두 선택해주세요", survey.MetricMultiChoice, survey.DimensionNone, 0, 0},
		{"기타 의견을 자유롭게 작성해 주세요", survey.MetricText, survey.DimensionNone, 0, 0},
	}
	for _, tc := range cases {
		got := eng.Infer(tc.header)
		if got.MetricType != tc.mt || got.Dimension != tc.dim || got.ScaleMin != tc.lo || got.ScaleMax != tc.hi {
			t.Fatalf("Infer(%q): want=(%s,%q,%d,%d) got=(%s,%q,%d,%d)",
				tc.header, tc.mt, tc.dim, tc.lo, tc.hi, got.MetricType, got.Dimension, got.ScaleMin, got.ScaleMax)
		}
	}
}

func TestInferDimensionUsesContextKeywords(t *testing.T) {
	eng := Embedded()
	if got := eng.InferDimension("강의 안내가 명확했나요"); got != survey.DimensionOperations {
		t.Fatalf("InferDimension: want=operations got=%q", got)
	}
	if got := eng.InferDimension("강의 전반"); got != survey.DimensionContent {
		t.Fatalf("InferDimension: want=content got=%q", got)
	}
	if got := eng.InferDimension("기타"); got != survey.DimensionNone {
		t.Fatalf("InferDimension: want none got=%q", got)
	}
	// context keywords alone never make an item likert
	if got := eng.Infer("강의 관련 건의사항"); got.MetricType != survey.MetricText {
		t.Fatalf("Infer: want=text got=%s", got.MetricType)
	}
}

func TestDescribeItem(t *testing.T) {
	eng := Embedded()
	d := eng.DescribeItem("[Session 2] 김철수 박사 강의 만족도", 4)
	if d.MetricType != survey.MetricLikert || d.Dimension != survey.DimensionSatisfaction {
		t.Fatalf("DescribeItem type: got=(%s,%s)", d.MetricType, d.Dimension)
	}
	if d.ScaleMin == nil || *d.ScaleMin != 1 || d.ScaleMax == nil || *d.ScaleMax != 5 {
		t.Fatalf("DescribeItem scale: want 1..5")
	}
	if d.AppliesToSession != "2" || d.ItemGroup != "Session 2" {
		t.Fatalf("DescribeItem session: got=(%q,%q)", d.AppliesToSession, d.ItemGroup)
	}
	if d.AppliesToSpeaker != "김철수" {
		t.Fatalf("DescribeItem speaker: want=김철수 got=%q", d.AppliesToSpeaker)
	}
	if d.ScaleLabelMin != "매우 낮음" || d.ScaleLabelMax != "매우 높음" {
		t.Fatalf("DescribeItem labels: got=(%q,%q)", d.ScaleLabelMin, d.ScaleLabelMax)
	}
	if d.DefaultOrder != 4 {
		t.Fatalf("DescribeItem order: want=4 got=%d", d.DefaultOrder)
	}

	nps := eng.DescribeItem("세션3 추천 의향 (0-10)", 0)
	if nps.ScaleMin == nil || *nps.ScaleMin != 0 || *nps.ScaleMax != 10 {
		t.Fatalf("DescribeItem nps scale: want 0..10")
	}
	if nps.ScaleLabelMin != "전혀 추천하지 않음" || nps.ItemGroup != "Session 3" {
		t.Fatalf("DescribeItem nps: got=(%q,%q)", nps.ScaleLabelMin, nps.ItemGroup)
	}

	yn := eng.DescribeItem("다음 행사에 참석하시겠습니까? (예/아니오)", 1)
	if yn.Options != "예,아니오" || yn.ScaleMin != nil {
		t.Fatalf("DescribeItem options: got=(%q,%v)", yn.Options, yn.ScaleMin)
	}
	if yn.AppliesToSpeaker != "" {
		t.Fatalf("DescribeItem speaker: want empty got=%q", yn.AppliesToSpeaker)
	}
}

func TestRespondentField(t *testing.T) {
	eng := Embedded()
	cases := []struct{ header, want string }{
		{"소속 부서", FieldDepartment},
		{"소속 회사", FieldCompany},
		{"회사 이메일", FieldEmail},
		{"성함", FieldName},
		{"전화번호", FieldPhone},
		{"직군", FieldJobRole},
		{"연차", FieldTenure},
		{"타임스탬프", FieldTimestamp},
		{"개인정보 수집 동의", FieldPIIConsent},
	}
	for _, tc := range cases {
		got, ok := eng.RespondentField(tc.header)
		if !ok || got != tc.want {
			t.Fatalf("RespondentField(%q): want=%s got=%s", tc.header, tc.want, got)
		}
	}
	for _, h := range []string{"전반적 만족도", "강의 내용이 현재 직무에 도움이 되었나요? (1-5점)", "What position in the agenda did you like most?"} {
		if got, ok := eng.RespondentField(h); ok {
			t.Fatalf("RespondentField(%q): want no match got=%s", h, got)
		}
	}
}

func TestVerdictMetadata(t *testing.T) {
	eng := Embedded()
	cases := []struct {
		header string
		want   bool
	}{
		{"본인의 직군을 선택해주세요", true},
		{"이메일", true},
		{"What position in the agenda did you like most?", false},
		{"Q1", false},
	}
	for _, tc := range cases {
		if got := eng.Explain(tc.header).Metadata(); got != tc.want {
			t.Fatalf("Explain(%q).Metadata: want=%v got=%v", tc.header, tc.want, got)
		}
	}
}
