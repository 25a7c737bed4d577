package matcher

import (
	"strings"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/normalization"
)

const (
	PassExact   = "exact"
	PassPartial = "partial"
)

// Binding ties one file header to one registry item.
type Binding struct {
	Header string             `json:"header"`
	Item   *survey.SurveyItem `json:"item"`
	Pass   string             `json:"pass"`
}

type Result struct {
	Bindings  []Binding                     `json:"bindings"`
	ByHeader  map[string]*survey.SurveyItem `json:"-"`
	Unmatched []string                      `json:"unmatched"`
}

// Match binds headers to items one-to-one: an exact pass on normalized
// text, then a substring pass in either direction for what is left.
// Both passes are greedy in header order and items are taken in the
// order given, so callers list preferred candidates first. Bindings come
// back in header order.
func Match(headers []string, items []*survey.SurveyItem) Result {
	normHeaders := make([]string, len(headers))
	for i, h := range headers {
		normHeaders[i] = normalization.NormalizeHeader(h)
	}
	normItems := make([]string, len(items))
	for i, it := range items {
		normItems[i] = normalization.NormalizeHeader(it.ItemText)
	}

	bound := make([]int, len(headers))
	pass := make([]string, len(headers))
	for i := range bound {
		bound[i] = -1
	}
	used := make([]bool, len(items))

	for hi, nh := range normHeaders {
		if nh == "" {
			continue
		}
		for ii, ni := range normItems {
			if !used[ii] && ni == nh {
				bound[hi], pass[hi], used[ii] = ii, PassExact, true
				break
			}
		}
	}

	for hi, nh := range normHeaders {
		if bound[hi] >= 0 || nh == "" {
			continue
		}
		for ii, ni := range normItems {
			if used[ii] || ni == "" {
				continue
			}
			if strings.Contains(nh, ni) || strings.Contains(ni, nh) {
				bound[hi], pass[hi], used[ii] = ii, PassPartial, true
				break
			}
		}
	}

	res := Result{ByHeader: make(map[string]*survey.SurveyItem, len(headers))}
	for hi, h := range headers {
		if bound[hi] < 0 {
			res.Unmatched = append(res.Unmatched, h)
			continue
		}
		it := items[bound[hi]]
		res.Bindings = append(res.Bindings, Binding{Header: h, Item: it, Pass: pass[hi]})
		if _, dup := res.ByHeader[h]; !dup {
			res.ByHeader[h] = it
		}
	}
	return res
}

// Candidates orders the registry for matching: preferred items first, then
// every other item once.
func Candidates(preferred, all []*survey.SurveyItem) []*survey.SurveyItem {
	seen := make(map[string]bool, len(all))
	out := make([]*survey.SurveyItem, 0, len(all)+len(preferred))
	for _, list := range [][]*survey.SurveyItem{preferred, all} {
		for _, it := range list {
			if it == nil || seen[it.ItemID] {
				continue
			}
			seen[it.ItemID] = true
			out = append(out, it)
		}
	}
	return out
}
