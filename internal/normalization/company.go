package normalization

import (
	"strings"
	"unicode"
)

var companyFolder = strings.NewReplacer(
	"주식회사", "",
	"(주)", "",
	"주)", "",
	"㈜", "",
	" ", "",
	".", "",
	",", "",
	"하이닉스", "hynix",
	"에스케이", "sk",
	"이노베이션", "innovation",
	"텔레콤", "telecom",
)

// NormalizeCompanyName folds the spellings respondents use for the same
// affiliate into one canonical name. Unknown names come back title-cased.
func NormalizeCompanyName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	name := companyFolder.Replace(strings.ToLower(trimmed))

	switch {
	case strings.Contains(name, "hynix"):
		return "SKhynix"
	case strings.Contains(name, "innovation"):
		return "SKinnovation"
	case strings.Contains(name, "telecom"):
		return "SKtelecom"
	case name == "skt" || name == "tsk":
		return "SKtelecom"
	}
	if strings.HasPrefix(name, "sk") && len(name) > 2 {
		return "SK" + capitalize(name[2:])
	}
	return titleCase(trimmed)
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func titleCase(s string) string {
	var b strings.Builder
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && !prevCased:
			b.WriteRune(unicode.ToUpper(r))
		case cased:
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}
