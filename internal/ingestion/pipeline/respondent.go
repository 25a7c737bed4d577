package pipeline

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/reader"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/schema"
	"github.com/yungbote/surveybridge-backend/internal/normalization"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ids"
)

// hashContact is hex(BLAKE2b-256) over the lower-cased email and the phone
// digits. Keys longer than 64 bytes are hashed down first.
func hashContact(key []byte, email, phone string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
	if email == "" && digits == "" {
		return ""
	}
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return ""
	}
	_, _ = h.Write([]byte(email + "|" + digits))
	return hex.EncodeToString(h.Sum(nil))
}

// extractRespondent builds the identity record for one row. Every column
// with a respondent field is tried; the first non-empty value per field
// wins. PII columns without a field land in extra_meta keyed by header.
func extractRespondent(courseID string, cols []ColumnPlan, row reader.Row, hashKey []byte, now time.Time) (*survey.Respondent, string) {
	p := &survey.Respondent{
		RespondentID: ids.Respondent(),
		CourseID:     courseID,
		CreatedAt:    now.UTC(),
	}
	var timestamp string
	extra := map[string]string{}
	for _, c := range cols {
		if c.Position >= len(row.Cells) {
			continue
		}
		v, reason := cleanCell(row.Cells[c.Position])
		if reason != "" {
			continue
		}
		if c.RespondentField == "" {
			if c.Class == schema.ClassPII {
				extra[c.Header] = v
			}
			continue
		}
		var dst *string
		switch c.RespondentField {
		case schema.FieldTimestamp:
			dst = &timestamp
		case schema.FieldPIIConsent:
			dst = &p.PIIConsent
		case schema.FieldCompany:
			dst = &p.Company
		case schema.FieldDepartment:
			dst = &p.Department
		case schema.FieldJobRole:
			dst = &p.JobRole
		case schema.FieldTenure:
			dst = &p.TenureYears
		case schema.FieldName:
			dst = &p.Name
		case schema.FieldPhone:
			dst = &p.Phone
		case schema.FieldEmail:
			dst = &p.Email
		}
		if dst != nil && *dst == "" {
			*dst = v
		}
	}
	if p.Company != "" {
		p.Company = normalization.NormalizeCompanyName(p.Company)
	}
	p.HashedContact = hashContact(hashKey, p.Email, p.Phone)
	if len(extra) > 0 {
		if raw, err := json.Marshal(extra); err == nil {
			p.ExtraMeta = string(raw)
		}
	}
	return p, timestamp
}
