package ids

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ItemPrefix       = "I-"
	MappingPrefix    = "M-"
	RespondentPrefix = "U-"
	ResponsePrefix   = "R-"
	BatchPrefix      = "B-"
)

// New mints prefix + 32 upper-case hex characters from a random UUID.
func New(prefix string) string {
	u := uuid.New()
	return prefix + strings.ToUpper(hex.EncodeToString(u[:]))
}

func Item() string       { return New(ItemPrefix) }
func Mapping() string    { return New(MappingPrefix) }
func Respondent() string { return New(RespondentPrefix) }
func Response() string   { return New(ResponsePrefix) }

// Batch returns B-<yyyymmddThhmmss>-<6 hex>, UTC.
func Batch(now time.Time) string {
	u := uuid.New()
	return BatchPrefix + now.UTC().Format("20060102T150405") + "-" + hex.EncodeToString(u[:3])
}
