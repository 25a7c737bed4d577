package ids

import (
	"regexp"
	"testing"
	"time"
)

func TestNewShape(t *testing.T) {
	re := regexp.MustCompile(`^I-[0-9A-F]{32}$`)
	a, b := Item(), Item()
	if !re.MatchString(a) {
		t.Fatalf("Item: unexpected shape %q", a)
	}
	if a == b {
		t.Fatalf("Item: want distinct ids got=%q", a)
	}
}

func TestBatchShape(t *testing.T) {
	ts := time.Date(2024, 3, 5, 9, 7, 1, 0, time.FixedZone("KST", 9*3600))
	got := Batch(ts)
	re := regexp.MustCompile(`^B-20240305T000701-[0-9a-f]{6}$`)
	if !re.MatchString(got) {
		t.Fatalf("Batch: want UTC stamp got=%q", got)
	}
}
