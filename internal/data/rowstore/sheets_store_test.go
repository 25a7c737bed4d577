package rowstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

// fakeSheets serves the handful of Sheets v4 endpoints the store uses.
type fakeSheets struct {
	mu        sync.Mutex
	grids     map[string][][]string
	ids       map[string]int64
	nextID    int64
	throttled int
	appends   int
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{grids: map[string][][]string{}, ids: map[string]int64{}, nextID: 100}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rest := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/sid")
	switch {
	case rest == "" && r.Method == http.MethodGet:
		var out sheets.Spreadsheet
		for title, id := range f.ids {
			out.Sheets = append(out.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title, SheetId: id}})
		}
		writeJSON(w, out)
	case rest == ":batchUpdate":
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, q := range req.Requests {
			if q.AddSheet != nil {
				f.ids[q.AddSheet.Properties.Title] = f.nextID
				f.nextID++
				f.grids[q.AddSheet.Properties.Title] = nil
			}
			if q.DeleteDimension != nil {
				title := f.titleOf(q.DeleteDimension.Range.SheetId)
				g := f.grids[title]
				start, end := q.DeleteDimension.Range.StartIndex, q.DeleteDimension.Range.EndIndex
				f.grids[title] = append(g[:start], g[end:]...)
			}
		}
		writeJSON(w, sheets.BatchUpdateSpreadsheetResponse{})
	case strings.HasPrefix(rest, "/values/"):
		rng := strings.TrimPrefix(rest, "/values/")
		if strings.HasSuffix(rng, ":append") {
			if f.throttled > 0 {
				f.throttled--
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Quota exceeded","errors":[{"reason":"rateLimitExceeded"}]}}`))
				return
			}
			title, _, _ := parseRange(strings.TrimSuffix(rng, ":append"))
			var vr sheets.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			f.grids[title] = append(f.grids[title], toStrings(vr.Values[0]))
			f.appends++
			writeJSON(w, sheets.AppendValuesResponse{})
			return
		}
		title, from, to := parseRange(rng)
		if r.Method == http.MethodPut {
			var vr sheets.ValueRange
			_ = json.NewDecoder(r.Body).Decode(&vr)
			g := f.grids[title]
			for len(g) < from {
				g = append(g, nil)
			}
			g[from-1] = toStrings(vr.Values[0])
			f.grids[title] = g
			writeJSON(w, sheets.UpdateValuesResponse{})
			return
		}
		g := f.grids[title]
		out := sheets.ValueRange{Range: rng}
		for i := from; i <= len(g) && (to == 0 || i <= to); i++ {
			row := make([]interface{}, len(g[i-1]))
			for j, v := range g[i-1] {
				row[j] = v
			}
			out.Values = append(out.Values, row)
		}
		writeJSON(w, out)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) titleOf(id int64) string {
	for title, sid := range f.ids {
		if sid == id {
			return title
		}
	}
	return ""
}

// parseRange splits 'Title'!A2:C5 into its title and 1-based row bounds.
func parseRange(rng string) (string, int, int) {
	title, cells, _ := strings.Cut(rng, "!")
	title = strings.ReplaceAll(strings.Trim(title, "'"), "''", "'")
	from, to, _ := strings.Cut(cells, ":")
	return title, rowOf(from), rowOf(to)
}

func rowOf(cell string) int {
	n, _ := strconv.Atoi(strings.TrimLeft(cell, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	return n
}

func toStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i], _ = v.(string)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newSheetsTestStore(t *testing.T) (Store, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("sheets.NewService: %v", err)
	}
	return NewSheetsStore(svc, "sid", logger.Nop()), fake
}

func TestSheetsStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, fake := newSheetsTestStore(t)
	if err := s.(Initializer).EnsureTables(ctx, testTable); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if got := fake.grids["T"]; len(got) != 1 || strings.Join(got[0], ",") != "id,course_id,v" {
		t.Fatalf("header row: got=%v", got)
	}
	for _, row := range [][]string{{"1", "c1", "a"}, {"2", "c2", "b"}, {"3", "c1", "c"}} {
		if err := s.AppendRow(ctx, testTable, row); err != nil {
			t.Fatalf("AppendRow: %v", err)
		}
	}
	if err := s.UpdateRow(ctx, testTable, 2, []string{"2", "c2", "B"}); err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}
	if err := s.DeleteRows(ctx, testTable, []int{1, 3}); err != nil {
		t.Fatalf("DeleteRows: %v", err)
	}
	rows, err := s.FindRows(ctx, testTable, All)
	if err != nil {
		t.Fatalf("FindRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Ref != 1 || rows[0].Field(testTable, "v") != "B" {
		t.Fatalf("rows: got=%+v", rows)
	}
}

func TestSheetsStoreHeaderMismatch(t *testing.T) {
	ctx := context.Background()
	s, fake := newSheetsTestStore(t)
	fake.ids["T"] = 1
	fake.grids["T"] = [][]string{{"id", "v"}}
	err := s.(Initializer).EnsureTables(ctx, testTable)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("EnsureTables: want SchemaError got=%v", err)
	}
}

func TestSheetsStoreRateLimitIsRetried(t *testing.T) {
	ctx := context.Background()
	inner, fake := newSheetsTestStore(t)
	fake.ids["T"] = 1
	fake.throttled = 2

	err := inner.AppendRow(ctx, testTable, []string{"1", "c", "v"})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("AppendRow: want RateLimitError got=%v", err)
	}

	rec := &sleepRecorder{}
	s := Retrying(inner, testPolicy(rec), logger.Nop())
	if err := s.AppendRow(ctx, testTable, []string{"1", "c", "v"}); err != nil {
		t.Fatalf("retried AppendRow: %v", err)
	}
	if fake.appends != 1 || len(rec.delays) != 1 {
		t.Fatalf("appends=%d sleeps=%d: want 1 and 1", fake.appends, len(rec.delays))
	}
}
