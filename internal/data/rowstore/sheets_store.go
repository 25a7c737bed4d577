package rowstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/sheets/v4"

	"github.com/yungbote/surveybridge-backend/internal/platform/gsheets"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

const rawInput = "RAW"

type sheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	log           *logger.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// NewSheetsStore stores each table as a worksheet whose first row is the
// header; data row ref N lives on sheet row N+1.
func NewSheetsStore(svc *sheets.Service, spreadsheetID string, baseLog *logger.Logger) Store {
	return &sheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		log:           baseLog.With("store", "SheetsStore"),
		sheetIDs:      map[string]int64{},
	}
}

func (s *sheetsStore) EnsureTables(ctx context.Context, tables ...Table) error {
	ids, err := s.loadSheetIDs(ctx)
	if err != nil {
		return err
	}
	var add []*sheets.Request
	for _, t := range tables {
		if _, ok := ids[t.Name]; !ok {
			add = append(add, &sheets.Request{AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: t.Name},
			}})
		}
	}
	if len(add) > 0 {
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: add}
		if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return classify("add_sheets", err)
		}
		s.log.Info("worksheets created", "count", len(add))
		if _, err := s.loadSheetIDs(ctx); err != nil {
			return err
		}
	}
	for _, t := range tables {
		if err := s.ensureHeader(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheetsStore) ensureHeader(ctx context.Context, t Table) error {
	last := gsheets.ColumnLetter(t.Width())
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, gsheets.Range(t.Name, "A1", last+"1")).Context(ctx).Do()
	if err != nil {
		return classify("get_header", err)
	}
	if len(vr.Values) == 0 || len(vr.Values[0]) == 0 {
		return s.writeRow(ctx, "write_header", gsheets.Range(t.Name, "A1", ""), t.Columns)
	}
	got := cellsToStrings(vr.Values[0], len(vr.Values[0]))
	if strings.Join(got, "\x1f") != strings.Join(t.Columns, "\x1f") {
		return &SchemaError{Table: t.Name, Msg: fmt.Sprintf("header row %q does not match %q", got, t.Columns)}
	}
	return nil
}

func (s *sheetsStore) FindRows(ctx context.Context, table Table, match func(Row) bool) ([]Row, error) {
	last := gsheets.ColumnLetter(table.Width())
	vr, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, gsheets.Range(table.Name, "A2", last)).Context(ctx).Do()
	if err != nil {
		return nil, classify("find_rows", err)
	}
	var out []Row
	for i, cells := range vr.Values {
		row := Row{Ref: i + 1, Values: cellsToStrings(cells, table.Width())}
		if match == nil || match(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *sheetsStore) AppendRow(ctx context.Context, table Table, values []string) error {
	if err := CheckWidth(table, values); err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(values)}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, gsheets.Range(table.Name, "A1", ""), vr).
		ValueInputOption(rawInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify("append_row", err)
	}
	return nil
}

func (s *sheetsStore) UpdateRow(ctx context.Context, table Table, ref int, values []string) error {
	if err := CheckWidth(table, values); err != nil {
		return err
	}
	if ref < 1 {
		return fmt.Errorf("%s ref %d: %w", table.Name, ref, ErrRowNotFound)
	}
	return s.writeRow(ctx, "update_row", gsheets.Range(table.Name, fmt.Sprintf("A%d", ref+1), ""), values)
}

func (s *sheetsStore) writeRow(ctx context.Context, op, rng string, values []string) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{stringsToCells(values)}}
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption(rawInput).
		Context(ctx).
		Do(); err != nil {
		return classify(op, err)
	}
	return nil
}

// DeleteRows removes the rows in one batch, highest first.
func (s *sheetsStore) DeleteRows(ctx context.Context, table Table, refs []int) error {
	refs = descendingRefs(refs)
	if len(refs) == 0 {
		return nil
	}
	sheetID, err := s.sheetID(ctx, table.Name)
	if err != nil {
		return err
	}
	reqs := make([]*sheets.Request, 0, len(refs))
	for _, ref := range refs {
		reqs = append(reqs, &sheets.Request{DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(ref),
				EndIndex:   int64(ref + 1),
			},
		}})
	}
	req := &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify("delete_rows", err)
	}
	return nil
}

func (s *sheetsStore) sheetID(ctx context.Context, title string) (int64, error) {
	s.mu.Lock()
	id, ok := s.sheetIDs[title]
	s.mu.Unlock()
	if ok {
		return id, nil
	}
	ids, err := s.loadSheetIDs(ctx)
	if err != nil {
		return 0, err
	}
	id, ok = ids[title]
	if !ok {
		return 0, fmt.Errorf("worksheet %q: %w", title, ErrRowNotFound)
	}
	return id, nil
}

func (s *sheetsStore) loadSheetIDs(ctx context.Context) (map[string]int64, error) {
	sp, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, classify("get_spreadsheet", err)
	}
	ids := map[string]int64{}
	for _, sh := range sp.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		ids[sh.Properties.Title] = sh.Properties.SheetId
	}
	s.mu.Lock()
	s.sheetIDs = ids
	s.mu.Unlock()
	return ids, nil
}

// classify turns quota rejections into *RateLimitError so the retry layer
// can see them.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == 429 {
			return &RateLimitError{Op: op, Cause: err}
		}
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return &RateLimitError{Op: op, Cause: err}
			}
		}
	}
	return fmt.Errorf("sheets %s: %w", op, err)
}

func cellsToStrings(cells []interface{}, width int) []string {
	n := width
	if len(cells) > n {
		n = len(cells)
	}
	out := make([]string, width, n)
	for i, c := range cells {
		if i >= width {
			break
		}
		if c == nil {
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}

func stringsToCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
