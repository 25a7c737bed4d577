package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/surveybridge-backend/internal/data/repos"
	"github.com/yungbote/surveybridge-backend/internal/data/repos/testutil"
	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/reader"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/schema"
	"github.com/yungbote/surveybridge-backend/internal/realtime"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingBus struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBus) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) types() []realtime.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.EventType, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Type)
	}
	return out
}

// failingStore fails response appends whose values contain marker.
type failingStore struct {
	rowstore.Store
	marker string
	err    error
}

func (s *failingStore) AppendRow(ctx context.Context, t rowstore.Table, values []string) error {
	if t.Name == rowstore.Responses.Name {
		for _, v := range values {
			if v == s.marker {
				return s.err
			}
		}
	}
	return s.Store.AppendRow(ctx, t, values)
}

type fixture struct {
	repos    *repos.SurveyRepos
	ingestor *Ingestor
	events   *recordingBus
	sleeps   []time.Duration
}

func newFixture(t *testing.T, store rowstore.Store, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{events: &recordingBus{}}
	if store == nil {
		store = testutil.MemoryStore(t)
	}
	log := testutil.Logger(t)
	f.repos = repos.NewSurveyRepos(store, log)
	opts := Options{
		HashKey: []byte("test-key"),
		Events:  f.events,
		Now:     func() time.Time { return fixedNow },
		Sleep: func(ctx context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.ingestor = NewIngestor(f.repos, schema.Embedded(), opts, log)
	return f
}

func csvFile(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestIngestFileEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"타임스탬프(Timestamp),전반적으로 만족하셨나요? (1-5점)",
		"2024-01-01T00:00Z,4",
	)

	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-1c9x", FileName: "NCT 1회차.csv", Data: data, Description: "Next Chip Talk 1회차"})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if sum.PIIColumns != 1 || sum.QuestionColumns != 1 {
		t.Fatalf("columns: want pii=1 question=1 got pii=%d question=%d", sum.PIIColumns, sum.QuestionColumns)
	}

	items, err := f.repos.Items.List(ctx)
	if err != nil {
		t.Fatalf("List items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items: want=1 got=%d", len(items))
	}
	it := items[0]
	if it.MetricType != survey.MetricLikert || it.ScaleMin == nil || *it.ScaleMin != 1 || it.ScaleMax == nil || *it.ScaleMax != 5 {
		t.Fatalf("item shape: got type=%s min=%v max=%v", it.MetricType, it.ScaleMin, it.ScaleMax)
	}

	respondents, err := f.repos.Respondents.ListByCourse(ctx, "CARD-1c9x")
	if err != nil {
		t.Fatalf("ListByCourse respondents: %v", err)
	}
	if len(respondents) != 1 {
		t.Fatalf("respondents: want=1 got=%d", len(respondents))
	}

	responses, err := f.repos.Responses.ListByCourse(ctx, "CARD-1c9x")
	if err != nil {
		t.Fatalf("ListByCourse responses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("responses: want=1 got=%d", len(responses))
	}
	r := responses[0]
	if r.ResponseValueNum == nil || *r.ResponseValueNum != 4.0 {
		t.Fatalf("response_value_num: want=4 got=%v", r.ResponseValueNum)
	}
	if r.ItemID != it.ItemID || r.RespondentID != respondents[0].RespondentID {
		t.Fatalf("response links: got item=%s respondent=%s", r.ItemID, r.RespondentID)
	}
	if r.SourceRowIndex != 2 {
		t.Fatalf("source_row_index: want=2 got=%d", r.SourceRowIndex)
	}
	if r.Timestamp != "2024-01-01T00:00Z" {
		t.Fatalf("timestamp: want=2024-01-01T00:00Z got=%q", r.Timestamp)
	}
	if r.IngestBatchID != sum.BatchID || r.ResponseValue != "4" || r.CommentText != "4" {
		t.Fatalf("response fields: got=%+v", r)
	}

	course, err := f.repos.Courses.Get(ctx, "CARD-1c9x")
	if err != nil {
		t.Fatalf("Get course: %v", err)
	}
	if course.Theme != "Next Chip Talk 1회차" || course.ResponseSourceFile != "NCT 1회차.csv" || course.Status != survey.CourseStatusActive {
		t.Fatalf("course: got=%+v", course)
	}

	got := f.events.types()
	if len(got) != 2 || got[0] != realtime.EventIngestStarted || got[1] != realtime.EventIngestCompleted {
		t.Fatalf("events: got=%v", got)
	}
}

func TestIngestFileSkipsUnparseableNumericCell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"강의 내용에 전반적으로 만족하셨나요? (1-5점),강의 난이도는 적절했나요? (1-5점),강의 내용을 이해하셨나요? (1-5점),새로운 인사이트를 얻으셨나요? (1-5점),운영 전반에 만족하셨나요? (1-5점)",
		"4,5,abc,3,2",
	)
	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-1", FileName: "s.csv", Data: data})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if sum.Responses != 4 {
		t.Fatalf("responses: want=4 got=%d", sum.Responses)
	}
	if sum.Skipped[SkipNonNumeric] != 1 {
		t.Fatalf("non_numeric skips: want=1 got=%d", sum.Skipped[SkipNonNumeric])
	}
	if len(sum.FailedRows) != 0 || len(sum.FailedCells) != 0 {
		t.Fatalf("failures: want none got rows=%v cells=%v", sum.FailedRows, sum.FailedCells)
	}
	stored, err := f.repos.Responses.ListByBatch(ctx, sum.BatchID)
	if err != nil {
		t.Fatalf("ListByBatch: %v", err)
	}
	if len(stored) != 4 {
		t.Fatalf("stored: want=4 got=%d", len(stored))
	}
}

func TestIngestFileSkipReasons(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"기타 의견을 자유롭게 작성해주세요,전반적으로 만족하셨나요? (1-5점)",
		",5",
		"nan,None",
		"좋았습니다,4",
	)
	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-2", FileName: "s.csv", Data: data})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if sum.Rows != 3 || sum.Respondents != 3 {
		t.Fatalf("rows: want rows=3 respondents=3 got rows=%d respondents=%d", sum.Rows, sum.Respondents)
	}
	if sum.Responses != 3 {
		t.Fatalf("responses: want=3 got=%d", sum.Responses)
	}
	if sum.Skipped[SkipEmpty] != 1 || sum.Skipped[SkipPlaceholder] != 2 {
		t.Fatalf("skipped: got=%v", sum.Skipped)
	}
}

func TestIngestFileRespondentFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"소속 회사명을 작성해주세요,성함을 작성해주세요,이메일,전반적으로 만족하셨나요? (1-5점)",
		"SK하이닉스,김철수,Kim@Example.com,5",
	)
	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-3", FileName: "s.csv", Data: data})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if sum.QuestionColumns != 2 || sum.PIIColumns != 2 {
		t.Fatalf("columns: want question=2 pii=2 got question=%d pii=%d", sum.QuestionColumns, sum.PIIColumns)
	}
	got, err := f.repos.Respondents.ListByCourse(ctx, "CARD-3")
	if err != nil || len(got) != 1 {
		t.Fatalf("respondents: err=%v n=%d", err, len(got))
	}
	p := got[0]
	if p.Company != "SKhynix" || p.Name != "김철수" || p.Email != "Kim@Example.com" {
		t.Fatalf("respondent: got=%+v", p)
	}
	if want := hashContact([]byte("test-key"), "kim@example.com", ""); p.HashedContact != want || want == "" {
		t.Fatalf("hashed_contact: want=%s got=%s", want, p.HashedContact)
	}
	if sum.Responses != 2 {
		t.Fatalf("responses: want=2 got=%d", sum.Responses)
	}
}

func TestIngestFileKeepsQuestionAnswersOutOfRespondent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"본인의 직군을 선택해주세요,강의 내용이 현재 직무에 도움이 되었나요? (1-5점),What position in the agenda did you like most?",
		"엔지니어,4,the keynote",
		",5,the panel",
	)
	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-9", FileName: "s.csv", Data: data})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	want := []string{schema.FieldJobRole, "", ""}
	for i, c := range sum.Columns {
		if c.RespondentField != want[i] {
			t.Fatalf("column %d respondent_field: want=%q got=%q", i, want[i], c.RespondentField)
		}
	}
	got, err := f.repos.Respondents.ListByCourse(ctx, "CARD-9")
	if err != nil || len(got) != 2 {
		t.Fatalf("respondents: err=%v n=%d", err, len(got))
	}
	roles := map[string]bool{}
	for _, p := range got {
		roles[p.JobRole] = true
	}
	if !roles["엔지니어"] || !roles[""] || len(roles) != 2 {
		t.Fatalf("job_role values: want {엔지니어, empty} got=%v", roles)
	}
}

func TestIngestFileCommaSeparatedAnswersAreNotNumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"강의 난이도는 적절했나요? (1-5점),관심 있는 세션을 모두 선택해주세요",
		`"4,5","1,3"`,
	)
	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-10", FileName: "s.csv", Data: data})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if sum.Skipped[SkipNonNumeric] != 1 || sum.Responses != 1 {
		t.Fatalf("want one non_numeric skip and one response got skipped=%v responses=%d", sum.Skipped, sum.Responses)
	}
	stored, err := f.repos.Responses.ListByBatch(ctx, sum.BatchID)
	if err != nil || len(stored) != 1 {
		t.Fatalf("stored: err=%v n=%d", err, len(stored))
	}
	if r := stored[0]; r.ResponseValue != "1,3" || r.ResponseValueNum != nil {
		t.Fatalf("multi-select response: want value=1,3 num=nil got value=%q num=%v", r.ResponseValue, r.ResponseValueNum)
	}
}

func TestIngestFileIsIdempotentOnRegistry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"강의 난이도는 적절했나요? (1-5점),추천 의향 (0~10)",
		"3,9",
	)
	first, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-4", FileName: "a.csv", Data: data})
	if err != nil {
		t.Fatalf("first IngestFile: %v", err)
	}
	second, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-4", FileName: "a.csv", Data: data})
	if err != nil {
		t.Fatalf("second IngestFile: %v", err)
	}
	if first.ItemsRegistered != 2 || second.ItemsRegistered != 0 || second.ItemsReused != 2 {
		t.Fatalf("registry: first=%d second new=%d reused=%d", first.ItemsRegistered, second.ItemsRegistered, second.ItemsReused)
	}
	if second.Mapping.Removed != 2 || second.Mapping.Created != 2 {
		t.Fatalf("remap: got=%+v", second.Mapping)
	}
	items, _ := f.repos.Items.List(ctx)
	if len(items) != 2 {
		t.Fatalf("items: want=2 got=%d", len(items))
	}
	mappings, _ := f.repos.Mappings.ListByCourse(ctx, "CARD-4")
	if len(mappings) != 2 {
		t.Fatalf("mappings: want=2 got=%d", len(mappings))
	}
}

func TestIngestFileRecordsCellFailureAndContinues(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: testutil.MemoryStore(t), marker: "7", err: errors.New("boom")}
	f := newFixture(t, store, nil)
	data := csvFile(
		"강의 난이도는 적절했나요? (1-5점),운영 전반에 만족하셨나요? (1-5점)",
		"1,7",
		"3,4",
	)
	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-5", FileName: "s.csv", Data: data})
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if sum.Responses != 3 || len(sum.FailedCells) != 1 {
		t.Fatalf("want responses=3 failed=1 got responses=%d failed=%d", sum.Responses, len(sum.FailedCells))
	}
	if fc := sum.FailedCells[0]; fc.Row != 2 || fc.Error != "boom" {
		t.Fatalf("failed cell: got=%+v", fc)
	}
}

func TestIngestFileAbortsOnSchemaError(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: testutil.MemoryStore(t), marker: "1", err: &rowstore.SchemaError{Table: "Responses", Want: 11, Got: 10}}
	f := newFixture(t, store, nil)
	data := csvFile(
		"강의 난이도는 적절했나요? (1-5점)",
		"1",
		"3",
	)
	sum, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-6", FileName: "s.csv", Data: data})
	var se *rowstore.SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("IngestFile: want SchemaError got=%v", err)
	}
	if sum == nil || sum.Rows != 1 {
		t.Fatalf("summary: want rows=1 got=%+v", sum)
	}
	got := f.events.types()
	if got[len(got)-1] != realtime.EventIngestFailed {
		t.Fatalf("last event: want=%s got=%v", realtime.EventIngestFailed, got)
	}
}

func TestIngestFileRejectsBadFiles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)

	_, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-7", FileName: "empty.csv", Data: nil})
	var fe *reader.FileError
	if !errors.As(err, &fe) || fe.Code != reader.FileErrorEmpty {
		t.Fatalf("empty file: want FileError(empty_file) got=%v", err)
	}

	_, err = f.ingestor.IngestFile(ctx, Request{CourseID: "", FileName: "x.csv", Data: []byte("a\n1\n")})
	if err == nil {
		t.Fatalf("missing course id: want error")
	}

	_, err = f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-7", FileName: "pii.csv", Data: csvFile("이메일,성함", "a@b.c,김")})
	if err == nil {
		t.Fatalf("no question columns: want error")
	}
}

func TestIngestFilePausesEveryNRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, func(o *Options) {
		o.PauseEvery = 2
		o.RowPause = 500 * time.Millisecond
	})
	data := csvFile("강의 난이도는 적절했나요? (1-5점)", "1", "2", "3", "4", "5")
	if _, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-8", FileName: "s.csv", Data: data}); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if len(f.sleeps) != 2 || f.sleeps[0] != 500*time.Millisecond {
		t.Fatalf("sleeps: want 2x500ms got=%v", f.sleeps)
	}
	progress := 0
	for _, typ := range f.events.types() {
		if typ == realtime.EventIngestProgress {
			progress++
		}
	}
	if progress != 2 {
		t.Fatalf("progress events: want=2 got=%d", progress)
	}
}

func TestPlanWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile(
		"타임스탬프,추천 의향 (0~10),기타 의견을 자유롭게 작성해주세요",
		"2024-01-01,9,좋음",
	)
	sum, err := f.ingestor.Plan("plan.csv", data)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !sum.DryRun || len(sum.Columns) != 3 || sum.Rows != 1 {
		t.Fatalf("plan: got=%+v", sum)
	}
	nps := sum.Columns[1]
	if nps.Class != schema.ClassQuestion || nps.Inference == nil || nps.Inference.MetricType != survey.MetricNPS || nps.ItemCode == "" {
		t.Fatalf("nps column: got=%+v", nps)
	}
	if sum.Columns[0].RespondentField != schema.FieldTimestamp {
		t.Fatalf("timestamp column: got=%+v", sum.Columns[0])
	}
	items, _ := f.repos.Items.List(ctx)
	if len(items) != 0 {
		t.Fatalf("Plan wrote items: %d", len(items))
	}
}

func TestClearResponses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, nil)
	data := csvFile("강의 난이도는 적절했나요? (1-5점)", "1", "2")
	if _, err := f.ingestor.IngestFile(ctx, Request{CourseID: "CARD-9", FileName: "s.csv", Data: data}); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	removed, err := f.ingestor.ClearResponses(ctx)
	if err != nil {
		t.Fatalf("ClearResponses: %v", err)
	}
	if removed[rowstore.Responses.Name] != 2 || removed[rowstore.Respondents.Name] != 2 {
		t.Fatalf("removed: got=%v", removed)
	}
	items, _ := f.repos.Items.List(ctx)
	if len(items) != 1 {
		t.Fatalf("items must survive clear: got=%d", len(items))
	}
}
