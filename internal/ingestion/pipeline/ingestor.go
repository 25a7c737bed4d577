package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/surveybridge-backend/internal/data/repos"
	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/domain/survey"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/mapping"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/matcher"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/reader"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/registry"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/schema"
	"github.com/yungbote/surveybridge-backend/internal/observability"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ctxutil"
	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ids"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/realtime"
)

// Ingestor runs response files through classification, registration,
// mapping and response writing. Runs are serialized.
type Ingestor struct {
	repos    *repos.SurveyRepos
	engine   *schema.Engine
	registry *registry.Registry
	mappings *mapping.Manager
	opts     Options
	log      *logger.Logger

	mu sync.Mutex
}

func NewIngestor(r *repos.SurveyRepos, engine *schema.Engine, opts Options, baseLog *logger.Logger) *Ingestor {
	return &Ingestor{
		repos:    r,
		engine:   engine,
		registry: registry.New(r.Items, engine, baseLog),
		mappings: mapping.NewManager(r.Mappings, r.Items, baseLog),
		opts:     opts.withDefaults(),
		log:      baseLog.With("service", "Ingestor"),
	}
}

func (in *Ingestor) Registry() *registry.Registry { return in.registry }

func (in *Ingestor) Mappings() *mapping.Manager { return in.mappings }

type boundColumn struct {
	pos    int
	header string
	item   *survey.SurveyItem
}

type run struct {
	req        Request
	summary    *Summary
	columns    []ColumnPlan
	bound      []boundColumn
	fallbackTS string
}

// IngestFile ingests one export. File-level problems (*reader.FileError, no
// question columns) and store failures that cannot be retried
// (*rowstore.SchemaError, an exhausted rate-limit budget, cancellation)
// return an error; the summary is returned alongside whenever one exists.
// Row and cell failures never abort the file.
func (in *Ingestor) IngestFile(ctx context.Context, req Request) (*Summary, error) {
	ctx = ctxutil.Default(ctx)
	req.CourseID = strings.TrimSpace(req.CourseID)
	if req.CourseID == "" {
		return nil, fmt.Errorf("%w: course_id required", apperr.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.FileName) == "" {
		req.FileName = "upload"
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	ctx, span := observability.Tracer("ingestion").Start(ctx, "pipeline.IngestFile")
	span.SetAttributes(
		attribute.String("course_id", req.CourseID),
		attribute.String("file_name", req.FileName),
	)
	defer span.End()

	started := in.opts.Now()
	log := in.log.With("course_id", req.CourseID, "file_name", req.FileName)
	log = log.With(ctxutil.TraceFields(ctx)...)
	summary := &Summary{
		CourseID:  req.CourseID,
		FileName:  req.FileName,
		BatchID:   ids.Batch(started),
		Skipped:   map[SkipReason]int{},
		Unmatched: []string{},
		StartedAt: started.UTC(),
	}
	r := &run{req: req, summary: summary, fallbackTS: started.UTC().Format(time.RFC3339)}
	in.publish(ctx, r, realtime.EventIngestStarted, map[string]interface{}{"file_name": req.FileName})

	err := in.ingest(ctx, r, log)
	r.summary.FinishedAt = in.opts.Now().UTC()

	status := "succeeded"
	if err != nil {
		status = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("ingestion failed", "error", err, "rows", r.summary.Rows, "responses", r.summary.Responses)
		in.publish(ctx, r, realtime.EventIngestFailed, map[string]interface{}{"error": err.Error()})
	} else {
		log.Info("ingestion completed",
			"batch_id", r.summary.BatchID,
			"rows", r.summary.Rows,
			"respondents", r.summary.Respondents,
			"responses", r.summary.Responses,
			"skipped", r.summary.SkippedTotal(),
			"failed_cells", len(r.summary.FailedCells),
			"unmatched", len(r.summary.Unmatched),
		)
		in.publish(ctx, r, realtime.EventIngestCompleted, map[string]interface{}{
			"rows":      r.summary.Rows,
			"responses": r.summary.Responses,
			"skipped":   r.summary.SkippedTotal(),
		})
	}
	skipped := make(map[string]int, len(r.summary.Skipped))
	for k, v := range r.summary.Skipped {
		skipped[string(k)] = v
	}
	observability.Current().ObserveIngest(observability.IngestStats{
		Status:          status,
		Duration:        r.summary.FinishedAt.Sub(r.summary.StartedAt),
		CellsWritten:    r.summary.Responses,
		CellsFailed:     len(r.summary.FailedCells),
		Skipped:         skipped,
		ItemsRegistered: r.summary.ItemsRegistered,
	})
	observability.ReportSkippedCells(ctx, log, req.CourseID, r.summary.Responses, skipped)
	span.SetAttributes(attribute.Int("responses", r.summary.Responses))
	return r.summary, err
}

func (in *Ingestor) ingest(ctx context.Context, r *run, log *logger.Logger) error {
	table, err := reader.Read(r.req.FileName, r.req.Data)
	if err != nil {
		return err
	}
	s := r.summary
	s.Format, s.Encoding, s.Sheet = table.Format, table.Encoding, table.Sheet
	r.columns = in.planColumns(table.Headers, false)
	s.Columns = r.columns
	countColumns(s)
	if s.QuestionColumns == 0 {
		return fmt.Errorf("%w: no question columns in %s", apperr.ErrInvalidArgument, r.req.FileName)
	}

	if err := in.registry.Load(ctx); err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	registered, err := in.registry.RegisterHeaders(ctx, table.Headers)
	if err != nil {
		return fmt.Errorf("register items: %w", err)
	}
	fileItems := make([]*survey.SurveyItem, 0, len(registered))
	questionHeaders := make([]string, 0, len(registered))
	positions := make([]int, 0, len(registered))
	for _, reg := range registered {
		if reg.Created {
			s.ItemsRegistered++
		} else {
			s.ItemsReused++
		}
		fileItems = append(fileItems, reg.Item)
		questionHeaders = append(questionHeaders, reg.Header)
		positions = append(positions, reg.Position)
		col := &s.Columns[reg.Position]
		col.ItemCode, col.ItemID = reg.Item.ItemCode, reg.Item.ItemID
	}

	s.Mapping, err = in.mappings.Remap(ctx, r.req.CourseID, fileItems)
	if err != nil {
		return fmt.Errorf("remap course: %w", err)
	}

	res := matcher.Match(questionHeaders, matcher.Candidates(fileItems, in.registry.Items()))
	bi := 0
	for i, h := range questionHeaders {
		if bi < len(res.Bindings) && res.Bindings[bi].Header == h {
			r.bound = append(r.bound, boundColumn{pos: positions[i], header: h, item: res.Bindings[bi].Item})
			bi++
		}
	}
	s.BoundColumns = len(r.bound)
	s.Unmatched = append(s.Unmatched, res.Unmatched...)
	for _, h := range res.Unmatched {
		log.Warn("header not matched to any item", "header", h)
	}

	if err := in.upsertCourse(ctx, r, log); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}

	total := len(table.Rows)
	for i, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		rr, err := in.ingestRow(ctx, r, row)
		s.Rows++
		if rr.RespondentID != "" && rr.Error == "" {
			s.Respondents++
		}
		for _, c := range rr.Cells {
			switch {
			case c.ResponseID != "":
				s.Responses++
			case c.Skipped != "":
				s.Skipped[c.Skipped]++
			case c.Error != "":
				s.FailedCells = append(s.FailedCells, c)
			}
		}
		if rr.Error != "" {
			s.FailedRows = append(s.FailedRows, rr)
			log.Warn("row failed", "row", rr.Row, "error", rr.Error)
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", row.Number, err)
		}
		if in.opts.PauseEvery > 0 && (i+1)%in.opts.PauseEvery == 0 {
			log.Debug("ingest progress", "rows_done", i+1, "rows_total", total)
			in.publish(ctx, r, realtime.EventIngestProgress, map[string]interface{}{
				"rows_done":  i + 1,
				"rows_total": total,
				"responses":  s.Responses,
			})
			if err := in.opts.Sleep(ctx, in.opts.RowPause); err != nil {
				return err
			}
		}
	}
	return nil
}

// ingestRow writes the respondent and every bound answer of one row. The
// returned error is set only for failures that must stop the file.
func (in *Ingestor) ingestRow(ctx context.Context, r *run, row reader.Row) (RowResult, error) {
	rr := RowResult{Row: row.Number}
	p, ts := extractRespondent(r.req.CourseID, r.columns, row, in.opts.HashKey, in.opts.Now())
	rr.RespondentID = p.RespondentID
	if err := in.repos.Respondents.Upsert(ctx, p); err != nil {
		rr.Error = err.Error()
		if fatal(ctx, err) {
			return rr, err
		}
		return rr, nil
	}
	if ts == "" {
		ts = r.fallbackTS
	}
	for _, col := range r.bound {
		cr := CellResult{Row: row.Number, Header: col.header, ItemID: col.item.ItemID}
		raw := ""
		if col.pos < len(row.Cells) {
			raw = row.Cells[col.pos]
		}
		value, num, reason := coerceCell(raw, col.item.MetricType)
		if reason != "" {
			cr.Skipped = reason
			rr.Cells = append(rr.Cells, cr)
			continue
		}
		resp := newResponse(col.item, value, num)
		resp.ResponseID = ids.Response()
		resp.CourseID = r.req.CourseID
		resp.RespondentID = p.RespondentID
		resp.Timestamp = ts
		resp.SourceRowIndex = row.Number
		resp.IngestBatchID = r.summary.BatchID
		if err := in.repos.Responses.Create(ctx, &resp); err != nil {
			cr.Error = err.Error()
			rr.Cells = append(rr.Cells, cr)
			if fatal(ctx, err) {
				return rr, err
			}
			continue
		}
		cr.ResponseID = resp.ResponseID
		rr.Cells = append(rr.Cells, cr)
	}
	return rr, nil
}

func (in *Ingestor) upsertCourse(ctx context.Context, r *run, log *logger.Logger) error {
	source := r.req.FileName
	switch {
	case r.req.SourceURI != "":
		source = r.req.SourceURI
	case in.opts.Archive != nil:
		uri, err := in.opts.Archive.Put(ctx, r.req.CourseID, r.req.FileName, r.req.Data)
		if err != nil {
			log.Warn("upload archive failed, continuing", "error", err)
		} else {
			source = uri
		}
	}
	r.summary.SourceFile = source

	now := in.opts.Now().UTC()
	c, err := in.repos.Courses.Get(ctx, r.req.CourseID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c = &survey.Course{
			CourseID:  r.req.CourseID,
			Theme:     strings.TrimSpace(r.req.Description),
			CreatedAt: now,
		}
	case err != nil:
		return err
	}
	if c.Theme == "" {
		c.Theme = strings.TrimSpace(r.req.Description)
	}
	c.ResponseSourceFile = source
	c.Status = survey.CourseStatusActive
	c.UpdatedAt = now
	return in.repos.Courses.Upsert(ctx, c)
}

// Plan reads and classifies a file without touching the store.
func (in *Ingestor) Plan(name string, data []byte) (*Summary, error) {
	table, err := reader.Read(name, data)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		FileName:  name,
		Format:    table.Format,
		Encoding:  table.Encoding,
		Sheet:     table.Sheet,
		DryRun:    true,
		Columns:   in.planColumns(table.Headers, true),
		Rows:      len(table.Rows),
		Skipped:   map[SkipReason]int{},
		Unmatched: []string{},
	}
	countColumns(s)
	return s, nil
}

// ClearResponses empties the Responses and Respondents tables.
func (in *Ingestor) ClearResponses(ctx context.Context) (map[string]int, error) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.repos.Clear(ctx, rowstore.Responses, rowstore.Respondents)
}

func (in *Ingestor) planColumns(headers []string, withCodes bool) []ColumnPlan {
	out := make([]ColumnPlan, len(headers))
	for i, h := range headers {
		v := in.engine.Explain(h)
		c := ColumnPlan{Position: i, Header: h, Class: v.Class, Rule: v.Rule}
		if v.Metadata() {
			if f, ok := in.engine.RespondentField(h); ok {
				c.RespondentField = f
			}
		}
		if v.Class == schema.ClassQuestion {
			inf := in.engine.Infer(h)
			c.Inference = &inf
			if withCodes {
				d := in.engine.DescribeItem(h, i)
				c.ItemCode = registry.Code(d.ItemText, d.Dimension, d.MetricType)
			}
		}
		out[i] = c
	}
	return out
}

func countColumns(s *Summary) {
	for _, c := range s.Columns {
		switch c.Class {
		case schema.ClassQuestion:
			s.QuestionColumns++
		case schema.ClassPII:
			s.PIIColumns++
		default:
			s.NoiseColumns++
		}
	}
}

func (in *Ingestor) publish(ctx context.Context, r *run, t realtime.EventType, data map[string]interface{}) {
	if in.opts.Events == nil {
		return
	}
	ev := realtime.Event{
		Channel: r.req.CourseID,
		Type:    t,
		BatchID: r.summary.BatchID,
		At:      in.opts.Now().UTC(),
		Data:    data,
	}
	if err := in.opts.Events.Publish(ctx, ev); err != nil {
		in.log.Warn("publish ingest event failed", "type", string(t), "error", err)
	}
}

// fatal reports errors after which no further store call can succeed.
func fatal(ctx context.Context, err error) bool {
	var se *rowstore.SchemaError
	switch {
	case errors.As(err, &se):
		return true
	case rowstore.IsRateLimited(err):
		return true
	case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return true
	}
	return false
}
