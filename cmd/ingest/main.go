package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/surveybridge-backend/internal/app"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/manifest"
	"github.com/yungbote/surveybridge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/services"
	"github.com/yungbote/surveybridge-backend/internal/temporalx"
)

func main() {
	var (
		manifestPath string
		courseID     string
		filePath     string
		description  string
		clearFirst   bool
		dryRun       bool
		durable      bool
	)
	flag.StringVar(&manifestPath, "manifest", "", "YAML manifest of courses to ingest")
	flag.StringVar(&courseID, "course", "", "course_id for a single file")
	flag.StringVar(&filePath, "file", "", "response export (CSV/XLSX, local path or gs:// URI)")
	flag.StringVar(&description, "description", "", "course description for a single file")
	flag.BoolVar(&clearFirst, "clear", false, "empty Responses and Respondents before ingesting")
	flag.BoolVar(&dryRun, "dry-run", false, "classify and infer only; write nothing")
	flag.BoolVar(&durable, "durable", false, "hand the manifest to the Temporal workflow instead of running inline")
	flag.Parse()

	m, err := loadManifest(manifestPath, courseID, filePath, description)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	if clearFirst {
		m.ClearFirst = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if durable {
		if err := startDurable(ctx, log, m); err != nil {
			log.Error("durable run failed to start", "error", err)
			os.Exit(1)
		}
		return
	}

	core, err := app.NewCore(ctx, log, cfg, nil)
	if err != nil {
		log.Error("init ingestion", "error", err)
		os.Exit(1)
	}
	if failed := run(ctx, log, core, m, dryRun); failed > 0 {
		os.Exit(1)
	}
}

func loadManifest(path, courseID, file, description string) (*manifest.Manifest, error) {
	if path != "" {
		return manifest.LoadFile(path)
	}
	m := &manifest.Manifest{Courses: []manifest.Entry{{CourseID: courseID, File: file, Description: description}}}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("need -manifest or both -course and -file: %w", err)
	}
	return m, nil
}

func startDurable(ctx context.Context, log *logger.Logger, m *manifest.Manifest) error {
	tc, err := temporalx.Dial(ctx, log)
	if err != nil {
		return err
	}
	if tc != nil {
		defer tc.Close()
	}
	out, err := services.NewIngestRunService(log, tc).Start(ctx, m)
	if err != nil {
		return err
	}
	return printJSON(out)
}

// run ingests the entries one course at a time, pausing between courses.
// It returns the number of entries that failed.
func run(ctx context.Context, log *logger.Logger, core *app.Core, m *manifest.Manifest, dryRun bool) int {
	if m.ClearFirst && !dryRun {
		cleared, err := core.Ingestor.ClearResponses(ctx)
		if err != nil {
			log.Error("clear failed", "error", err)
			return len(m.Courses)
		}
		log.Info("cleared response tables", "rows", cleared)
	}

	pause := services.CoursePauseFromEnv()
	failed := 0
	for i, entry := range m.Courses {
		if i > 0 && !dryRun {
			if err := ctxutil.Sleep(ctx, pause); err != nil {
				return failed + len(m.Courses) - i
			}
		}
		req, err := entry.Request(ctx, core.ArchiveReader())
		if err != nil {
			log.Error("load source failed", "course_id", entry.CourseID, "error", err)
			failed++
			continue
		}
		if dryRun {
			plan, err := core.Ingestor.Plan(req.FileName, req.Data)
			if err != nil {
				log.Error("plan failed", "course_id", entry.CourseID, "error", err)
				failed++
				continue
			}
			plan.CourseID = entry.CourseID
			_ = printJSON(plan)
			continue
		}
		sum, err := core.Ingestor.IngestFile(ctx, req)
		if sum != nil {
			_ = printJSON(sum)
		}
		if err != nil {
			log.Error("ingest failed", "course_id", entry.CourseID, "error", err)
			failed++
		}
	}
	log.Info("ingest finished", "courses", len(m.Courses), "failed", failed, "dry_run", dryRun)
	return failed
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
