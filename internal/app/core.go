package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/surveybridge-backend/internal/data/repos"
	"github.com/yungbote/surveybridge-backend/internal/data/rowstore"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/manifest"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/pipeline"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/schema"
	"github.com/yungbote/surveybridge-backend/internal/platform/gcp"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/realtime/bus"
)

// Core is the ingestion stack shared by the API server and the CLI.
type Core struct {
	Log      *logger.Logger
	Store    rowstore.Store
	DB       *gorm.DB
	Repos    *repos.SurveyRepos
	Engine   *schema.Engine
	Ingestor *pipeline.Ingestor
	Archive  gcp.UploadArchive
}

// NewCore opens the row store, the optional upload archive and builds the
// ingestor. events may be nil.
func NewCore(ctx context.Context, log *logger.Logger, cfg Config, events bus.Bus) (*Core, error) {
	store, gormDB, err := openStore(ctx, log, cfg.StoreBackend)
	if err != nil {
		return nil, err
	}

	archiveCfg, err := gcp.ResolveArchiveConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("upload archive config: %w", err)
	}
	var archive gcp.UploadArchive
	if archiveCfg.Enabled() {
		archive, err = gcp.NewUploadArchive(ctx, log, archiveCfg)
		if err != nil {
			return nil, err
		}
	}

	engine := schema.Default(log)
	reposet := repos.NewSurveyRepos(store, log)
	opts := pipeline.OptionsFromEnv()
	opts.Archive = archive
	opts.Events = events

	return &Core{
		Log:      log,
		Store:    store,
		DB:       gormDB,
		Repos:    reposet,
		Engine:   engine,
		Ingestor: pipeline.NewIngestor(reposet, engine, opts, log),
		Archive:  archive,
	}, nil
}

// ArchiveReader returns the archive as a manifest source, or nil when
// archiving is off.
func (c *Core) ArchiveReader() manifest.ArchiveReader {
	if c == nil || c.Archive == nil {
		return nil
	}
	return c.Archive
}
