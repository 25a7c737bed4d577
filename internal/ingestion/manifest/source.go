package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/surveybridge-backend/internal/ingestion/pipeline"
	"github.com/yungbote/surveybridge-backend/internal/platform/gcp"
)

// ArchiveReader fetches archived uploads by gs:// URI.
type ArchiveReader interface {
	Get(ctx context.Context, uri string) ([]byte, error)
}

// Request loads the entry's file into an ingestion request. gs:// sources
// need an archive; their URI becomes the request's SourceURI.
func (e Entry) Request(ctx context.Context, archive ArchiveReader) (pipeline.Request, error) {
	req := pipeline.Request{
		CourseID:    e.CourseID,
		Description: e.Description,
	}
	if gcp.IsURI(e.File) {
		if archive == nil {
			return req, fmt.Errorf("%s: %s needs UPLOAD_ARCHIVE_BUCKET configured", e.CourseID, e.File)
		}
		data, err := archive.Get(ctx, e.File)
		if err != nil {
			return req, fmt.Errorf("%s: fetch %s: %w", e.CourseID, e.File, err)
		}
		req.FileName = e.File[strings.LastIndex(e.File, "/")+1:]
		req.Data = data
		req.SourceURI = e.File
		return req, nil
	}
	data, err := os.ReadFile(e.File)
	if err != nil {
		return req, fmt.Errorf("%s: read %s: %w", e.CourseID, e.File, err)
	}
	req.FileName = filepath.Base(e.File)
	req.Data = data
	return req, nil
}
