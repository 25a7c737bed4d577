package gcp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/surveybridge-backend/internal/pkg/ctxutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

const gsScheme = "gs://"

// UploadArchive keeps the raw bytes of every ingested survey file so a
// course can be re-ingested from the exact upload later.
type UploadArchive interface {
	Put(ctx context.Context, courseID, fileName string, data []byte) (string, error)
	Get(ctx context.Context, uri string) ([]byte, error)
}

type uploadArchive struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	prefix string
	now    func() time.Time
}

func NewUploadArchive(ctx context.Context, log *logger.Logger, cfg ArchiveConfig) (UploadArchive, error) {
	if err := ValidateArchiveConfig(cfg); err != nil {
		return nil, fmt.Errorf("validate archive config: %w", err)
	}
	client, err := newStorageClient(ctxutil.Default(ctx), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	serviceLog := log.With("service", "UploadArchive")
	serviceLog.Info("Upload archive initialized", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "mode", cfg.Mode)
	return &uploadArchive{
		log:    serviceLog,
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		now:    time.Now,
	}, nil
}

func newStorageClient(ctx context.Context, cfg ArchiveConfig) (*storage.Client, error) {
	if cfg.Mode == ObjectStorageModeGCSEmulator {
		_ = os.Setenv("STORAGE_EMULATOR_HOST", cfg.EmulatorHost)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	}
	return storage.NewClient(ctx, ClientOptionsFromEnv(storage.ScopeReadWrite)...)
}

// ObjectKey is prefix/course/yyyymmddThhmmss-name.
func ObjectKey(prefix, courseID, fileName string, at time.Time) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	course := strings.ReplaceAll(strings.TrimSpace(courseID), "/", "_")
	return path.Join(prefix, course, at.UTC().Format("20060102T150405")+"-"+base)
}

func (a *uploadArchive) Put(ctx context.Context, courseID, fileName string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), 2*time.Minute)
	defer cancel()

	key := ObjectKey(a.prefix, courseID, fileName, a.now())
	w := a.client.Bucket(a.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentTypeFor(fileName)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write upload to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	uri := gsScheme + a.bucket + "/" + key
	a.log.Debug("upload archived", "course_id", courseID, "uri", uri, "bytes", len(data))
	return uri, nil
}

func (a *uploadArchive) Get(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	r, err := a.client.Bucket(bucket).Object(key).NewReader(ctxutil.Default(ctx))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// IsURI reports whether s names an archived object.
func IsURI(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), gsScheme)
}

func ParseURI(uri string) (bucket, key string, err error) {
	trimmed := strings.TrimSpace(uri)
	if !strings.HasPrefix(trimmed, gsScheme) {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(trimmed, gsScheme), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed gs:// uri: %q", uri)
	}
	return bucket, key, nil
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
