package gcp

import (
	"errors"
	"testing"
	"time"
)

func TestResolveArchiveConfigFromEnv(t *testing.T) {
	t.Setenv("UPLOAD_ARCHIVE_BUCKET", "survey-raw")
	t.Setenv("UPLOAD_ARCHIVE_PREFIX", "")
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://127.0.0.1:4443/")

	cfg, err := ResolveArchiveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveArchiveConfigFromEnv: %v", err)
	}
	if cfg.Mode != ObjectStorageModeGCSEmulator {
		t.Fatalf("mode: want=%s got=%s", ObjectStorageModeGCSEmulator, cfg.Mode)
	}
	if cfg.EmulatorHost != "http://127.0.0.1:4443" || cfg.Prefix != "survey-uploads" {
		t.Fatalf("cfg: got=%+v", cfg)
	}
	if !cfg.Enabled() {
		t.Fatalf("Enabled: want true")
	}
}

func TestResolveArchiveConfigRejectsBadMode(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "s3")
	_, err := ResolveArchiveConfigFromEnv()
	var cfgErr *ArchiveConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != ArchiveConfigErrorInvalidMode {
		t.Fatalf("want invalid_mode got=%v", err)
	}
}

func TestValidateArchiveConfigEmulatorHost(t *testing.T) {
	err := ValidateArchiveConfig(ArchiveConfig{Mode: ObjectStorageModeGCSEmulator, EmulatorHost: "fake-gcs"})
	var cfgErr *ArchiveConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != ArchiveConfigErrorInvalidEmulatorHost {
		t.Fatalf("want invalid_emulator_host got=%v", err)
	}
}

func TestObjectKeyAndURI(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	key := ObjectKey("survey-uploads", "NCT-1", `C:\exports\1회차 응답.csv`, at)
	if key != "survey-uploads/NCT-1/20240501T100000-1회차 응답.csv" {
		t.Fatalf("ObjectKey: got=%q", key)
	}
	bucket, obj, err := ParseURI("gs://survey-raw/" + key)
	if err != nil || bucket != "survey-raw" || obj != key {
		t.Fatalf("ParseURI: got=(%q,%q,%v)", bucket, obj, err)
	}
	if _, _, err := ParseURI("/tmp/file.csv"); err == nil {
		t.Fatalf("ParseURI: want error for local path")
	}
	if !IsURI(" gs://b/k") || IsURI("b/k") {
		t.Fatalf("IsURI: unexpected result")
	}
}
