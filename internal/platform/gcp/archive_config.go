package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

type ObjectStorageMode string

const (
	ObjectStorageModeGCS         ObjectStorageMode = "gcs"
	ObjectStorageModeGCSEmulator ObjectStorageMode = "gcs_emulator"
)

type ArchiveConfig struct {
	Bucket       string
	Prefix       string
	Mode         ObjectStorageMode
	EmulatorHost string
}

func (cfg ArchiveConfig) Enabled() bool { return strings.TrimSpace(cfg.Bucket) != "" }

type ArchiveConfigErrorCode string

const (
	ArchiveConfigErrorInvalidMode         ArchiveConfigErrorCode = "invalid_mode"
	ArchiveConfigErrorMissingEmulatorHost ArchiveConfigErrorCode = "missing_emulator_host"
	ArchiveConfigErrorInvalidEmulatorHost ArchiveConfigErrorCode = "invalid_emulator_host"
)

type ArchiveConfigError struct {
	Code  ArchiveConfigErrorCode
	Value string
	Cause error
}

func (e *ArchiveConfigError) Error() string {
	if e == nil {
		return "invalid upload archive config"
	}
	switch e.Code {
	case ArchiveConfigErrorInvalidMode:
		return fmt.Sprintf(
			"invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)",
			e.Value,
			ObjectStorageModeGCS,
			ObjectStorageModeGCSEmulator,
		)
	case ArchiveConfigErrorMissingEmulatorHost:
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST to be set", ObjectStorageModeGCSEmulator)
	case ArchiveConfigErrorInvalidEmulatorHost:
		return fmt.Sprintf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", e.Value)
	default:
		return "invalid upload archive config"
	}
}

func (e *ArchiveConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ResolveArchiveConfigFromEnv reads UPLOAD_ARCHIVE_BUCKET, UPLOAD_ARCHIVE_PREFIX,
// OBJECT_STORAGE_MODE and STORAGE_EMULATOR_HOST. An empty bucket disables
// archiving and is not an error.
func ResolveArchiveConfigFromEnv() (ArchiveConfig, error) {
	cfg := ArchiveConfig{
		Bucket:       strings.TrimSpace(os.Getenv("UPLOAD_ARCHIVE_BUCKET")),
		Prefix:       strings.Trim(strings.TrimSpace(os.Getenv("UPLOAD_ARCHIVE_PREFIX")), "/"),
		EmulatorHost: strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/"),
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "survey-uploads"
	}

	rawMode := strings.TrimSpace(os.Getenv("OBJECT_STORAGE_MODE"))
	switch ObjectStorageMode(strings.ToLower(rawMode)) {
	case "":
		cfg.Mode = ObjectStorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = ObjectStorageModeGCSEmulator
		}
	case ObjectStorageModeGCS:
		cfg.Mode = ObjectStorageModeGCS
	case ObjectStorageModeGCSEmulator:
		cfg.Mode = ObjectStorageModeGCSEmulator
	default:
		return cfg, &ArchiveConfigError{Code: ArchiveConfigErrorInvalidMode, Value: rawMode}
	}

	if err := ValidateArchiveConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func ValidateArchiveConfig(cfg ArchiveConfig) error {
	switch cfg.Mode {
	case ObjectStorageModeGCS:
		return nil
	case ObjectStorageModeGCSEmulator:
	default:
		return &ArchiveConfigError{Code: ArchiveConfigErrorInvalidMode, Value: string(cfg.Mode)}
	}
	if cfg.EmulatorHost == "" {
		return &ArchiveConfigError{Code: ArchiveConfigErrorMissingEmulatorHost}
	}
	u, err := url.Parse(cfg.EmulatorHost)
	if err != nil || strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return &ArchiveConfigError{
			Code:  ArchiveConfigErrorInvalidEmulatorHost,
			Value: cfg.EmulatorHost,
			Cause: err,
		}
	}
	return nil
}
