package gsheets

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/yungbote/surveybridge-backend/internal/platform/gcp"
)

type Config struct {
	SpreadsheetID string
	// Endpoint overrides the API base URL (local fakes).
	Endpoint string
}

type ConfigErrorCode string

const (
	ConfigErrorMissingSpreadsheetID ConfigErrorCode = "missing_spreadsheet_id"
	ConfigErrorInvalidEndpoint      ConfigErrorCode = "invalid_endpoint"
)

type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid google sheets config"
	}
	switch e.Code {
	case ConfigErrorMissingSpreadsheetID:
		return "GOOGLE_SHEETS_SPREADSHEET_ID is required when STORE_BACKEND=sheets"
	case ConfigErrorInvalidEndpoint:
		return fmt.Sprintf("invalid GOOGLE_SHEETS_ENDPOINT=%q; expected absolute URL", e.Value)
	default:
		return "invalid google sheets config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func ResolveConfigFromEnv() (Config, error) {
	cfg := Config{
		SpreadsheetID: strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")),
		Endpoint:      strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_ENDPOINT")),
	}
	return cfg, ValidateConfig(cfg)
}

func ValidateConfig(cfg Config) error {
	if cfg.SpreadsheetID == "" {
		return &ConfigError{Code: ConfigErrorMissingSpreadsheetID}
	}
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ConfigError{Code: ConfigErrorInvalidEndpoint, Value: cfg.Endpoint, Cause: err}
		}
	}
	return nil
}

// NewService builds a Sheets API client from the environment credentials.
// Extra options are appended last and win.
func NewService(ctx context.Context, cfg Config, extra ...option.ClientOption) (*sheets.Service, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	opts := gcp.ClientOptionsFromEnv(sheets.SpreadsheetsScope)
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}
	opts = append(opts, extra...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return svc, nil
}
