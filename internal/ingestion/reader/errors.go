package reader

import "fmt"

type FileErrorCode string

const (
	FileErrorEmpty              FileErrorCode = "empty_file"
	FileErrorUnreadableEncoding FileErrorCode = "unreadable_encoding"
	FileErrorCorruptContainer   FileErrorCode = "corrupt_container"
	FileErrorNoHeader           FileErrorCode = "no_header"
)

// FileError aborts ingestion of one file. Remediation is shown to the
// uploader as-is.
type FileError struct {
	Code        FileErrorCode
	File        string
	Remediation string
	Cause       error
}

func (e *FileError) Error() string {
	if e == nil {
		return "unreadable survey file"
	}
	if e.Cause != nil {
		return fmt.Sprintf("survey file %q unreadable (code=%s): %v", e.File, e.Code, e.Cause)
	}
	return fmt.Sprintf("survey file %q unreadable (code=%s)", e.File, e.Code)
}

func (e *FileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *FileError) ErrorCode() string {
	if e == nil {
		return ""
	}
	return string(e.Code)
}

var remediation = map[FileErrorCode]string{
	FileErrorEmpty:              "The file has no content. Re-export the survey responses and upload again.",
	FileErrorUnreadableEncoding: "The text encoding could not be detected. Save the file as CSV UTF-8 (or as .xlsx) and upload again.",
	FileErrorCorruptContainer:   "The workbook could not be opened. Re-save it as .xlsx (legacy .xls is not supported) or export it as CSV.",
	FileErrorNoHeader:           "No header row was found. The first non-empty row must hold the question texts.",
}

func fileErr(file string, code FileErrorCode, cause error) error {
	return &FileError{Code: code, File: file, Remediation: remediation[code], Cause: cause}
}
