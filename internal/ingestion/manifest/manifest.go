package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
)

// Entry is one course to ingest. File is a local path (relative paths
// resolve against the manifest's directory) or a gs:// archive URI.
type Entry struct {
	CourseID    string `yaml:"course_id" json:"course_id"`
	File        string `yaml:"file" json:"file"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type Manifest struct {
	ClearFirst bool    `yaml:"clear_first" json:"clear_first"`
	Courses    []Entry `yaml:"courses" json:"courses"`
}

func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.resolve(filepath.Dir(path))
	return m, nil
}

// Parse decodes and validates a manifest. Unknown keys are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: parse manifest: %v", apperr.ErrInvalidArgument, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) Validate() error {
	if len(m.Courses) == 0 {
		return fmt.Errorf("%w: manifest lists no courses", apperr.ErrInvalidArgument)
	}
	seen := map[string]int{}
	for i := range m.Courses {
		e := &m.Courses[i]
		e.CourseID = strings.TrimSpace(e.CourseID)
		e.File = strings.TrimSpace(e.File)
		e.Description = strings.TrimSpace(e.Description)
		if e.CourseID == "" {
			return fmt.Errorf("%w: courses[%d]: course_id required", apperr.ErrInvalidArgument, i)
		}
		if e.File == "" {
			return fmt.Errorf("%w: courses[%d] (%s): file required", apperr.ErrInvalidArgument, i, e.CourseID)
		}
		if j, dup := seen[e.CourseID]; dup {
			return fmt.Errorf("%w: courses[%d]: course_id %s repeats courses[%d]", apperr.ErrInvalidArgument, i, e.CourseID, j)
		}
		seen[e.CourseID] = i
	}
	return nil
}

func (m *Manifest) resolve(dir string) {
	for i := range m.Courses {
		f := m.Courses[i].File
		if strings.HasPrefix(f, "gs://") || filepath.IsAbs(f) {
			continue
		}
		m.Courses[i].File = filepath.Join(dir, f)
	}
}
