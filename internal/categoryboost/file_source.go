package categoryboost

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/utafrali/aisearch/internal/domain"
)

// FileSource reads the rule document from a JSON or YAML file, chosen by
// extension (.yaml/.yml, anything else is JSON).
type FileSource struct {
	path string
}

var _ RuleSource = (*FileSource)(nil)

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Version decodes only the version field.
func (f *FileSource) Version(_ context.Context) (string, error) {
	var head struct {
		Version string `json:"version" yaml:"version"`
	}
	if err := f.decode(&head); err != nil {
		return "", err
	}
	return strings.TrimSpace(head.Version), nil
}

// Load decodes the whole document.
func (f *FileSource) Load(_ context.Context) (domain.CategoryBoostDocument, error) {
	var doc domain.CategoryBoostDocument
	if err := f.decode(&doc); err != nil {
		return domain.CategoryBoostDocument{}, err
	}
	return doc, nil
}

func (f *FileSource) decode(v any) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read rule file %s: %w", f.path, err)
	}

	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("decode rule file %s: %w", f.path, err)
	}
	return nil
}
