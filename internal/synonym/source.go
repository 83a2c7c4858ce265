// Package synonym pushes synonym rule sets to the engine and reloads the
// search-time analyzers that apply them.
package synonym

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/utafrali/aisearch/internal/domain"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

// RuleSource loads the rule lines for a mode.
type RuleSource interface {
	LoadRules(ctx context.Context, mode domain.SynonymMode) ([]string, error)
}

// FileRuleSource reads one rule per line from a file per mode.
type FileRuleSource struct {
	productionPath string
	regressionPath string
}

var _ RuleSource = (*FileRuleSource)(nil)

// NewFileRuleSource creates a source over the production and regression
// rule files.
func NewFileRuleSource(productionPath, regressionPath string) *FileRuleSource {
	return &FileRuleSource{productionPath: productionPath, regressionPath: regressionPath}
}

// LoadRules reads and normalizes the file for mode.
func (f *FileRuleSource) LoadRules(_ context.Context, mode domain.SynonymMode) ([]string, error) {
	path := f.productionPath
	if mode == domain.SynonymModeRegression {
		path = f.regressionPath
	}
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.InvalidInputf("no synonym file configured for mode %s", mode)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open synonym file %s: %w", path, err)
	}
	defer file.Close()

	rules, err := ParseRules(file)
	if err != nil {
		return nil, fmt.Errorf("read synonym file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules reads rule lines. Blank lines and lines starting with # are
// skipped, and anything after an inline # is dropped.
func ParseRules(r io.Reader) ([]string, error) {
	var rules []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := normalizeLine(scanner.Text()); line != "" {
			rules = append(rules, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func normalizeLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return line
}
