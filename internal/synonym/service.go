package synonym

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

const reloadedMessage = "synonyms reloaded successfully"

// Config names the defaults used when a request leaves a field blank.
type Config struct {
	BaseIndex    string
	ReadAlias    string
	DefaultSetID string
}

// Service runs synonym reloads.
type Service struct {
	admin  engine.SynonymAdmin
	rules  RuleSource
	cfg    Config
	logger *slog.Logger
}

// NewService creates a service.
func NewService(admin engine.SynonymAdmin, rules RuleSource, cfg Config, logger *slog.Logger) *Service {
	return &Service{admin: admin, rules: rules, cfg: cfg, logger: logger}
}

// Reload pushes the rule set for req.Mode and reloads the search analyzers
// of the target index. The index is req.Index, else the read alias, else
// the base index. No reindex is needed because synonyms apply at query
// analysis time.
func (s *Service) Reload(ctx context.Context, req domain.SynonymReloadRequest) (domain.SynonymReloadResult, error) {
	mode, err := domain.ParseSynonymMode(string(req.Mode))
	if err != nil {
		return domain.SynonymReloadResult{}, err
	}
	index := firstNonBlank(req.Index, s.cfg.ReadAlias, s.cfg.BaseIndex)
	if index == "" {
		return domain.SynonymReloadResult{}, apperrors.InvalidInput("index is required")
	}
	setID := firstNonBlank(req.SynonymSetID, s.cfg.DefaultSetID)
	if setID == "" {
		return domain.SynonymReloadResult{}, apperrors.InvalidInput("synonymsSet is required")
	}

	rules, err := s.loadRules(ctx, mode)
	if err != nil {
		return domain.SynonymReloadResult{}, err
	}

	if err := s.admin.PutSynonymSet(ctx, setID, toEngineRules(rules)); err != nil {
		return domain.SynonymReloadResult{}, fmt.Errorf("%w: set %s: %w", domain.ErrSynonymUpdate, setID, err)
	}
	if err := s.admin.ReloadSearchAnalyzers(ctx, index); err != nil {
		return domain.SynonymReloadResult{}, fmt.Errorf("%w: index %s: %w", domain.ErrAnalyzerReload, index, err)
	}

	s.logger.InfoContext(ctx, "synonyms reloaded",
		slog.String("mode", string(mode)),
		slog.String("synonyms_set", setID),
		slog.String("index", index),
		slog.Int("rules", len(rules)),
	)
	return domain.SynonymReloadResult{
		Updated:      true,
		Reloaded:     true,
		Mode:         mode,
		SynonymSetID: setID,
		Index:        index,
		RuleCount:    len(rules),
		Message:      reloadedMessage,
	}, nil
}

// EnsureProductionSet pushes the production rules to the default set
// without touching any analyzer. Index creation needs the set to exist.
func (s *Service) EnsureProductionSet(ctx context.Context) (int, error) {
	setID := strings.TrimSpace(s.cfg.DefaultSetID)
	if setID == "" {
		return 0, apperrors.InvalidInput("synonymsSet is required")
	}
	rules, err := s.loadRules(ctx, domain.SynonymModeProduction)
	if err != nil {
		return 0, err
	}
	if err := s.admin.PutSynonymSet(ctx, setID, toEngineRules(rules)); err != nil {
		return 0, fmt.Errorf("%w: set %s: %w", domain.ErrSynonymUpdate, setID, err)
	}
	s.logger.InfoContext(ctx, "production synonym set ensured",
		slog.String("synonyms_set", setID),
		slog.Int("rules", len(rules)),
	)
	return len(rules), nil
}

// SetID returns the default synonym set id.
func (s *Service) SetID() string {
	return s.cfg.DefaultSetID
}

func (s *Service) loadRules(ctx context.Context, mode domain.SynonymMode) ([]string, error) {
	rules, err := s.rules.LoadRules(ctx, mode)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, apperrors.InvalidInputf("synonym rules are empty for mode %s", mode)
	}
	return rules, nil
}

func toEngineRules(rules []string) []engine.SynonymRule {
	out := make([]engine.SynonymRule, len(rules))
	for i, r := range rules {
		out[i] = engine.SynonymRule{ID: "rule-" + strconv.Itoa(i+1), Synonyms: r}
	}
	return out
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
