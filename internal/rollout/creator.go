package rollout

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
)

//go:embed index-mapping.json
var mappingTemplate string

const (
	dimsPlaceholder       = "__DIMS__"
	synonymSetPlaceholder = "__SYNONYMS_SET__"
)

// BuildMapping renders the create-index body for the given vector
// dimensionality and synonym set.
func BuildMapping(dims int, synonymSetID string) []byte {
	return []byte(strings.NewReplacer(
		dimsPlaceholder, strconv.Itoa(dims),
		synonymSetPlaceholder, synonymSetID,
	).Replace(mappingTemplate))
}

// SynonymEnsurer makes sure the production synonym set exists.
type SynonymEnsurer interface {
	EnsureProductionSet(ctx context.Context) (int, error)
	SetID() string
}

// Dimensioner reports the embedding dimensionality.
type Dimensioner interface {
	Dimensions() int
}

// Creator creates versioned indices.
type Creator struct {
	admin     engine.IndexAdmin
	synonyms  SynonymEnsurer
	dims      Dimensioner
	names     *NameGenerator
	baseIndex string
	logger    *slog.Logger
}

// NewCreator creates a creator for indices named after baseIndex.
func NewCreator(admin engine.IndexAdmin, synonyms SynonymEnsurer, dims Dimensioner, names *NameGenerator, baseIndex string, logger *slog.Logger) *Creator {
	return &Creator{
		admin:     admin,
		synonyms:  synonyms,
		dims:      dims,
		names:     names,
		baseIndex: baseIndex,
		logger:    logger,
	}
}

// CreateVersionedIndex creates a new index under a generated name and
// returns the name.
func (c *Creator) CreateVersionedIndex(ctx context.Context) (string, error) {
	name := c.names.Generate(c.baseIndex)
	if err := c.CreateIndex(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}

// CreateIndex ensures the production synonym set first, because the
// search analyzer references the set by id and cannot be attached after
// creation.
func (c *Creator) CreateIndex(ctx context.Context, name string) error {
	if _, err := c.synonyms.EnsureProductionSet(ctx); err != nil {
		return fmt.Errorf("%w: %s: prepare synonyms: %w", domain.ErrIndexCreation, name, err)
	}

	body := BuildMapping(c.dims.Dimensions(), c.synonyms.SetID())
	if err := c.admin.CreateIndex(ctx, name, body); err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrIndexCreation, name, err)
	}

	c.logger.InfoContext(ctx, "index created",
		slog.String("index", name),
		slog.Int("dims", c.dims.Dimensions()),
		slog.String("synonyms_set", c.synonyms.SetID()),
	)
	return nil
}
