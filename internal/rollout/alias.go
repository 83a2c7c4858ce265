package rollout

import (
	"context"
	"fmt"
	"strings"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
)

// AliasIndexAdmin is what the switcher needs from the engine.
type AliasIndexAdmin interface {
	engine.AliasAdmin
	IndexExists(ctx context.Context, name string) (bool, error)
}

// AliasSwitcher reads and moves the read alias.
type AliasSwitcher struct {
	admin AliasIndexAdmin
	alias string
}

// NewAliasSwitcher creates a switcher for readAlias, falling back to
// baseIndex when no alias is configured.
func NewAliasSwitcher(admin AliasIndexAdmin, readAlias, baseIndex string) *AliasSwitcher {
	alias := strings.TrimSpace(readAlias)
	if alias == "" {
		alias = baseIndex
	}
	return &AliasSwitcher{admin: admin, alias: alias}
}

// Alias returns the managed alias name.
func (a *AliasSwitcher) Alias() string {
	return a.alias
}

// CurrentIndex returns the index behind the alias, or "" when the alias
// does not exist. An alias on more than one index is a misconfiguration
// and fails with domain.ErrAliasLookup.
func (a *AliasSwitcher) CurrentIndex(ctx context.Context) (string, error) {
	exists, err := a.admin.AliasExists(ctx, a.alias)
	if err != nil {
		return "", fmt.Errorf("%w: alias %s: %w", domain.ErrAliasLookup, a.alias, err)
	}
	if !exists {
		return "", nil
	}

	indices, err := a.admin.AliasIndices(ctx, a.alias)
	if err != nil {
		return "", fmt.Errorf("%w: alias %s: %w", domain.ErrAliasLookup, a.alias, err)
	}
	switch len(indices) {
	case 0:
		return "", nil
	case 1:
		return indices[0], nil
	default:
		return "", fmt.Errorf("%w: alias %s points at %d indices %v", domain.ErrAliasLookup, a.alias, len(indices), indices)
	}
}

// Swap moves the alias from oldIndex to newIndex in one atomic update. A
// physical index that carries the alias name is removed in the same call
// when there is no old index, which migrates a pre-alias deployment.
func (a *AliasSwitcher) Swap(ctx context.Context, oldIndex, newIndex string) error {
	oldIndex = strings.TrimSpace(oldIndex)

	nameTaken, err := a.admin.IndexExists(ctx, a.alias)
	if err != nil {
		return fmt.Errorf("%w: check %s: %w", domain.ErrAliasSwap, a.alias, err)
	}

	var actions []engine.AliasAction
	if nameTaken && oldIndex == "" {
		actions = append(actions, engine.AliasAction{Type: engine.AliasRemoveIndex, Index: a.alias})
	}
	if oldIndex != "" && oldIndex != newIndex {
		actions = append(actions, engine.AliasAction{Type: engine.AliasRemove, Index: oldIndex, Alias: a.alias})
	}
	actions = append(actions, engine.AliasAction{Type: engine.AliasAdd, Index: newIndex, Alias: a.alias})

	if err := a.admin.UpdateAliases(ctx, actions); err != nil {
		return fmt.Errorf("%w: alias %s from %q to %s: %w", domain.ErrAliasSwap, a.alias, oldIndex, newIndex, err)
	}
	return nil
}
