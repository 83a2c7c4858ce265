// Package memory is an in-process implementation of engine.Engine. It
// evaluates the same query tree and scoring parameters as the
// Elasticsearch engine, with bleve providing the lexical score, and is
// used for local development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

// Engine is an in-memory search engine. Safe for concurrent use.
type Engine struct {
	mu          sync.RWMutex
	indices     map[string]*memIndex
	aliases     map[string]map[string]struct{}
	synonymSets map[string][]engine.SynonymRule
	logger      *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

type memIndex struct {
	name     string
	settings indexSettings
	docs     map[string]domain.ProductDocument
	text     bleve.Index
	synonyms synonymTable
}

// New creates an empty engine.
func New(logger *slog.Logger) *Engine {
	return &Engine{
		indices:     make(map[string]*memIndex),
		aliases:     make(map[string]map[string]struct{}),
		synonymSets: make(map[string][]engine.SynonymRule),
		logger:      logger,
	}
}

// Ping always succeeds.
func (e *Engine) Ping(context.Context) error {
	return nil
}

// resolve returns the indices behind target, an index or alias name.
// Callers must hold e.mu.
func (e *Engine) resolve(target string) ([]*memIndex, error) {
	if idx, ok := e.indices[target]; ok {
		return []*memIndex{idx}, nil
	}
	members, ok := e.aliases[target]
	if !ok || len(members) == 0 {
		return nil, fmt.Errorf("memory engine: index_not_found_exception: no such index [%s]", target)
	}
	names := make([]string, 0, len(members))
	for name := range members {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*memIndex, 0, len(names))
	for _, name := range names {
		out = append(out, e.indices[name])
	}
	return out, nil
}

// resolveWrite returns the single index a write to target goes to.
func (e *Engine) resolveWrite(target string) (*memIndex, error) {
	indices, err := e.resolve(target)
	if err != nil {
		return nil, err
	}
	if len(indices) != 1 {
		return nil, fmt.Errorf("memory engine: alias [%s] has more than one index, no write index is defined", target)
	}
	return indices[0], nil
}

func (idx *memIndex) put(doc domain.ProductDocument) error {
	if dims := idx.settings.VectorDims; dims > 0 && len(doc.Vector) != dims {
		return fmt.Errorf("memory engine: document %s: %s has %d dimensions, mapping requires %d",
			doc.ID, domain.DocFieldVector, len(doc.Vector), dims)
	}
	if err := idx.text.Index(doc.ID, textDocument{ProductName: doc.ProductName, Description: doc.Description}); err != nil {
		return fmt.Errorf("memory engine: index text of %s: %w", doc.ID, err)
	}
	idx.docs[doc.ID] = doc
	return nil
}

// BulkIndex writes docs into index. Documents are visible on return.
func (e *Engine) BulkIndex(_ context.Context, index string, docs []domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.resolveWrite(index)
	if err != nil {
		return err
	}
	for i := range docs {
		if err := idx.put(docs[i]); err != nil {
			return fmt.Errorf("memory engine bulk index: partial errors: %w", err)
		}
	}
	return nil
}

// IndexDocument writes one document.
func (e *Engine) IndexDocument(_ context.Context, index string, doc domain.ProductDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.resolveWrite(index)
	if err != nil {
		return err
	}
	return idx.put(doc)
}

// DeleteDocument removes a document. A missing document is not an error.
func (e *Engine) DeleteDocument(_ context.Context, index, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx, err := e.resolveWrite(index)
	if err != nil {
		return err
	}
	if _, ok := idx.docs[id]; !ok {
		return nil
	}
	delete(idx.docs, id)
	if err := idx.text.Delete(id); err != nil {
		return fmt.Errorf("memory engine: delete text of %s: %w", id, err)
	}
	return nil
}

// IndexExists reports whether an index or alias named name exists.
func (e *Engine) IndexExists(_ context.Context, name string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if _, ok := e.indices[name]; ok {
		return true, nil
	}
	return len(e.aliases[name]) > 0, nil
}

// CreateIndex creates name. A synonym set referenced by body must already
// exist.
func (e *Engine) CreateIndex(_ context.Context, name string, body []byte) error {
	settings, err := parseIndexSettings(body)
	if err != nil {
		return fmt.Errorf("memory engine create index: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.indices[name]; ok {
		return fmt.Errorf("memory engine create index: resource_already_exists_exception: index [%s] already exists", name)
	}
	if _, ok := e.aliases[name]; ok {
		return fmt.Errorf("memory engine create index: invalid_index_name_exception: an alias named [%s] exists", name)
	}

	var synonyms synonymTable
	if settings.SynonymSetID != "" {
		rules, ok := e.synonymSets[settings.SynonymSetID]
		if !ok {
			return fmt.Errorf("memory engine create index: resource_not_found_exception: synonyms set [%s] not found", settings.SynonymSetID)
		}
		synonyms = newSynonymTable(rules)
	}

	text, err := bleve.NewMemOnly(buildTextMapping())
	if err != nil {
		return fmt.Errorf("memory engine create index: %w", err)
	}

	e.indices[name] = &memIndex{
		name:     name,
		settings: settings,
		docs:     make(map[string]domain.ProductDocument),
		text:     text,
		synonyms: synonyms,
	}
	e.logger.Info("memory index created", slog.String("index", name), slog.String("synonyms_set", settings.SynonymSetID))
	return nil
}

// DeleteIndex removes name and its alias memberships. A missing index is
// not an error.
func (e *Engine) DeleteIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dropIndex(name)
	return nil
}

func (e *Engine) dropIndex(name string) {
	idx, ok := e.indices[name]
	if !ok {
		return
	}
	_ = idx.text.Close()
	delete(e.indices, name)
	for alias, members := range e.aliases {
		delete(members, name)
		if len(members) == 0 {
			delete(e.aliases, alias)
		}
	}
}

// AliasExists reports whether alias points at any index.
func (e *Engine) AliasExists(_ context.Context, alias string) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.aliases[alias]) > 0, nil
}

// AliasIndices returns the indices behind alias, sorted.
func (e *Engine) AliasIndices(_ context.Context, alias string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.aliases[alias]))
	for name := range e.aliases[alias] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// UpdateAliases applies actions atomically: either every action applies
// or none does.
func (e *Engine) UpdateAliases(_ context.Context, actions []engine.AliasAction) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	removedIndices := map[string]struct{}{}
	for _, a := range actions {
		if a.Type == engine.AliasRemoveIndex {
			if _, ok := e.indices[a.Index]; !ok {
				return fmt.Errorf("memory engine update aliases: index_not_found_exception: no such index [%s]", a.Index)
			}
			removedIndices[a.Index] = struct{}{}
		}
	}

	next := make(map[string]map[string]struct{}, len(e.aliases))
	for alias, members := range e.aliases {
		cp := make(map[string]struct{}, len(members))
		for m := range members {
			cp[m] = struct{}{}
		}
		next[alias] = cp
	}

	for _, a := range actions {
		switch a.Type {
		case engine.AliasAdd:
			if _, ok := e.indices[a.Index]; !ok {
				return fmt.Errorf("memory engine update aliases: index_not_found_exception: no such index [%s]", a.Index)
			}
			if _, clash := e.indices[a.Alias]; clash {
				if _, removed := removedIndices[a.Alias]; !removed {
					return fmt.Errorf("memory engine update aliases: invalid_alias_name_exception: an index exists with the same name as the alias [%s]", a.Alias)
				}
			}
			if next[a.Alias] == nil {
				next[a.Alias] = map[string]struct{}{}
			}
			next[a.Alias][a.Index] = struct{}{}
		case engine.AliasRemove:
			members, ok := next[a.Alias]
			if _, member := members[a.Index]; !ok || !member {
				return fmt.Errorf("memory engine update aliases: aliases_not_found_exception: [%s] missing on [%s]", a.Alias, a.Index)
			}
			delete(members, a.Index)
			if len(members) == 0 {
				delete(next, a.Alias)
			}
		case engine.AliasRemoveIndex:
		default:
			return fmt.Errorf("memory engine update aliases: unknown action %q", a.Type)
		}
	}

	e.aliases = next
	for name := range removedIndices {
		e.dropIndex(name)
	}
	return nil
}

// PutSynonymSet stores rules under setID. Indices pick the change up on
// ReloadSearchAnalyzers.
func (e *Engine) PutSynonymSet(_ context.Context, setID string, rules []engine.SynonymRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.synonymSets[setID] = append([]engine.SynonymRule(nil), rules...)
	return nil
}

// ReloadSearchAnalyzers refreshes the synonym tables of the indices behind
// target from their synonym sets.
func (e *Engine) ReloadSearchAnalyzers(_ context.Context, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	indices, err := e.resolve(target)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.NotFound("index", target), err)
	}
	for _, idx := range indices {
		if idx.settings.SynonymSetID == "" {
			continue
		}
		idx.synonyms = newSynonymTable(e.synonymSets[idx.settings.SynonymSetID])
	}
	return nil
}

// sourceOf renders doc the way the engine returns _source.
func sourceOf(doc domain.ProductDocument) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
