package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/internal/engine"
	"github.com/utafrali/aisearch/internal/engine/dsl"
	apperrors "github.com/utafrali/aisearch/pkg/errors"
)

// maxBulkErrorItems bounds the per-item failures quoted in a bulk error.
const maxBulkErrorItems = 3

// Config holds the cluster connection settings.
type Config struct {
	URL      string
	Username string
	Password string
}

// Engine is the Elasticsearch implementation of engine.Engine.
type Engine struct {
	client *elasticsearch.Client
	logger *slog.Logger
}

var _ engine.Engine = (*Engine)(nil)

type esSearchResponse struct {
	Hits struct {
		Total *struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  *float64       `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkItem struct {
	ID     string `json:"_id"`
	Status int    `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

type esBulkResponse struct {
	Errors bool                    `json:"errors"`
	Items  []map[string]esBulkItem `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates a client. It does not contact the cluster.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}
	return &Engine{client: client, logger: logger}, nil
}

// responseError turns a non-2xx response into an error naming op.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, res.Status())
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// Search runs req against target, an index or alias.
func (e *Engine) Search(ctx context.Context, target string, req dsl.SearchRequest) (*dsl.SearchResponse, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(target),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	out := &dsl.SearchResponse{Hits: make([]dsl.Hit, 0, len(esResp.Hits.Hits))}
	if esResp.Hits.Total != nil {
		total := esResp.Hits.Total.Value
		out.Total = &total
	}
	for _, h := range esResp.Hits.Hits {
		out.Hits = append(out.Hits, dsl.Hit{ID: h.ID, Score: h.Score, Source: h.Source})
	}
	return out, nil
}

// BulkIndex writes docs with refresh=wait_for. Any per-item failure fails
// the whole call.
func (e *Engine) BulkIndex(ctx context.Context, index string, docs []domain.ProductDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]any{"index": map[string]any{"_index": index, "_id": docs[i].ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(index),
		e.client.Bulk.WithRefresh("wait_for"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("bulk index", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}
	if bulkResp.Errors {
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", summarizeBulkErrors(bulkResp))
	}

	e.logger.DebugContext(ctx, "bulk indexed products", slog.String("index", index), slog.Int("count", len(docs)))
	return nil
}

func summarizeBulkErrors(resp esBulkResponse) string {
	var msgs []string
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Error == nil {
				continue
			}
			msgs = append(msgs, fmt.Sprintf("id=%s, type=%s, reason=%s", result.ID, result.Error.Type, result.Error.Reason))
		}
		if len(msgs) >= maxBulkErrorItems {
			break
		}
	}
	if len(msgs) == 0 {
		return "no item details"
	}
	return strings.Join(msgs, " | ")
}

// IndexDocument writes a single document with refresh=wait_for.
func (e *Engine) IndexDocument(ctx context.Context, index string, doc domain.ProductDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	res, err := e.client.Index(
		index,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithRefresh("wait_for"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("index", res)
	}
	return nil
}

// DeleteDocument removes a document. A missing document is not an error.
func (e *Engine) DeleteDocument(ctx context.Context, index, id string) error {
	res, err := e.client.Delete(
		index,
		id,
		e.client.Delete.WithRefresh("wait_for"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete", res)
	}
	return nil
}

// IndexExists reports whether a physical index or alias named name exists.
func (e *Engine) IndexExists(ctx context.Context, name string) (bool, error) {
	res, err := e.client.Indices.Exists([]string{name}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("elasticsearch index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("elasticsearch index exists: unexpected status %s", res.Status())
	}
}

// CreateIndex creates name with the settings/mappings body.
func (e *Engine) CreateIndex(ctx context.Context, name string, body []byte) error {
	res, err := e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", name))
	return nil
}

// DeleteIndex removes name. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	res, err := e.client.Indices.Delete([]string{name}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index deleted", slog.String("index", name))
	return nil
}

// AliasExists reports whether alias is defined on any index.
func (e *Engine) AliasExists(ctx context.Context, alias string) (bool, error) {
	res, err := esapi.IndicesExistsAliasRequest{Name: []string{alias}}.Do(ctx, e.client)
	if err != nil {
		return false, fmt.Errorf("elasticsearch alias exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("elasticsearch alias exists: unexpected status %s", res.Status())
	}
}

// AliasIndices returns the indices alias points at.
func (e *Engine) AliasIndices(ctx context.Context, alias string) ([]string, error) {
	res, err := esapi.IndicesGetAliasRequest{Name: []string{alias}}.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch get alias: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError("get alias", res)
	}

	var byIndex map[string]json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&byIndex); err != nil {
		return nil, fmt.Errorf("elasticsearch get alias: decode response: %w", err)
	}
	indices := make([]string, 0, len(byIndex))
	for name := range byIndex {
		indices = append(indices, name)
	}
	return indices, nil
}

// UpdateAliases applies actions in one atomic call.
func (e *Engine) UpdateAliases(ctx context.Context, actions []engine.AliasAction) error {
	payload := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		body := map[string]any{"index": a.Index}
		if a.Type != engine.AliasRemoveIndex {
			body["alias"] = a.Alias
		}
		payload = append(payload, map[string]any{string(a.Type): body})
	}

	data, err := json.Marshal(map[string]any{"actions": payload})
	if err != nil {
		return fmt.Errorf("elasticsearch update aliases: marshal: %w", err)
	}

	res, err := esapi.IndicesUpdateAliasesRequest{Body: bytes.NewReader(data)}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("elasticsearch update aliases: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("update aliases", res)
	}
	return nil
}

// PutSynonymSet creates or replaces setID. A 2xx response whose body
// cannot be decoded still counts as success: the write has been applied.
func (e *Engine) PutSynonymSet(ctx context.Context, setID string, rules []engine.SynonymRule) error {
	data, err := json.Marshal(map[string]any{"synonyms_set": rules})
	if err != nil {
		return fmt.Errorf("elasticsearch put synonyms: marshal: %w", err)
	}

	res, err := esapi.SynonymsPutSynonymRequest{
		SynonymsSet: setID,
		Body:        bytes.NewReader(data),
	}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("elasticsearch put synonyms: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("put synonyms", res)
	}

	var ack struct {
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		e.logger.WarnContext(ctx, "synonym set stored but response could not be decoded",
			slog.String("synonyms_set", setID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	e.logger.InfoContext(ctx, "synonym set stored",
		slog.String("synonyms_set", setID),
		slog.String("result", ack.Result),
		slog.Int("rules", len(rules)),
	)
	return nil
}

// ReloadSearchAnalyzers reloads the search-time analyzers of index.
func (e *Engine) ReloadSearchAnalyzers(ctx context.Context, index string) error {
	res, err := esapi.IndicesReloadSearchAnalyzersRequest{Index: []string{index}}.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("elasticsearch reload analyzers: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", apperrors.NotFound("index", index), responseError("reload analyzers", res))
	}
	if res.IsError() {
		return responseError("reload analyzers", res)
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}
