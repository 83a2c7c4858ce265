package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/aisearch/internal/domain"
	"github.com/utafrali/aisearch/pkg/httputil"
	"github.com/utafrali/aisearch/pkg/validator"
)

// SynonymReloader pushes a synonym set and reloads search analyzers.
type SynonymReloader interface {
	Reload(ctx context.Context, req domain.SynonymReloadRequest) (domain.SynonymReloadResult, error)
}

// RuleReloader forces a category boost rule refresh.
type RuleReloader interface {
	Reload(ctx context.Context) error
	Snapshot() (version string, ruleCount int)
}

// BetaTuner reads and replaces the category boost strength.
type BetaTuner interface {
	Get() float64
	Set(beta float64) error
}

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	synonyms SynonymReloader
	rules    RuleReloader
	beta     BetaTuner
	logger   *slog.Logger
}

// NewAdminHandler creates the operator endpoint handler.
func NewAdminHandler(synonyms SynonymReloader, rules RuleReloader, beta BetaTuner, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		synonyms: synonyms,
		rules:    rules,
		beta:     beta,
		logger:   logger,
	}
}

// --- Request DTOs ---

// ReloadSynonymsRequest is the JSON body of a synonym reload.
type ReloadSynonymsRequest struct {
	Mode         string `json:"mode"`
	Index        string `json:"index"`
	SynonymSetID string `json:"synonymsSet"`
}

// BetaRequest is the JSON body of a beta update.
type BetaRequest struct {
	Beta *float64 `json:"beta" validate:"required"`
}

// BetaResponse reports the current beta.
type BetaResponse struct {
	Beta float64 `json:"beta"`
}

// RuleReloadResponse reports the rule snapshot after a forced reload.
type RuleReloadResponse struct {
	Version   string `json:"version"`
	RuleCount int    `json:"ruleCount"`
}

// --- Handlers ---

// ReloadSynonyms handles POST /api/search/reload-synonyms
func (h *AdminHandler) ReloadSynonyms(w http.ResponseWriter, r *http.Request) {
	var req ReloadSynonymsRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.synonyms.Reload(r.Context(), domain.SynonymReloadRequest{
		Mode:         domain.SynonymMode(req.Mode),
		Index:        req.Index,
		SynonymSetID: req.SynonymSetID,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// ReloadCategoryBoost handles POST /api/search/category-boost/reload
func (h *AdminHandler) ReloadCategoryBoost(w http.ResponseWriter, r *http.Request) {
	if err := h.rules.Reload(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	version, count := h.rules.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, RuleReloadResponse{Version: version, RuleCount: count})
}

// GetBeta handles GET /api/search/category-boost/beta
func (h *AdminHandler) GetBeta(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, BetaResponse{Beta: h.beta.Get()})
}

// SetBeta handles PUT /api/search/category-boost/beta
func (h *AdminHandler) SetBeta(w http.ResponseWriter, r *http.Request) {
	var req BetaRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := h.beta.Set(*req.Beta); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "category boost beta updated", slog.Float64("beta", *req.Beta))
	httputil.WriteJSON(w, http.StatusOK, BetaResponse{Beta: h.beta.Get()})
}
