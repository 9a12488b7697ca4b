package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/outfitlab/outfitflow/batch"
	"github.com/outfitlab/outfitflow/internal/ctxkeys"
	"github.com/outfitlab/outfitflow/internal/metrics"
	"github.com/outfitlab/outfitflow/outfit"
)

// =============================================================================
// 👗 穿搭建议 Handler
// =============================================================================

// Submitter 是批处理器的窄接口，handler 只依赖提交能力。
type Submitter interface {
	Submit(ctx context.Context, req batch.Request) (*outfit.Result, error)
}

// OutfitHandler 穿搭建议处理器
type OutfitHandler struct {
	submitter Submitter
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// NewOutfitHandler 创建穿搭建议处理器
func NewOutfitHandler(submitter Submitter, logger *zap.Logger) *OutfitHandler {
	return &OutfitHandler{
		submitter: submitter,
		logger:    logger.With(zap.String("component", "outfit_handler")),
	}
}

// WithMetrics 注入指标收集器
func (h *OutfitHandler) WithMetrics(m *metrics.Collector) *OutfitHandler {
	h.metrics = m
	return h
}

// SuggestRequest 穿搭建议请求体
type SuggestRequest struct {
	UserID   string                 `json:"user_id"`
	Items    []outfit.ClothingItem  `json:"items"`
	Context  map[string]interface{} `json:"context,omitempty"`
	Priority string                 `json:"priority,omitempty"`
}

// HandleSuggest 处理 POST /api/v1/outfits/suggest
func (h *OutfitHandler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, outfit.KindOutfitSuggestion)
}

// HandleAnalyze 处理 POST /api/v1/outfits/analyze
func (h *OutfitHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, outfit.KindStyleAnalysis)
}

// HandleOccasion 处理 POST /api/v1/outfits/occasion
func (h *OutfitHandler) HandleOccasion(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, outfit.KindOccasionMatch)
}

func (h *OutfitHandler) handle(w http.ResponseWriter, r *http.Request, kind outfit.RequestKind) {
	start := time.Now()
	requestID := RequestID(r)
	rw := NewResponseWriter(w)
	defer func() {
		if h.metrics != nil {
			h.metrics.RecordHTTPRequest(r.Method, r.URL.Path, strconv.Itoa(rw.StatusCode), time.Since(start).Seconds())
		}
	}()

	if r.Method != http.MethodPost {
		WriteErrorMessage(rw, requestID, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "only POST is allowed", h.logger)
		return
	}

	var req SuggestRequest
	if !DecodeJSONBody(rw, r, requestID, &req, h.logger) {
		return
	}

	if req.UserID == "" {
		WriteErrorMessage(rw, requestID, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required", h.logger)
		return
	}
	if len(req.Items) == 0 {
		WriteErrorMessage(rw, requestID, http.StatusBadRequest, "INVALID_REQUEST", "items must not be empty", h.logger)
		return
	}
	for _, it := range req.Items {
		if it.ID == "" {
			WriteErrorMessage(rw, requestID, http.StatusBadRequest, "INVALID_REQUEST", "every item needs an id", h.logger)
			return
		}
	}

	priority := batch.Priority(req.Priority)
	if req.Priority == "" {
		priority = batch.PriorityMedium
	}
	if !priority.Valid() {
		WriteErrorMessage(rw, requestID, http.StatusBadRequest, "INVALID_REQUEST", "priority must be high, medium or low", h.logger)
		return
	}

	h.logger.Debug("submitting outfit request",
		zap.String("request_id", requestID),
		zap.String("user_id", req.UserID),
		zap.String("kind", string(kind)),
		zap.Int("items", len(req.Items)),
		zap.String("priority", string(priority)),
	)

	ctx := ctxkeys.WithOwner(r.Context(), req.UserID)
	result, err := h.submitter.Submit(ctx, batch.Request{
		Owner:    req.UserID,
		Kind:     kind,
		Items:    req.Items,
		Context:  req.Context,
		Priority: priority,
	})
	if err != nil {
		WriteError(rw, requestID, err, h.logger)
		return
	}

	WriteSuccess(rw, requestID, result)
}
