package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/outfitlab/outfitflow/batch"
	"github.com/outfitlab/outfitflow/llm"
	"github.com/outfitlab/outfitflow/outfit"
)

// fakeSubmitter records the last submitted request and returns a canned response.
type fakeSubmitter struct {
	lastReq batch.Request
	result  *outfit.Result
	err     error
}

func (f *fakeSubmitter) Submit(ctx context.Context, req batch.Request) (*outfit.Result, error) {
	f.lastReq = req
	return f.result, f.err
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outfits/suggest", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func validRequest() SuggestRequest {
	return SuggestRequest{
		UserID: "user-1",
		Items: []outfit.ClothingItem{
			{ID: "i1", Name: "White shirt", Category: "top"},
			{ID: "i2", Name: "Dark jeans", Category: "bottom"},
		},
		Context: map[string]interface{}{"occasion": "casual"},
	}
}

func TestHandleSuggestSuccess(t *testing.T) {
	sub := &fakeSubmitter{result: &outfit.Result{
		Kind:  outfit.KindOutfitSuggestion,
		Title: "Weekend casual",
	}}
	h := NewOutfitHandler(sub, zap.NewNop())

	rec := postJSON(t, h.HandleSuggest, validRequest())

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.RequestID)

	// The submitted request carries the owner, kind and default priority.
	assert.Equal(t, "user-1", sub.lastReq.Owner)
	assert.Equal(t, outfit.KindOutfitSuggestion, sub.lastReq.Kind)
	assert.Equal(t, batch.PriorityMedium, sub.lastReq.Priority)
	assert.Len(t, sub.lastReq.Items, 2)
}

func TestHandleAnalyzeKind(t *testing.T) {
	sub := &fakeSubmitter{result: &outfit.Result{Kind: outfit.KindStyleAnalysis, Title: "t"}}
	h := NewOutfitHandler(sub, zap.NewNop())

	rec := postJSON(t, h.HandleAnalyze, validRequest())

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, outfit.KindStyleAnalysis, sub.lastReq.Kind)
}

func TestHandleSuggestExplicitPriority(t *testing.T) {
	sub := &fakeSubmitter{result: &outfit.Result{Title: "t"}}
	h := NewOutfitHandler(sub, zap.NewNop())

	req := validRequest()
	req.Priority = "high"
	rec := postJSON(t, h.HandleSuggest, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, batch.PriorityHigh, sub.lastReq.Priority)
}

func TestHandleSuggestValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SuggestRequest)
	}{
		{"missing user_id", func(r *SuggestRequest) { r.UserID = "" }},
		{"empty items", func(r *SuggestRequest) { r.Items = nil }},
		{"item without id", func(r *SuggestRequest) { r.Items[0].ID = "" }},
		{"bad priority", func(r *SuggestRequest) { r.Priority = "urgent" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{result: &outfit.Result{Title: "t"}}
			h := NewOutfitHandler(sub, zap.NewNop())

			req := validRequest()
			tt.mutate(&req)
			rec := postJSON(t, h.HandleSuggest, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
		})
	}
}

func TestHandleSuggestRejectsUnknownFields(t *testing.T) {
	h := NewOutfitHandler(&fakeSubmitter{}, zap.NewNop())

	body := []byte(`{"user_id":"u","items":[{"id":"i1"}],"wardrobe":"all"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outfits/suggest", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleSuggest(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSuggestMethodNotAllowed(t *testing.T) {
	h := NewOutfitHandler(&fakeSubmitter{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/outfits/suggest", nil)
	rec := httptest.NewRecorder()
	h.HandleSuggest(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSuggestUpstreamError(t *testing.T) {
	sub := &fakeSubmitter{err: llm.NewError(llm.ErrRateLimited, "too many requests")}
	h := NewOutfitHandler(sub, zap.NewNop())

	rec := postJSON(t, h.HandleSuggest, validRequest())

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(llm.ErrRateLimited), resp.Error.Code)
	assert.True(t, resp.Error.Retryable)
}

func TestHandleSuggestProcessorClosed(t *testing.T) {
	sub := &fakeSubmitter{err: batch.ErrClosed}
	h := NewOutfitHandler(sub, zap.NewNop())

	rec := postJSON(t, h.HandleSuggest, validRequest())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	sub := &fakeSubmitter{result: &outfit.Result{Title: "t"}}
	h := NewOutfitHandler(sub, zap.NewNop())

	data, err := json.Marshal(validRequest())
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/outfits/suggest", bytes.NewReader(data))
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	h.HandleSuggest(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "req-abc", resp.RequestID)
}
