package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gestioweb/go-advisor-backend/internal/advisor/period"
	"github.com/gestioweb/go-advisor-backend/internal/llm"
	"github.com/gestioweb/go-advisor-backend/internal/services"
)

func init() { gin.SetMode(gin.TestMode) }

// stubEngine returns a fixed response or error and records the request.
type stubEngine struct {
	resp *services.GenerateResponse
	err  error
	got  services.GenerateRequest
}

func (s *stubEngine) Generate(_ context.Context, req services.GenerateRequest) (*services.GenerateResponse, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type stubListing struct {
	items []services.ConversationSummary
	total int64
	err   error
}

func (s *stubListing) ListConversations(context.Context, string, int, int) ([]services.ConversationSummary, int64, error) {
	return s.items, s.total, s.err
}

type stubFeedback struct {
	updated bool
	err     error
	rating  int
}

func (s *stubFeedback) GiveFeedback(_ context.Context, _ string, rating int) (bool, error) {
	s.rating = rating
	return s.updated, s.err
}

func newRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.POST("/advisor/ask", h.Ask)
	r.GET("/advisor/conversations", h.ListConversations)
	r.POST("/advisor/conversations/:id/feedback", h.GiveFeedback)
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return e
}

func TestAsk_DefaultsToRulesEngine(t *testing.T) {
	rules := &stubEngine{resp: &services.GenerateResponse{Answer: "ok"}}
	llmEng := &stubEngine{resp: &services.GenerateResponse{Answer: "llm"}}
	r := newRouter(New(rules, llmEng, &stubListing{}, &stubFeedback{}))

	w := postJSON(t, r, "/advisor/ask", AskRequest{Question: "Quanti clienti?"}, map[string]string{"X-User-ID": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if rules.got.Question != "Quanti clienti?" || rules.got.UserID != "u1" {
		t.Fatalf("service request = %+v", rules.got)
	}
	if llmEng.got.Question != "" {
		t.Fatal("llm engine was called for a rules request")
	}
}

func TestAsk_SelectsLLMEngine(t *testing.T) {
	rules := &stubEngine{resp: &services.GenerateResponse{Answer: "rules"}}
	llmEng := &stubEngine{resp: &services.GenerateResponse{Answer: "llm"}}
	r := newRouter(New(rules, llmEng, &stubListing{}, &stubFeedback{}))

	w := postJSON(t, r, "/advisor/ask", AskRequest{Question: "Come va?", Engine: "llm"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp services.GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Answer != "llm" {
		t.Fatalf("answer = %q", resp.Answer)
	}
}

func TestAsk_UnknownEngineRejected(t *testing.T) {
	r := newRouter(New(&stubEngine{}, nil, &stubListing{}, &stubFeedback{}))
	w := postJSON(t, r, "/advisor/ask", AskRequest{Question: "q", Engine: "magic"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeValidation {
		t.Fatalf("code = %q", e.Code)
	}
}

func TestAsk_LLMEngineUnconfigured(t *testing.T) {
	r := newRouter(New(&stubEngine{}, nil, &stubListing{}, &stubFeedback{}))
	w := postJSON(t, r, "/advisor/ask", AskRequest{Question: "q", Engine: "llm"}, nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAsk_ErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty question", services.ErrEmptyQuestion, http.StatusBadRequest, ErrCodeValidation},
		{"missing custom bounds", period.ErrMissingCustomBounds, http.StatusBadRequest, ErrCodeValidation},
		{"no model", services.ErrNoModelConfigured, http.StatusServiceUnavailable, ErrCodeUpstream},
		{"rate limited", &llm.APIError{Status: 429, Body: "rate limit"}, http.StatusTooManyRequests, ErrCodeRateLimited},
		{"upstream 500", &llm.APIError{Status: 500, Body: "boom"}, http.StatusBadGateway, ErrCodeUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(New(&stubEngine{err: tc.err}, nil, &stubListing{}, &stubFeedback{}))
			w := postJSON(t, r, "/advisor/ask", AskRequest{Question: "q"}, nil)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if e := decodeError(t, w); e.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", e.Code, tc.wantCode)
			}
		})
	}
}

func TestAsk_MapsHistoryAndPage(t *testing.T) {
	rules := &stubEngine{resp: &services.GenerateResponse{Answer: "ok"}}
	r := newRouter(New(rules, nil, &stubListing{}, &stubFeedback{}))

	w := postJSON(t, r, "/advisor/ask", AskRequest{
		Question: "q",
		Period:   "last7",
		History:  []ChatTurn{{Role: "user", Content: "prima"}},
		Page:     &PageInfo{Title: "Finanze", Section: "finanze"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if rules.got.PeriodKey != "last7" || len(rules.got.History) != 1 || rules.got.History[0].Content != "prima" {
		t.Fatalf("service request = %+v", rules.got)
	}
	if rules.got.Page == nil || rules.got.Page.Section != "finanze" {
		t.Fatalf("page = %+v", rules.got.Page)
	}
}

func TestListConversations(t *testing.T) {
	listing := &stubListing{
		items: []services.ConversationSummary{{ID: "c1", Question: "q", Answer: "a"}},
		total: 41,
	}
	r := newRouter(New(&stubEngine{}, nil, listing, &stubFeedback{}))

	// Missing user.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/advisor/conversations", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("anonymous status = %d", w.Code)
	}

	// Identified user with pagination metadata.
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/advisor/conversations?page=2&page_size=20", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ListConversationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Pagination.Total != 41 || resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext {
		t.Fatalf("pagination = %+v", resp.Pagination)
	}
}

func TestGiveFeedback(t *testing.T) {
	convID := uuid.NewString()

	t.Run("invalid uuid", func(t *testing.T) {
		r := newRouter(New(&stubEngine{}, nil, &stubListing{}, &stubFeedback{}))
		w := postJSON(t, r, "/advisor/conversations/not-a-uuid/feedback", FeedbackRequest{Rating: 4}, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("out-of-range rating", func(t *testing.T) {
		fb := &stubFeedback{err: services.ErrInvalidRating}
		r := newRouter(New(&stubEngine{}, nil, &stubListing{}, fb))
		w := postJSON(t, r, "/advisor/conversations/"+convID+"/feedback", FeedbackRequest{Rating: 7}, nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("not found", func(t *testing.T) {
		r := newRouter(New(&stubEngine{}, nil, &stubListing{}, &stubFeedback{updated: false}))
		w := postJSON(t, r, "/advisor/conversations/"+convID+"/feedback", FeedbackRequest{Rating: 4}, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		fb := &stubFeedback{updated: true}
		r := newRouter(New(&stubEngine{}, nil, &stubListing{}, fb))
		w := postJSON(t, r, "/advisor/conversations/"+convID+"/feedback", FeedbackRequest{Rating: 5}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		if fb.rating != 5 {
			t.Fatalf("rating passed = %d", fb.rating)
		}
		var resp FeedbackResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if !resp.Updated {
			t.Fatal("updated = false")
		}
	})
}
