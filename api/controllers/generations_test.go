package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omarvides/restyle-backend/api/middleware"
	"github.com/omarvides/restyle-backend/internal/generations"
	"github.com/omarvides/restyle-backend/pkg/logger"
)

type testGenerationService struct {
	generateFn   func(ctx context.Context, userID uuid.UUID, input generations.GenerateInput) (*generations.Result, error)
	editFn       func(ctx context.Context, userID uuid.UUID, input generations.EditInput) (*generations.Result, error)
	variationsFn func(ctx context.Context, userID, parentID uuid.UUID, count int) ([]generations.Result, error)
	listFn       func(ctx context.Context, userID uuid.UUID, params generations.ListParams) (*generations.ListResult, error)
	deleteFn     func(ctx context.Context, userID, id uuid.UUID) error
}

func (s *testGenerationService) Generate(ctx context.Context, userID uuid.UUID, input generations.GenerateInput) (*generations.Result, error) {
	if s.generateFn != nil {
		return s.generateFn(ctx, userID, input)
	}
	return &generations.Result{}, nil
}

func (s *testGenerationService) Edit(ctx context.Context, userID uuid.UUID, input generations.EditInput) (*generations.Result, error) {
	if s.editFn != nil {
		return s.editFn(ctx, userID, input)
	}
	return &generations.Result{}, nil
}

func (s *testGenerationService) Variations(ctx context.Context, userID, parentID uuid.UUID, count int) ([]generations.Result, error) {
	if s.variationsFn != nil {
		return s.variationsFn(ctx, userID, parentID, count)
	}
	return nil, nil
}

func (s *testGenerationService) List(ctx context.Context, userID uuid.UUID, params generations.ListParams) (*generations.ListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID, params)
	}
	return &generations.ListResult{}, nil
}

func (s *testGenerationService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, userID, id)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestGenerationCreateSuccess(t *testing.T) {
	userID := uuid.New()
	resultID := uuid.New()
	var gotInput generations.GenerateInput
	svc := &testGenerationService{
		generateFn: func(ctx context.Context, uid uuid.UUID, input generations.GenerateInput) (*generations.Result, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			gotInput = input
			return &generations.Result{ID: &resultID, ImageURL: "https://cdn.example.com/out.png", Prompt: input.Prompt, CreatedAt: time.Now()}, nil
		},
	}

	body := `{"image":"https://example.com/room.png","style":"scandinavian","room_type":"living room"}`
	req := authedRequest(http.MethodPost, "/api/v1/generations", body, userID)
	resp := httptest.NewRecorder()
	GenerationCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d (%s)", resp.Code, resp.Body.String())
	}
	if gotInput.Style != "scandinavian" || gotInput.RoomType != "living room" {
		t.Fatalf("input not forwarded: %+v", gotInput)
	}

	var envelope struct {
		Data struct {
			Result generations.Result `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Result.ImageURL != "https://cdn.example.com/out.png" {
		t.Fatalf("unexpected image url %q", envelope.Data.Result.ImageURL)
	}
}

func TestGenerationCreateRejectsBadImage(t *testing.T) {
	svc := &testGenerationService{
		generateFn: func(ctx context.Context, uid uuid.UUID, input generations.GenerateInput) (*generations.Result, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	body := `{"image":"not-a-url","prompt":"hi"}`
	req := authedRequest(http.MethodPost, "/api/v1/generations", body, uuid.New())
	resp := httptest.NewRecorder()
	GenerationCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerationCreateRequiresUser(t *testing.T) {
	body := `{"image":"https://example.com/room.png","prompt":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	GenerationCreate(&testGenerationService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestGenerationEditParsesPurpose(t *testing.T) {
	userID := uuid.New()
	var gotInput generations.EditInput
	svc := &testGenerationService{
		editFn: func(ctx context.Context, uid uuid.UUID, input generations.EditInput) (*generations.Result, error) {
			gotInput = input
			return &generations.Result{ImageURL: "https://cdn.example.com/out.png"}, nil
		},
	}

	body := `{"purpose":"furniture","image":"https://example.com/room.png","prompt":"remove the sofa"}`
	req := authedRequest(http.MethodPost, "/api/v1/generations/edit", body, userID)
	resp := httptest.NewRecorder()
	GenerationEdit(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d (%s)", resp.Code, resp.Body.String())
	}
	if gotInput.Purpose.String() != "furniture" {
		t.Fatalf("unexpected purpose %q", gotInput.Purpose)
	}
}

func TestGenerationEditRejectsUnknownPurpose(t *testing.T) {
	svc := &testGenerationService{
		editFn: func(ctx context.Context, uid uuid.UUID, input generations.EditInput) (*generations.Result, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	body := `{"purpose":"hologram","image":"https://example.com/room.png","prompt":"x"}`
	req := authedRequest(http.MethodPost, "/api/v1/generations/edit", body, uuid.New())
	resp := httptest.NewRecorder()
	GenerationEdit(svc, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerationVariationsPassesParentAndCount(t *testing.T) {
	userID := uuid.New()
	parentID := uuid.New()
	svc := &testGenerationService{
		variationsFn: func(ctx context.Context, uid, pid uuid.UUID, count int) ([]generations.Result, error) {
			if pid != parentID {
				t.Fatalf("unexpected parent %s", pid)
			}
			if count != 3 {
				t.Fatalf("unexpected count %d", count)
			}
			id := uuid.New()
			return []generations.Result{{ID: &id, ImageURL: "https://cdn.example.com/v1.png"}}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/generations/"+parentID.String()+"/variations", `{"count":3}`, userID)
	req = withURLParam(req, "id", parentID.String())
	resp := httptest.NewRecorder()
	GenerationVariations(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			Variations []generations.Result `json:"variations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Variations) != 1 {
		t.Fatalf("expected one variation, got %d", len(envelope.Data.Variations))
	}
}

func TestGenerationVariationsRejectsCountAboveCap(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/generations/"+uuid.NewString()+"/variations", `{"count":9}`, uuid.New())
	req = withURLParam(req, "id", uuid.NewString())
	resp := httptest.NewRecorder()
	GenerationVariations(&testGenerationService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerationListForwardsPagination(t *testing.T) {
	userID := uuid.New()
	svc := &testGenerationService{
		listFn: func(ctx context.Context, uid uuid.UUID, params generations.ListParams) (*generations.ListResult, error) {
			if params.Limit != 25 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if params.Cursor != "abc123" {
				t.Fatalf("unexpected cursor %q", params.Cursor)
			}
			return &generations.ListResult{Items: []generations.Item{}, Cursor: "next456"}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/generations?limit=25&cursor=abc123", "", userID)
	resp := httptest.NewRecorder()
	GenerationList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d (%s)", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data struct {
			NextCursor string `json:"next_cursor"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.NextCursor != "next456" {
		t.Fatalf("unexpected next cursor %q", envelope.Data.NextCursor)
	}
}

func TestGenerationListRejectsBadLimit(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/generations?limit=0", "", uuid.New())
	resp := httptest.NewRecorder()
	GenerationList(&testGenerationService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGenerationDeleteSuccess(t *testing.T) {
	userID := uuid.New()
	targetID := uuid.New()
	called := false
	svc := &testGenerationService{
		deleteFn: func(ctx context.Context, uid, id uuid.UUID) error {
			called = true
			if uid != userID || id != targetID {
				t.Fatalf("unexpected args %s %s", uid, id)
			}
			return nil
		},
	}

	req := authedRequest(http.MethodDelete, "/api/v1/generations/"+targetID.String(), "", userID)
	req = withURLParam(req, "id", targetID.String())
	resp := httptest.NewRecorder()
	GenerationDelete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected delete called")
	}
}

func TestGenerationDeleteRejectsBadID(t *testing.T) {
	req := authedRequest(http.MethodDelete, "/api/v1/generations/not-a-uuid", "", uuid.New())
	req = withURLParam(req, "id", "not-a-uuid")
	resp := httptest.NewRecorder()
	GenerationDelete(&testGenerationService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
