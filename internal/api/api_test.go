package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/content-review-api/internal/api"
	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/metrics"
	"github.com/content-review-api/internal/mocks"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/service"
	"github.com/content-review-api/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

type testEnv struct {
	router    *gin.Engine
	review    *mocks.MockReviewService
	bulk      *mocks.MockBulkService
	publisher *mocks.MockPublisherService
	metrics   *metrics.Metrics
}

func setupTestRouter() *testEnv {
	gin.SetMode(gin.TestMode)

	mockReview := mocks.NewMockReviewService()
	mockBulk := mocks.NewMockBulkService()
	mockPublisher := mocks.NewMockPublisherService()

	services := &service.Services{
		Review:    mockReview,
		Bulk:      mockBulk,
		Publisher: mockPublisher,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Bulk:   config.BulkConfig{MaxItems: 10, Concurrency: 2},
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	log := zerolog.Nop()
	router := api.NewRouter(services, cfg, log, reg)

	return &testEnv{router: router, review: mockReview, bulk: mockBulk, publisher: mockPublisher, metrics: m}
}

func seed(env *testEnv, id string, kind models.Kind, status models.Status, version int64) {
	r := &models.ContentRecord{
		ID:        id,
		Kind:      kind,
		ClientID:  "client-1",
		Title:     "Item " + id,
		Status:    status,
		Version:   version,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if status == models.StatusPublished {
		now := time.Now()
		r.PublishedAt = &now
	}
	env.review.Put(r)
}

func doRequest(env *testEnv, method, path, role string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch role {
	case "agency":
		req.Header.Set("X-Actor-Role", "agency")
		req.Header.Set("X-Actor-ID", "agency-user")
	case "client":
		req.Header.Set("X-Actor-Role", "client")
		req.Header.Set("X-Actor-ID", "client-user")
		req.Header.Set("X-Client-ID", "client-1")
	case "":
	default:
		req.Header.Set("X-Actor-Role", role)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)

	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "content-review-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter()
	env.metrics.Transition("blog_post", "approve", metrics.OutcomeSuccess)

	w := doRequest(env, "GET", "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `content_review_transitions_total{kind="blog_post",outcome="success",transition="approve"} 1`) {
		t.Errorf("Expected transition counter in output, got:\n%s", w.Body.String())
	}
}

func TestActorHeaders(t *testing.T) {
	env := setupTestRouter()

	tests := []struct {
		name     string
		headers  []string
		wantCode int
	}{
		{"missing role", nil, http.StatusUnauthorized},
		{"system role from outside", []string{"X-Actor-Role", "system"}, http.StatusBadRequest},
		{"unknown role", []string{"X-Actor-Role", "admin"}, http.StatusBadRequest},
		{"client without client id", []string{"X-Actor-Role", "client"}, http.StatusBadRequest},
		{"agency", []string{"X-Actor-Role", "agency"}, http.StatusOK},
		{"role is case-insensitive", []string{"X-Actor-Role", "AGENCY"}, http.StatusOK},
		{"client with client id", []string{"X-Actor-Role", "client", "X-Client-ID", "client-1"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(env, "GET", "/v1/content", "", nil, tt.headers...)
			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestCreateContent(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, "POST", "/v1/content", "agency", map[string]interface{}{
		"kind":      "blog_post",
		"client_id": "client-1",
		"title":     "Ten tips",
		"content":   "Body",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response api.ContentResponse
	decode(t, w, &response)

	if response.Status != "draft" {
		t.Errorf("Expected status 'draft', got %q", response.Status)
	}
	if len(response.AllowedTransitions) != 1 || response.AllowedTransitions[0] != "submit" {
		t.Errorf("Expected [submit], got %v", response.AllowedTransitions)
	}
	if response.RejectionReason != nil {
		t.Errorf("Expected null rejection_reason, got %v", *response.RejectionReason)
	}
	if w.Header().Get("ETag") != `"1"` {
		t.Errorf("Expected ETag \"1\", got %q", w.Header().Get("ETag"))
	}
}

func TestCreateContent_CampaignSpelling(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, "POST", "/v1/content", "agency", map[string]interface{}{
		"kind":          "campaign",
		"client_id":     "client-1",
		"title":         "Spring",
		"email_subject": "Hello",
		"email_body":    "Body",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	var response api.ContentResponse
	decode(t, w, &response)
	if response.Status != "DRAFT" {
		t.Errorf("Expected 'DRAFT', got %q", response.Status)
	}
}

func TestCreateContent_BadInput(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, "POST", "/v1/content", "agency", map[string]interface{}{"kind": "newsletter"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown kind, got %d", w.Code)
	}

	req := httptest.NewRequest("POST", "/v1/content", strings.NewReader("{not json"))
	req.Header.Set("X-Actor-Role", "agency")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad JSON, got %d", rec.Code)
	}
}

func TestGetContent(t *testing.T) {
	env := setupTestRouter()
	seed(env, "c1", models.KindCampaign, models.StatusPublished, 6)

	w := doRequest(env, "GET", "/v1/content/c1", "client", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response api.ContentResponse
	decode(t, w, &response)
	if response.Status != "ACTIVE" {
		t.Errorf("Expected 'ACTIVE', got %q", response.Status)
	}
	if response.PublishedAt == nil {
		t.Error("Expected published_at to be set")
	}
	if len(response.AllowedTransitions) != 0 {
		t.Errorf("Expected no allowed transitions, got %v", response.AllowedTransitions)
	}
}

func TestGetContent_NotFound(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, "GET", "/v1/content/nonexistent", "agency", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name       string
		kind       models.Kind
		status     models.Status
		path       string
		role       string
		body       interface{}
		headers    []string
		wantCode   int
		wantStatus string
	}{
		{
			name: "submit blog post", kind: models.KindBlogPost, status: models.StatusDraft,
			path: "/v1/content/p1/submit", role: "agency",
			wantCode: http.StatusOK, wantStatus: "pending_review",
		},
		{
			name: "reject social post with reason", kind: models.KindSocialMediaPost, status: models.StatusPendingReview,
			path: "/v1/content/p1/reject", role: "client", body: map[string]string{"reason": "low quality images"},
			wantCode: http.StatusOK, wantStatus: "rejected",
		},
		{
			name: "approve campaign", kind: models.KindCampaign, status: models.StatusPendingReview,
			path: "/v1/content/p1/approve", role: "client",
			wantCode: http.StatusOK, wantStatus: "ACTIVE",
		},
		{
			name: "reject without reason", kind: models.KindBlogPost, status: models.StatusPendingReview,
			path: "/v1/content/p1/reject", role: "client", body: map[string]string{"reason": "  "},
			wantCode: http.StatusBadRequest,
		},
		{
			name: "agency cannot approve", kind: models.KindBlogPost, status: models.StatusPendingReview,
			path: "/v1/content/p1/approve", role: "agency",
			wantCode: http.StatusForbidden,
		},
		{
			name: "approve already approved", kind: models.KindBlogPost, status: models.StatusApproved,
			path: "/v1/content/p1/approve", role: "client",
			wantCode: http.StatusConflict,
		},
		{
			name: "stale If-Match", kind: models.KindBlogPost, status: models.StatusDraft,
			path: "/v1/content/p1/submit", role: "agency", headers: []string{"If-Match", `"1"`},
			wantCode: http.StatusPreconditionFailed,
		},
		{
			name: "matching If-Match", kind: models.KindBlogPost, status: models.StatusDraft,
			path: "/v1/content/p1/submit", role: "agency", headers: []string{"If-Match", `"2"`},
			wantCode: http.StatusOK, wantStatus: "pending_review",
		},
		{
			name: "stale expected_version", kind: models.KindBlogPost, status: models.StatusApproved,
			path: "/v1/content/p1/publish", role: "agency", body: map[string]int{"expected_version": 7},
			wantCode: http.StatusPreconditionFailed,
		},
		{
			name: "malformed If-Match", kind: models.KindBlogPost, status: models.StatusDraft,
			path: "/v1/content/p1/submit", role: "agency", headers: []string{"If-Match", "abc"},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestRouter()
			seed(env, "p1", tt.kind, tt.status, 2)

			w := doRequest(env, "POST", tt.path, tt.role, tt.body, tt.headers...)
			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantStatus == "" {
				return
			}

			var response api.ContentResponse
			decode(t, w, &response)
			if response.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, response.Status)
			}
			if response.Version != 3 {
				t.Errorf("Expected version 3, got %d", response.Version)
			}
		})
	}
}

func TestTransition_PassesVersionAndActor(t *testing.T) {
	env := setupTestRouter()
	seed(env, "p1", models.KindBlogPost, models.StatusDraft, 4)

	w := doRequest(env, "POST", "/v1/content/p1/submit", "agency", nil, "If-Match", `W/"4"`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	if len(env.review.Calls) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(env.review.Calls))
	}
	call := env.review.Calls[0]
	if call.ExpectedVersion == nil || *call.ExpectedVersion != 4 {
		t.Errorf("Expected version 4 to be passed, got %v", call.ExpectedVersion)
	}
	if call.Actor.Role != models.RoleAgency || call.Actor.ID != "agency-user" {
		t.Errorf("Unexpected actor %+v", call.Actor)
	}
}

func TestInternalErrorsAreHidden(t *testing.T) {
	env := setupTestRouter()
	env.review.Err = errors.New("pq: connection refused")

	w := doRequest(env, "GET", "/v1/content/p1", "agency", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "pq:") {
		t.Errorf("Internal error leaked: %s", w.Body.String())
	}
}

func TestSchedule(t *testing.T) {
	env := setupTestRouter()
	seed(env, "p1", models.KindBlogPost, models.StatusApproved, 3)

	var got service.ScheduleRequest
	env.review.ScheduleFunc = func(_ context.Context, id string, actor models.Actor, req service.ScheduleRequest) (*models.ContentRecord, error) {
		got = req
		at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		return &models.ContentRecord{
			ID:          id,
			Kind:        models.KindBlogPost,
			ClientID:    "client-1",
			Status:      models.StatusApproved,
			ScheduledAt: &at,
			Timezone:    req.Timezone,
			Version:     4,
		}, nil
	}

	w := doRequest(env, "PUT", "/v1/content/p1/schedule", "agency", map[string]string{
		"date":     "2026-05-01",
		"time":     "10:00",
		"timezone": "Europe/Berlin",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got.Date != "2026-05-01" || got.Time != "10:00" || got.Timezone != "Europe/Berlin" {
		t.Errorf("Unexpected request passed to service: %+v", got)
	}

	var response api.ContentResponse
	decode(t, w, &response)
	if response.ScheduledLocal != "2026-05-01 10:00 CEST" {
		t.Errorf("Expected local display, got %q", response.ScheduledLocal)
	}
}

func TestBulkApply(t *testing.T) {
	env := setupTestRouter()
	env.bulk.BulkFunc = func(_ context.Context, ids []string, tr models.Transition, actor models.Actor) (*models.BulkResult, error) {
		result := models.NewBulkResult(tr)
		result.Succeeded = []string{"p1", "p3"}
		result.Skipped = []string{"p2"}
		return result, nil
	}

	w := doRequest(env, "POST", "/v1/content/bulk", "client", map[string]interface{}{
		"ids":        []string{"p1", "p2", "p3"},
		"transition": "APPROVE",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response models.BulkResponse
	decode(t, w, &response)
	if response.SucceededCount != 2 || response.SkippedCount != 1 || response.FailedCount != 0 {
		t.Errorf("Unexpected counts %+v", response)
	}
	if len(env.bulk.Requests) != 1 || env.bulk.Requests[0].Transition != models.TransitionApprove {
		t.Errorf("Expected normalised transition, got %+v", env.bulk.Requests)
	}
}

func TestBulkApply_Refused(t *testing.T) {
	env := setupTestRouter()
	env.bulk.BulkFunc = func(_ context.Context, ids []string, tr models.Transition, actor models.Actor) (*models.BulkResult, error) {
		return nil, workflow.NewValidationError("transition", "bulk reject is not supported")
	}

	w := doRequest(env, "POST", "/v1/content/bulk", "client", map[string]interface{}{
		"ids":        []string{"p1"},
		"transition": "reject",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["code"] != "validation_failed" {
		t.Errorf("Expected validation_failed code, got %v", response["code"])
	}
}

func TestBulkApply_TooManyIDs(t *testing.T) {
	env := setupTestRouter()

	ids := make([]string, 41)
	for i := range ids {
		ids[i] = "p1"
	}
	w := doRequest(env, "POST", "/v1/content/bulk", "client", map[string]interface{}{"ids": ids, "transition": "approve"})
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestListContent_StatusVocabulary(t *testing.T) {
	env := setupTestRouter()
	seed(env, "c1", models.KindCampaign, models.StatusPendingReview, 2)
	seed(env, "p1", models.KindBlogPost, models.StatusDraft, 1)

	w := doRequest(env, "GET", "/v1/content?kind=campaign&status=REVIEW&limit=5", "agency", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response struct {
		Items []api.ContentResponse `json:"items"`
		Count int                   `json:"count"`
	}
	decode(t, w, &response)
	if response.Count != 1 || response.Items[0].ID != "c1" || response.Items[0].Status != "REVIEW" {
		t.Errorf("Unexpected list %+v", response)
	}

	filter := env.review.ListFilters[0]
	if filter.Status != models.StatusPendingReview || filter.Limit != 5 {
		t.Errorf("Unexpected filter %+v", filter)
	}

	for _, bad := range []string{
		"/v1/content?kind=campaign&status=SCHEDULED",
		"/v1/content?status=PAUSED",
		"/v1/content?kind=blog_post&status=ACTIVE",
		"/v1/content?limit=-1",
	} {
		w := doRequest(env, "GET", bad, "agency", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", bad, w.Code)
		}
	}
}

func TestGetEvents(t *testing.T) {
	env := setupTestRouter()
	seed(env, "c1", models.KindCampaign, models.StatusPublished, 6)
	env.review.EventLog["c1"] = []models.Event{{
		ID:         "e1",
		RecordID:   "c1",
		Kind:       models.KindCampaign,
		Transition: models.TransitionApprove,
		FromStatus: models.StatusPendingReview,
		ToStatus:   models.StatusPublished,
		Version:    6,
	}}

	w := doRequest(env, "GET", "/v1/content/c1/events", "client", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Events []api.EventResponse `json:"events"`
	}
	decode(t, w, &response)
	if len(response.Events) != 1 || response.Events[0].From != "REVIEW" || response.Events[0].To != "ACTIVE" {
		t.Errorf("Unexpected events %+v", response.Events)
	}
}

func TestGetStats(t *testing.T) {
	env := setupTestRouter()
	env.review.Counts = []models.StatusCount{
		{Kind: models.KindCampaign, Status: models.StatusPublished, Count: 3},
		{Kind: models.KindBlogPost, Status: models.StatusPendingReview, Count: 2},
	}

	w := doRequest(env, "GET", "/v1/stats", "agency", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response struct {
		Counts []api.StatusCountResponse `json:"counts"`
		Total  int                       `json:"total"`
	}
	decode(t, w, &response)
	if response.Total != 5 || response.Counts[0].Status != "ACTIVE" || response.Counts[1].Status != "pending_review" {
		t.Errorf("Unexpected stats %+v", response)
	}
}

func TestGetStats_PassesClientActor(t *testing.T) {
	env := setupTestRouter()

	w := doRequest(env, "GET", "/v1/stats", "client", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if len(env.review.StatsActors) != 1 {
		t.Fatalf("Expected one Stats call, got %d", len(env.review.StatsActors))
	}
	if got := env.review.StatsActors[0]; got.Role != models.RoleClient || got.ClientID != "client-1" {
		t.Errorf("Expected client-1 actor, got %+v", got)
	}
}
