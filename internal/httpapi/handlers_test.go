package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"hiring-pipeline/internal/applications"
	"hiring-pipeline/internal/audit"
	"hiring-pipeline/internal/auth"
	"hiring-pipeline/internal/config"
	"hiring-pipeline/internal/screening"
	"hiring-pipeline/internal/workflow"
)

type testServer struct {
	router *gin.Engine
	auth   *auth.Manager
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	auditSvc := audit.NewService(audit.NewMemoryRepo())
	svc, err := workflow.NewService(workflow.Deps{
		Applications: applications.NewMemoryRepo(),
		Screenings:   screening.NewMemoryRepo(),
		Audit:        auditSvc,
	}, config.DefaultWorkflowConfig())
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}

	h := Handlers{Auth: m, Workflow: svc, Audit: auditSvc}
	r := gin.New()
	r.POST("/auth/login", h.Login)
	v1 := r.Group("/v1", auth.RequireAccessToken(m))
	v1.POST("/applications", h.CreateApplication)
	v1.GET("/applications/:application_id", h.GetApplication)
	v1.GET("/applications/:application_id/timeline", h.GetTimeline)
	v1.GET("/applications/:application_id/transitions", h.ListTransitions)
	v1.POST("/applications/:application_id/transitions", h.RequestTransition)
	v1.POST("/applications/:application_id/screenings", h.ScheduleScreening)
	v1.GET("/applications/:application_id/screenings", h.ListScreenings)
	v1.GET("/admin/applications/:application_id/audit", h.ListAuditEvents)
	return testServer{router: r, auth: m}
}

func (s testServer) do(t *testing.T, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		pair, err := s.auth.IssuePair(time.Now(), "user-"+role, role)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func (s testServer) createApp(t *testing.T) applications.Application {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/applications", "candidate", gin.H{"candidate_id": "c1", "job_id": "j1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var app applications.Application
	decode(t, w, &app)
	return app
}

func TestCreateAndGetApplication(t *testing.T) {
	s := newTestServer(t)
	app := s.createApp(t)
	if app.Status != applications.StatusSubmitted || len(app.Timeline) != 1 {
		t.Fatalf("unexpected app: %+v", app)
	}

	w := s.do(t, http.MethodGet, "/v1/applications/"+app.ID, "recruiter", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/applications/missing", "recruiter", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestCreateApplication_ValidatesBody(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/v1/applications", "candidate", gin.H{"candidate_id": "c1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	fields, _ := body["fields"].(map[string]any)
	if _, ok := fields["job_id"]; !ok {
		t.Fatalf("expected job_id field error, got %v", body)
	}
}

func TestRequestTransition_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	app := s.createApp(t)
	path := "/v1/applications/" + app.ID + "/transitions"

	w := s.do(t, http.MethodPost, path, "admin", gin.H{"to_status": "hired", "note": "fast track"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for submitted -> hired, got %d", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["from"] != "submitted" || body["to"] != "hired" {
		t.Fatalf("expected rejected pair in body, got %v", body)
	}

	w = s.do(t, http.MethodPost, path, "recruiter", gin.H{"to_status": "under_review"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPost, path, "recruiter", gin.H{"to_status": "hired"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing note, got %d", w.Code)
	}

	w = s.do(t, http.MethodPost, path, "recruiter", gin.H{"to_status": "promoted"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/admin/applications/"+app.ID+"/audit", "admin", nil)
	var evs struct {
		Events []audit.Event `json:"events"`
	}
	decode(t, w, &evs)
	if len(evs.Events) != 2 {
		t.Fatalf("expected 2 rejected transitions audited, got %d", len(evs.Events))
	}
}

func TestListTransitions_ForRole(t *testing.T) {
	s := newTestServer(t)
	app := s.createApp(t)

	w := s.do(t, http.MethodGet, "/v1/applications/"+app.ID+"/transitions", "candidate", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Transitions []struct {
			ToStatus     string `json:"to_status"`
			RequiresNote bool   `json:"requires_note"`
		} `json:"transitions"`
	}
	decode(t, w, &body)
	if len(body.Transitions) != 1 || body.Transitions[0].ToStatus != "withdrawn" {
		t.Fatalf("unexpected transitions: %+v", body.Transitions)
	}
}

func TestScheduleScreeningAndTimeline(t *testing.T) {
	s := newTestServer(t)
	app := s.createApp(t)

	w := s.do(t, http.MethodPost, "/v1/applications/"+app.ID+"/screenings", "recruiter", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("schedule: %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, "/v1/applications/"+app.ID+"/screenings", "recruiter", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second active screening, got %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/v1/applications/"+app.ID+"/timeline", "recruiter", nil)
	var tl struct {
		Timeline []applications.TimelineEntry `json:"timeline"`
	}
	decode(t, w, &tl)
	if len(tl.Timeline) != 2 || tl.Timeline[1].ToStatus != applications.StatusScreeningScheduled {
		t.Fatalf("unexpected timeline: %+v", tl.Timeline)
	}

	w = s.do(t, http.MethodGet, "/v1/applications/"+app.ID+"/screenings", "recruiter", nil)
	var calls struct {
		Calls []screening.Call `json:"screening_calls"`
	}
	decode(t, w, &calls)
	if len(calls.Calls) != 1 || calls.Calls[0].Attempt != 1 {
		t.Fatalf("unexpected calls: %+v", calls.Calls)
	}
}

func TestLogin_IssuesTokens(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"user_id": "u1", "role": "recruiter"})
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"user_id": "u1", "role": "owner"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/v1/applications/x", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
