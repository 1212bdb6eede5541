package patient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockRepo, *mockMetricRepo) {
	repo := newMockRepo()
	metrics := &mockMetricRepo{}
	return NewHandler(NewService(repo, metrics)), repo, metrics
}

func TestHandler_ListPatients_EmptyIsArray(t *testing.T) {
	h, _, _ := newTestHandler()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Fatalf("expected empty JSON array, got %s", body)
	}
}

func TestHandler_ListPatients(t *testing.T) {
	h, repo, _ := newTestHandler()
	svc := NewService(repo, &mockMetricRepo{})
	svc.GetOrCreate(context.Background(), "+5511999990000")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPatients(c); err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}

	var patients []Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &patients); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(patients))
	}
	if patients[0].PhoneNumber != "+5511999990000" {
		t.Fatalf("unexpected phone: %s", patients[0].PhoneNumber)
	}
}

func TestHandler_UpdatePatient(t *testing.T) {
	h, repo, _ := newTestHandler()
	svc := NewService(repo, &mockMetricRepo{})
	p, _, _ := svc.GetOrCreate(context.Background(), "+5511999990000")

	e := echo.New()
	body := `{"name":"Maria Silva","conversation_mode":"manual"}`
	req := httptest.NewRequest(http.MethodPut, "/api/patients/"+p.ID.String(), strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.UpdatePatient(c); err != nil {
		t.Fatalf("UpdatePatient failed: %v", err)
	}

	var updated Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if updated.Name == nil || *updated.Name != "Maria Silva" {
		t.Fatalf("expected name Maria Silva, got %v", updated.Name)
	}
	if updated.ConversationMode != ModeManual {
		t.Fatalf("expected manual mode, got %s", updated.ConversationMode)
	}
}

func TestHandler_UpdatePatient_NotFound(t *testing.T) {
	h, _, _ := newTestHandler()

	e := echo.New()
	id := uuid.New().String()
	req := httptest.NewRequest(http.MethodPut, "/api/patients/"+id, strings.NewReader(`{"name":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)

	err := h.UpdatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_UpdatePatient_InvalidID(t *testing.T) {
	h, _, _ := newTestHandler()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/api/patients/abc", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	err := h.UpdatePatient(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ListMetrics(t *testing.T) {
	h, repo, metrics := newTestHandler()
	svc := NewService(repo, metrics)
	p, _, _ := svc.GetOrCreate(context.Background(), "+5511999990000")
	svc.RecordMetric(context.Background(), p.ID, "weight", 81.2)
	svc.RecordMetric(context.Background(), p.ID, "glucose", 98)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients/"+p.ID.String()+"/metrics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.ListMetrics(c); err != nil {
		t.Fatalf("ListMetrics failed: %v", err)
	}

	var got []Metric
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(got))
	}
	if got[0].MetricType != "weight" || got[1].MetricType != "glucose" {
		t.Fatalf("expected insertion order, got %s then %s", got[0].MetricType, got[1].MetricType)
	}
}
