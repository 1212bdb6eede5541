package ingest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func newTestHandler(env *testEnv) *Handler {
	return NewHandler(env.pipeline, "verify-secret", zerolog.Nop())
}

func postWebhook(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Receive(c); err != nil {
		t.Fatalf("Receive returned error: %v", err)
	}
	return rec
}

func TestHandler_Receive_OK(t *testing.T) {
	env := newTestEnv()
	h := newTestHandler(env)

	body := `{"entry":[{"changes":[{"value":{"messages":[{"from":"+5511999990000","type":"text","text":{"body":"hello"}}]}}]}]}`
	rec := postWebhook(t, h, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status ok, got %s", resp.Status)
	}
	if len(env.messageRepo.items) != 1 {
		t.Fatal("expected message persisted")
	}
}

func TestHandler_Receive_NonMessageDelivery(t *testing.T) {
	env := newTestEnv()
	h := newTestHandler(env)

	rec := postWebhook(t, h, `{"entry":[]}`)

	var resp statusResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "ok" {
		t.Fatalf("non-message delivery must report ok, got %s", resp.Status)
	}
}

func TestHandler_Receive_MalformedBody(t *testing.T) {
	env := newTestEnv()
	h := newTestHandler(env)

	rec := postWebhook(t, h, `{not json`)

	if rec.Code != http.StatusOK {
		t.Fatalf("malformed body must still get 200, got %d", rec.Code)
	}
	var resp statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Status != "error" || resp.Detail == "" {
		t.Fatalf("expected error envelope with detail, got %+v", resp)
	}
}

func TestHandler_Receive_PipelineFailure(t *testing.T) {
	env := newTestEnv()
	env.patientRepo.createErr = fmt.Errorf("connection reset")
	h := newTestHandler(env)

	body := `{"entry":[{"changes":[{"value":{"messages":[{"from":"+5511999990000","type":"text","text":{"body":"hello"}}]}}]}]}`
	rec := postWebhook(t, h, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("pipeline failure must still get 200, got %d", rec.Code)
	}
	var resp statusResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "error" || resp.Detail == "" {
		t.Fatalf("expected error envelope, got %+v", resp)
	}
}

func getVerify(t *testing.T, h *Handler, query string) (int, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/webhook?"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h.Verify(c)
	if err != nil {
		httpErr, ok := err.(*echo.HTTPError)
		if !ok {
			t.Fatalf("unexpected error type: %v", err)
		}
		return httpErr.Code, ""
	}
	return rec.Code, strings.TrimSpace(rec.Body.String())
}

func TestHandler_Verify_Match(t *testing.T) {
	h := newTestHandler(newTestEnv())

	code, body := getVerify(t, h, "hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=1158201444")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body != "1158201444" {
		t.Fatalf("expected numeric challenge echoed, got %q", body)
	}
}

func TestHandler_Verify_BareParamNames(t *testing.T) {
	h := newTestHandler(newTestEnv())

	code, body := getVerify(t, h, "mode=subscribe&verify_token=verify-secret&challenge=42")
	if code != http.StatusOK || body != "42" {
		t.Fatalf("expected 200 with 42, got %d %q", code, body)
	}
}

func TestHandler_Verify_WrongToken(t *testing.T) {
	h := newTestHandler(newTestEnv())

	code, _ := getVerify(t, h, "hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=1")
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestHandler_Verify_MissingMode(t *testing.T) {
	h := newTestHandler(newTestEnv())

	code, _ := getVerify(t, h, "hub.verify_token=verify-secret&hub.challenge=1")
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestHandler_Verify_NonNumericChallenge(t *testing.T) {
	h := newTestHandler(newTestEnv())

	code, _ := getVerify(t, h, "hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=abc")
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}
