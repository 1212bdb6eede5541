package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_Send(t *testing.T) {
	var captured sendRequest
	var gotAuth, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := NewClient(server.URL, "12345", "secret-token")
	if err := c.Send(context.Background(), "+5511999998888", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotPath != "/12345/messages" {
		t.Errorf("unexpected path: %q", gotPath)
	}
	if captured.MessagingProduct != "whatsapp" || captured.Type != "text" {
		t.Errorf("unexpected envelope: %+v", captured)
	}
	if captured.To != "+5511999998888" || captured.Text.Body != "hello" {
		t.Errorf("unexpected recipient or body: %+v", captured)
	}
}

func TestClient_SendNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, "12345", "bad-token")
	if err := c.Send(context.Background(), "+5511999998888", "hello"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestClient_SendTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	c := NewClient(server.URL, "12345", "token")
	if err := c.Send(context.Background(), "+5511999998888", "hello"); err == nil {
		t.Fatal("expected error for transport failure")
	}
}

func TestMockSender_RecordsCalls(t *testing.T) {
	m := &MockSender{}
	if err := m.Send(context.Background(), "+551100000000", "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := m.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].To != "+551100000000" || calls[0].Text != "hi" {
		t.Errorf("unexpected call: %+v", calls[0])
	}
}

func TestMockSender_Failure(t *testing.T) {
	m := &MockSender{ShouldFail: true, FailError: fmt.Errorf("provider down")}
	if err := m.Send(context.Background(), "+551100000000", "hi"); err == nil {
		t.Fatal("expected error from failing mock")
	}
	if len(m.Calls()) != 1 {
		t.Fatal("expected the attempt to be recorded")
	}
}
