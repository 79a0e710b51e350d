package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lucron9090/cruis-api/internal/common"
)

func TestDeleteSession(t *testing.T) {
	manager := newTestManager(&stubAuthenticator{creds: validCreds()}, nil)
	handler := NewSessionHandler(manager, common.GetLogger())

	sessionID, _, err := manager.Authenticate(context.Background(), "111")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/session/"+sessionID, nil)
	rec := httptest.NewRecorder()
	handler.DeleteHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	// A second delete is the strict 404 case: the id no longer exists.
	rec = httptest.NewRecorder()
	handler.DeleteHandler(rec, httptest.NewRequest(http.MethodDelete, "/api/session/"+sessionID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDeleteUnknownSessionIs404(t *testing.T) {
	handler := NewSessionHandler(newTestManager(&stubAuthenticator{}, nil), common.GetLogger())

	req := httptest.NewRequest(http.MethodDelete, "/api/session/ghost", nil)
	rec := httptest.NewRecorder()
	handler.DeleteHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteSessionBadPath(t *testing.T) {
	handler := NewSessionHandler(newTestManager(&stubAuthenticator{}, nil), common.GetLogger())

	for _, path := range []string{"/api/session/", "/api/session/a/b"} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		rec := httptest.NewRecorder()
		handler.DeleteHandler(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("path %q status = %d, want 400", path, rec.Code)
		}
	}
}

func TestDeleteSessionMethodNotAllowed(t *testing.T) {
	handler := NewSessionHandler(newTestManager(&stubAuthenticator{}, nil), common.GetLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/session/x", nil)
	rec := httptest.NewRecorder()
	handler.DeleteHandler(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
