package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"retailpos/backend/internal/domain"
)

func timeNowPlusHour() time.Time { return time.Now().UTC().Add(time.Hour) }

func TestSecurityHeaders(t *testing.T) {
	handler, _ := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/healthz", nil, "")
	for header, want := range map[string]string{
		"X-Content-Type-Options":      "nosniff",
		"X-Frame-Options":             "DENY",
		"Referrer-Policy":             "strict-origin-when-cross-origin",
		"Access-Control-Allow-Origin": "*",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Fatalf("header %s = %q, want %q", header, got, want)
		}
	}
}

func TestPreflightShortCircuits(t *testing.T) {
	handler, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/transactions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatalf("expected CORS method header on preflight")
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler, _ := newTestAPI(t)

	body := domain.LoginRequest{Username: "admin", Password: "wrong-password"}
	for i := 0; i < 5; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/auth/login", body, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/auth/login", body, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting attempts, got %d", rec.Code)
	}
	if decodeBody(t, rec)["success"] != false {
		t.Fatalf("expected error envelope")
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	handler, _ := newTestAPI(t)

	huge := bytes.Repeat([]byte("a"), (1<<20)+1024)
	body := append([]byte(`{"cashierId":"`), huge...)
	body = append(body, []byte(`"}`)...)

	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized body, got %d", rec.Code)
	}
}

func TestUnknownFieldsRejected(t *testing.T) {
	handler, _ := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/transactions",
		bytes.NewReader([]byte(`{"cashierId":"cashier-1","surprise":true}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestAdminRouteForbiddenForCashierRole(t *testing.T) {
	handler, _ := newTestAPI(t)
	cashierToken := loginAs(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/auth/cashiers", nil, cashierToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier on admin route, got %d", rec.Code)
	}
}

func TestTokenSignedWithOtherSecretRejected(t *testing.T) {
	handler, _ := newTestAPI(t)

	other := NewAuthManager("another-secret-key-0123456789abcdef", 0, nil)
	token, err := other.sign("admin", "admin", timeNowPlusHour())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	rec := doJSON(t, handler, http.MethodGet, "/distributions", nil, token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign token, got %d", rec.Code)
	}
}
