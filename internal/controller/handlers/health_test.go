package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketcap/internal/kv"
	"marketcap/internal/source"
)

func TestHealthz(t *testing.T) {
	h := newTestHandlers(&mockStore{}, &mockRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.Healthz(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Errorf("unexpected body %q", rr.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name           string
		store          *mockStore
		kvErr          error
		expectedStatus int
	}{
		{name: "Ready", store: &mockStore{}, expectedStatus: http.StatusOK},
		{name: "Database down", store: &mockStore{pingErr: errors.New("refused")}, expectedStatus: http.StatusServiceUnavailable},
		{name: "KV down", store: &mockStore{}, kvErr: errors.New("refused"), expectedStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := source.NewRegistry(&stubSource{name: "seap", confidence: 70})
			h := New(tt.store, &mockRunner{}, &mockPinger{err: tt.kvErr}, registry, kv.NewRunState(kv.NewMemoryStore()), 500, 10*time.Minute)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			rr := httptest.NewRecorder()
			h.Readyz(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("got status %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}
