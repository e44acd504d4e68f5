package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"marketcap/internal/logger"
)

func TestClient_VerifyActiveEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v9/ws/tva" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"found": [{
				"date_generale": {"cui": 14592450, "denumire": "DEDEMAN SRL", "statusInactivi": false},
				"inregistrare_scop_Tva": {"scpTVA": true}
			}]
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.New())

	res := c.Verify(context.Background(), "14592450")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", res.Status)
	}
	if !res.IsActive {
		t.Error("entity should be active")
	}
	if !res.IsVATRegistered {
		t.Error("entity should be VAT registered")
	}
	if res.OfficialName != "DEDEMAN SRL" {
		t.Errorf("official name = %q", res.OfficialName)
	}
	if res.VerifiedAt.IsZero() {
		t.Error("VerifiedAt not set")
	}
}

func TestClient_VerifyInactiveEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"found": [{
				"date_generale": {"cui": 949, "denumire": "RADIATA SRL", "statusInactivi": true},
				"inregistrare_scop_Tva": {"scpTVA": false}
			}]
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.New())

	res := c.Verify(context.Background(), "949")
	if res.Status != StatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", res.Status)
	}
	if res.IsActive {
		t.Error("inactive marker must negate IsActive")
	}
}

func TestClient_UnknownIdentifierIsInactive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"found": []}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.New())

	res := c.Verify(context.Background(), "3660")
	if res.Status != StatusSuccess || res.IsActive {
		t.Errorf("unknown identifier: got %+v, want SUCCESS+inactive", res)
	}
}

func TestClient_RegistryDownNeverReturnsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.New())
	c.retries = 0

	res := c.Verify(context.Background(), "14592450")
	if res.Status != StatusError {
		t.Fatalf("status = %s, want ERROR", res.Status)
	}
	if res.VerifiedAt.IsZero() {
		t.Error("ERROR result still carries a best-effort timestamp")
	}
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "blip", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"found": [{
				"date_generale": {"cui": 48467, "denumire": "MICA SRL", "statusInactivi": false},
				"inregistrare_scop_Tva": {"scpTVA": false}
			}]
		}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, logger.New())

	res := c.Verify(context.Background(), "48467")
	if res.Status != StatusSuccess || !res.IsActive {
		t.Fatalf("got %+v after retry, want SUCCESS+active", res)
	}
	if calls.Load() < 2 {
		t.Errorf("expected a retry, saw %d calls", calls.Load())
	}
}
