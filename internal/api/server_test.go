package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arnoldjb/runpre/internal/audit"
)

type fakeBindings struct{ m map[string]int64 }

func (f fakeBindings) Bindings() map[string]int64 { return f.m }

func newTestStore(t *testing.T) *audit.Store {
	t.Helper()
	s, err := audit.Open(":memory:")
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestServer_UnauthenticatedWhenNoVerifierConfigured(t *testing.T) {
	store := newTestStore(t)
	srv := NewServer(store, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/bindings", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (no verifier means open access)", rr.Code)
	}
}

func TestServer_RejectsMissingBearerToken(t *testing.T) {
	store := newTestStore(t)
	srv := NewServer(store, nil, NewHMACVerifier([]byte("secret")))

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestServer_AcceptsValidBearerToken(t *testing.T) {
	secret := []byte("secret")
	store := newTestStore(t)
	srv := NewServer(store, nil, NewHMACVerifier(secret))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "op"})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rr.Code, rr.Body.String())
	}
}

func TestServer_GetBindingsReturnsConfiguredMap(t *testing.T) {
	store := newTestStore(t)
	srv := NewServer(store, fakeBindings{m: map[string]int64{"foo": 0x1000}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/bindings", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	var got map[string]int64
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["foo"] != 0x1000 {
		t.Fatalf("bindings = %+v, want foo=0x1000", got)
	}
}

func TestServer_GetBindingsEmptyWhenNoProvider(t *testing.T) {
	store := newTestStore(t)
	srv := NewServer(store, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/bindings", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	var got map[string]int64
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty bindings map, got %+v", got)
	}
}

func TestServer_ListAndGetRun(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Record(context.Background(), audit.Run{
		PatchName: "p.patch",
		StartedAt: time.Now(),
		Succeeded: true,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	srv := NewServer(store, nil, nil)

	listReq := httptest.NewRequest(http.MethodGet, "/runs", nil)
	listRR := httptest.NewRecorder()
	srv.ServeHTTP(listRR, listReq)
	if listRR.Code != http.StatusOK {
		t.Fatalf("GET /runs status = %d", listRR.Code)
	}
	var runs []audit.Run
	if err := json.NewDecoder(listRR.Body).Decode(&runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].PatchName != "p.patch" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/runs/1", nil)
	getRR := httptest.NewRecorder()
	srv.ServeHTTP(getRR, getReq)
	if getRR.Code != http.StatusOK {
		t.Fatalf("GET /runs/{id} status = %d, body=%s", getRR.Code, getRR.Body.String())
	}
	var run audit.Run
	if err := json.NewDecoder(getRR.Body).Decode(&run); err != nil {
		t.Fatalf("decode run: %v", err)
	}
	if run.ID != id {
		t.Fatalf("run.ID = %d, want %d", run.ID, id)
	}
}

func TestServer_GetRunNotFound(t *testing.T) {
	store := newTestStore(t)
	srv := NewServer(store, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/runs/999", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestServer_GetRunInvalidID(t *testing.T) {
	store := newTestStore(t)
	srv := NewServer(store, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/runs/not-a-number", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
