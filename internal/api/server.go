// Package api exposes a read-only control-plane HTTP API over a match
// run history and the most recently committed symbol table, so the
// downstream patcher and operators can poll instead of scraping log
// output (spec §1's "downstream patcher" external collaborator attaches
// here). Routing is github.com/go-chi/chi/v5; bearer tokens are verified
// with github.com/golang-jwt/jwt/v5.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/arnoldjb/runpre/internal/audit"
)

// BindingsProvider supplies the committed symbol table of the most recent
// successful match run.
type BindingsProvider interface {
	Bindings() map[string]int64
}

// Server is the HTTP control plane.
type Server struct {
	store    *audit.Store
	bindings BindingsProvider
	verifier TokenVerifier
	router   chi.Router
}

// NewServer wires routes onto a chi.Router. bindings may be nil if no
// match has completed yet; Bindings endpoint then returns an empty map.
func NewServer(store *audit.Store, bindings BindingsProvider, verifier TokenVerifier) *Server {
	s := &Server{store: store, bindings: bindings, verifier: verifier}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/runs", s.listRuns)
		r.Get("/runs/{id}", s.getRun)
		r.Get("/bindings", s.getBindings)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}
	run, err := s.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, run)
}

func (s *Server) getBindings(w http.ResponseWriter, r *http.Request) {
	if s.bindings == nil {
		writeJSON(w, map[string]int64{})
		return
	}
	writeJSON(w, s.bindings.Bindings())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type ctxKey int

const ctxSubject ctxKey = iota

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		subject, err := s.verifier.Verify(token)
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), ctxSubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
