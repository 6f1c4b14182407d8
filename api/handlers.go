package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/modhost"
	"github.com/GoCodeAlone/modhost/manifest"
	"github.com/GoCodeAlone/modhost/namespace"
)

// LoadRequest is the body of POST /modules.
type LoadRequest struct {
	Location string `json:"location"`
}

// NamespaceInfo describes an active namespace.
type NamespaceInfo struct {
	ID      string   `json:"id"`
	Exports []string `json:"exports"`
	Sources []string `json:"sources"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string         `json:"status"`
	Modules int            `json:"modules"`
	States  map[string]int `json:"states"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps host errors onto HTTP statuses.
func statusFor(err error) int {
	var pnf *modhost.PeerNotFoundError
	switch {
	case errors.As(err, &pnf):
		return http.StatusConflict
	case errors.Is(err, manifest.ErrManifestNotFound),
		errors.Is(err, manifest.ErrMissingField),
		errors.Is(err, manifest.ErrInvalidDependency),
		errors.Is(err, manifest.ErrInvalidRepository),
		errors.Is(err, modhost.ErrEntryPointNotFound),
		errors.Is(err, modhost.ErrEmptyLocation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) lookup(r *http.Request) *modhost.Wrapper {
	name := chi.URLParam(r, "name")
	if group, n, ok := strings.Cut(name, ":"); ok {
		return s.provider.Find(group, n)
	}
	return s.provider.Get(name)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", States: map[string]int{}}
	for _, m := range s.provider.Modules() {
		resp.Modules++
		resp.States[m.State().String()]++
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	modules := s.provider.Modules()
	infos := make([]modhost.WrapperInfo, 0, len(modules))
	for _, m := range modules {
		infos = append(infos, m.Info())
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) getModule(w http.ResponseWriter, r *http.Request) {
	m := s.lookup(r)
	if m == nil {
		writeError(w, http.StatusNotFound, modhost.ErrModuleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m.Info())
}

func (s *Server) loadModule(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if loc, err := modhost.NormalizeLocation(req.Location); err == nil {
		if existing := s.provider.BySource(loc); existing != nil {
			writeJSON(w, http.StatusConflict, existing.Info())
			return
		}
	}
	m, err := s.provider.Load(r.Context(), req.Location)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if m == nil {
		writeError(w, http.StatusConflict, errors.New("module is already being loaded"))
		return
	}
	writeJSON(w, http.StatusCreated, m.Info())
}

func (s *Server) transition(op string, fn func(*modhost.Wrapper, context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		defer s.lock.Unlock()

		m := s.lookup(r)
		if m == nil {
			writeError(w, http.StatusNotFound, modhost.ErrModuleNotFound)
			return
		}
		if m.State() == modhost.StateUnusable {
			writeError(w, http.StatusGone, modhost.ErrModuleUnusable)
			return
		}
		if err := fn(m, r.Context()); err != nil {
			s.logger.Error("Admin transition failed", "op", op, "module", m.Descriptor().ID(), "error", err)
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, m.Info())
	}
}

func (s *Server) unloadModule(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()

	m := s.lookup(r)
	if m == nil {
		writeError(w, http.StatusNotFound, modhost.ErrModuleNotFound)
		return
	}
	if err := m.Unload(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listNamespaces(w http.ResponseWriter, r *http.Request) {
	snapshot := s.provider.Namespaces().Snapshot()
	out := make([]NamespaceInfo, 0, len(snapshot))
	for _, ns := range snapshot {
		out = append(out, namespaceInfo(ns))
	}
	writeJSON(w, http.StatusOK, out)
}

func namespaceInfo(ns *namespace.Namespace) NamespaceInfo {
	info := NamespaceInfo{ID: ns.ID(), Exports: ns.Exports()}
	for _, src := range ns.Sources() {
		info.Sources = append(info.Sources, src.Location())
	}
	return info
}
