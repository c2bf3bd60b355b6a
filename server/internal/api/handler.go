package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/stigkj/tlb/server/internal/entry"
	"github.com/stigkj/tlb/server/internal/repo"
)

// maxBodyBytes caps POST bodies on the data route.
const maxBodyBytes = 4 << 20

// Config carries the non-registry dependencies of the handler.
type Config struct {
	// StoreDriver is reported by the health endpoint.
	StoreDriver string
	// VersionLifeDays supplies the default for POST /api/v1/prune without ?days.
	VersionLifeDays func() int
	// Protect wraps mutating routes. nil leaves them open.
	Protect func(http.Handler) http.Handler
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	reg *repo.Registry
	cfg Config
	mux *http.ServeMux

	record http.Handler
	purge  http.Handler
}

// New creates a Handler wired to reg and registers all routes.
func New(reg *repo.Registry, cfg Config) http.Handler {
	if cfg.Protect == nil {
		cfg.Protect = func(h http.Handler) http.Handler { return h }
	}
	if cfg.VersionLifeDays == nil {
		cfg.VersionLifeDays = func() int { return repo.DefaultVersionLifeDays }
	}
	h := &Handler{reg: reg, cfg: cfg, mux: http.NewServeMux()}
	h.record = cfg.Protect(http.HandlerFunc(h.recordData))
	h.purge = cfg.Protect(http.HandlerFunc(h.purgeRepo))

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/repos", h.listRepos)
	h.mux.HandleFunc("/api/v1/repos/{id}", h.repoByID)
	h.mux.Handle("/api/v1/flush", cfg.Protect(http.HandlerFunc(h.flush)))
	h.mux.Handle("/api/v1/prune", cfg.Protect(http.HandlerFunc(h.prune)))
	h.mux.HandleFunc("/api/v1/data/{kind}/{namespace}/{version}", h.data)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildStatus(h.reg, h.cfg.StoreDriver))
}

// listRepos returns GET /api/v1/repos.
func (h *Handler) listRepos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	entries := h.reg.Entries()
	out := make([]RepoResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RepoResponse(e))
	}
	jsonResp(w, http.StatusOK, out)
}

// repoByID dispatches /api/v1/repos/{id}. Only DELETE is supported.
func (h *Handler) repoByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.purge.ServeHTTP(w, r)
}

// purgeRepo handles DELETE /api/v1/repos/{id}.
func (h *Handler) purgeRepo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		jsonErr(w, http.StatusBadRequest, "missing identifier")
		return
	}
	if err := h.reg.Purge(r.Context(), id); err != nil {
		jsonErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, PurgeResponse{Purged: id})
}

// flush handles POST /api/v1/flush.
func (h *Handler) flush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, err := h.reg.FlushAll(r.Context())
	resp := FlushResponse{Scanned: stats.Scanned, Written: stats.Written, Failed: stats.Failed}
	if err != nil {
		resp.Error = err.Error()
		jsonResp(w, http.StatusInternalServerError, resp)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// prune handles POST /api/v1/prune?days=N.
func (h *Handler) prune(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	days := h.cfg.VersionLifeDays()
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > repo.MaxVersionLifeDays {
			jsonErr(w, http.StatusBadRequest,
				fmt.Sprintf("days must be an integer in [0, %d]", repo.MaxVersionLifeDays))
			return
		}
		days = n
	}
	resp := PruneResponse{MaxAgeDays: days}
	if err := h.reg.PurgeOlderThan(r.Context(), days); err != nil {
		resp.Error = err.Error()
		jsonResp(w, http.StatusInternalServerError, resp)
		return
	}
	jsonResp(w, http.StatusOK, resp)
}

// data dispatches /api/v1/data/{kind}/{namespace}/{version}.
func (h *Handler) data(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.readData(w, r)
	case http.MethodPost:
		h.record.ServeHTTP(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) readData(w http.ResponseWriter, r *http.Request) {
	kind, ns, version := pathTriple(r)
	out, err := entry.Read(r.Context(), h.reg, kind, ns, version)
	if err != nil {
		h.dataErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, out)
}

func (h *Handler) recordData(w http.ResponseWriter, r *http.Request) {
	kind, ns, version := pathTriple(r)
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		jsonErr(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	n, err := entry.Record(r.Context(), h.reg, kind, ns, version, body)
	if err != nil {
		h.dataErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, RecordResponse{Identifier: repo.Identifier(ns, version, kind), Recorded: n})
}

// dataErr maps registry and entry errors to HTTP statuses.
func (h *Handler) dataErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrUnknownKind):
		jsonErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, entry.ErrInvalidEntry):
		jsonErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entry.ErrFrozenVersion):
		jsonErr(w, http.StatusConflict, err.Error())
	default:
		slog.Error("api: data request failed", "err", err)
		jsonErr(w, http.StatusInternalServerError, err.Error())
	}
}

// --- helpers ----------------------------------------------------------------

// BuildStatus summarises the registry for the health endpoint and the
// websocket stream.
func BuildStatus(reg *repo.Registry, driver string) HealthResponse {
	entries := reg.Entries()
	resp := HealthResponse{
		State:       "ok",
		StoreDriver: driver,
		CachedCount: len(entries),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	namespaces := make(map[string]struct{})
	for _, e := range entries {
		namespaces[e.Namespace] = struct{}{}
		if e.Dirty {
			resp.DirtyCount++
		}
	}
	resp.NamespaceCount = len(namespaces)
	return resp
}

func pathTriple(r *http.Request) (repo.Kind, string, string) {
	return repo.Kind(r.PathValue("kind")), r.PathValue("namespace"), r.PathValue("version")
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
