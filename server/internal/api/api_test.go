package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stigkj/tlb/server/internal/api"
	"github.com/stigkj/tlb/server/internal/auth"
	"github.com/stigkj/tlb/server/internal/entry"
	"github.com/stigkj/tlb/server/internal/repo"
	"github.com/stigkj/tlb/server/internal/store/memory"
)

// --- test helpers -----------------------------------------------------------

func newRegistry(t *testing.T) (*repo.Registry, *memory.Store) {
	t.Helper()
	st := memory.New()
	return repo.NewRegistry(st, entry.Constructors()), st
}

func newHandler(reg *repo.Registry) http.Handler {
	return api.New(reg, api.Config{StoreDriver: "memory"})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth_EmptyRegistry(t *testing.T) {
	reg, _ := newRegistry(t)
	rr := do(t, newHandler(reg), http.MethodGet, "/api/v1/health", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)
	if resp.State != "ok" || resp.StoreDriver != "memory" || resp.CachedCount != 0 {
		t.Errorf("unexpected health: %+v", resp)
	}
	if _, err := time.Parse(time.RFC3339, resp.GeneratedAt); err != nil {
		t.Errorf("generated_at not RFC3339: %q", resp.GeneratedAt)
	}
}

func TestHealth_CountsDirtyAndNamespaces(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	r, _ := entry.SuiteResults(ctx, reg, "a", "v1")
	_ = r.Update(entry.SuiteResult{Name: "FooTest"})
	_, _ = entry.SubsetSizes(ctx, reg, "a", "v1")
	_, _ = entry.SubsetSizes(ctx, reg, "b", "v1")

	var resp api.HealthResponse
	decode(t, do(t, newHandler(reg), http.MethodGet, "/api/v1/health", ""), &resp)
	if resp.CachedCount != 3 {
		t.Errorf("cached_count: got %d, want 3", resp.CachedCount)
	}
	if resp.DirtyCount != 1 {
		t.Errorf("dirty_count: got %d, want 1", resp.DirtyCount)
	}
	if resp.NamespaceCount != 2 {
		t.Errorf("namespace_count: got %d, want 2", resp.NamespaceCount)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	reg, _ := newRegistry(t)
	rr := do(t, newHandler(reg), http.MethodPost, "/api/v1/health", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/repos ----------------------------------------------------------

func TestRepos_ListAndPurge(t *testing.T) {
	reg, st := newRegistry(t)
	ctx := context.Background()
	h := newHandler(reg)

	r, _ := entry.SuiteResults(ctx, reg, "proj", "v1")
	_ = r.Update(entry.SuiteResult{Name: "FooTest"})
	if _, err := reg.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}

	var list []api.RepoResponse
	decode(t, do(t, h, http.MethodGet, "/api/v1/repos", ""), &list)
	if len(list) != 1 || list[0].Identifier != "proj_v1_suite-result" || list[0].Namespace != "proj" {
		t.Fatalf("repos: got %+v", list)
	}

	rr := do(t, h, http.MethodDelete, "/api/v1/repos/proj_v1_suite-result", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("purge status: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if reg.Len() != 0 {
		t.Errorf("registry still holds %d repositories", reg.Len())
	}
	if len(st.Keys()) != 0 {
		t.Errorf("store still holds %v", st.Keys())
	}
}

func TestRepos_WrongMethods(t *testing.T) {
	reg, _ := newRegistry(t)
	h := newHandler(reg)
	if rr := do(t, h, http.MethodPost, "/api/v1/repos", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /repos: got %d, want 405", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/api/v1/repos/x", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /repos/x: got %d, want 405", rr.Code)
	}
}

// --- /api/v1/flush and /api/v1/prune ----------------------------------------

func TestFlush_WritesDirty(t *testing.T) {
	reg, st := newRegistry(t)
	ctx := context.Background()
	r, _ := entry.SubsetSizes(ctx, reg, "proj", "v1")
	_ = r.Add(4)

	rr := do(t, newHandler(reg), http.MethodPost, "/api/v1/flush", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	var resp api.FlushResponse
	decode(t, rr, &resp)
	if resp.Written != 1 || resp.Failed != 0 {
		t.Errorf("flush: got %+v", resp)
	}
	if b, err := st.Read(ctx, "proj_v1_subset-size"); err != nil || !strings.Contains(string(b), "4") {
		t.Errorf("store content: %q, %v", b, err)
	}
	if rr := do(t, newHandler(reg), http.MethodGet, "/api/v1/flush", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /flush: got %d, want 405", rr.Code)
	}
}

func TestPrune_DaysParameter(t *testing.T) {
	reg, _ := newRegistry(t)
	h := api.New(reg, api.Config{VersionLifeDays: func() int { return 9 }})

	var resp api.PruneResponse
	decode(t, do(t, h, http.MethodPost, "/api/v1/prune", ""), &resp)
	if resp.MaxAgeDays != 9 {
		t.Errorf("default days: got %d, want 9", resp.MaxAgeDays)
	}
	decode(t, do(t, h, http.MethodPost, "/api/v1/prune?days=2", ""), &resp)
	if resp.MaxAgeDays != 2 {
		t.Errorf("days: got %d, want 2", resp.MaxAgeDays)
	}
	for _, bad := range []string{"x", "-1", "200000", "9223372036854775807"} {
		if rr := do(t, h, http.MethodPost, "/api/v1/prune?days="+bad, ""); rr.Code != http.StatusBadRequest {
			t.Errorf("days=%s: got %d, want 400", bad, rr.Code)
		}
	}
}

// --- /api/v1/data -----------------------------------------------------------

func TestData_RecordAndRead(t *testing.T) {
	reg, _ := newRegistry(t)
	h := newHandler(reg)

	rr := do(t, h, http.MethodPost, "/api/v1/data/suite-time/proj/LATEST", `[{"name":"a.Test","time":30},{"name":"b.Test","time":5}]`)
	if rr.Code != http.StatusOK {
		t.Fatalf("record: got %d (%s)", rr.Code, rr.Body.String())
	}
	var rec api.RecordResponse
	decode(t, rr, &rec)
	if rec.Recorded != 2 || rec.Identifier != "proj_LATEST_suite-time" {
		t.Errorf("record response: %+v", rec)
	}

	var times []entry.SuiteTime
	decode(t, do(t, h, http.MethodGet, "/api/v1/data/suite-time/proj/build-1", ""), &times)
	if len(times) != 2 || times[0].Name != "a.Test" || times[0].Time != 30 {
		t.Errorf("frozen version: got %+v", times)
	}
}

func TestData_ErrorStatuses(t *testing.T) {
	reg, _ := newRegistry(t)
	h := newHandler(reg)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/v1/data/bogus/proj/v1", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/data/suite-result/proj/v1", `{"not":"an array"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/data/subset-size/proj/v1", `[-3]`, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/data/suite-time/proj/v1", `[]`, http.StatusConflict},
		{http.MethodPut, "/api/v1/data/suite-result/proj/v1", `[]`, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		rr := do(t, h, tc.method, tc.path, tc.body)
		if rr.Code != tc.want {
			t.Errorf("%s %s: got %d, want %d (%s)", tc.method, tc.path, rr.Code, tc.want, rr.Body.String())
		}
	}
}

type brokenStore struct{ *memory.Store }

func (brokenStore) Read(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestData_LoadFailureIs500(t *testing.T) {
	reg := repo.NewRegistry(brokenStore{memory.New()}, entry.Constructors())
	rr := do(t, newHandler(reg), http.MethodGet, "/api/v1/data/suite-result/proj/v1", "")
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want 500", rr.Code)
	}
}

// --- auth on mutating routes ------------------------------------------------

func TestProtect_GuardsMutatingRoutesOnly(t *testing.T) {
	reg, _ := newRegistry(t)
	h := api.New(reg, api.Config{Protect: auth.APIKeyMiddleware("apikey", "x-api-key", "secret")})

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/flush"},
		{http.MethodPost, "/api/v1/prune"},
		{http.MethodDelete, "/api/v1/repos/proj_v1_suite-result"},
		{http.MethodPost, "/api/v1/data/subset-size/proj/v1"},
	} {
		if rr := do(t, h, tc.method, tc.path, "[]"); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without key: got %d, want 401", tc.method, tc.path, rr.Code)
		}
	}

	for _, path := range []string{"/api/v1/health", "/api/v1/repos", "/api/v1/data/subset-size/proj/v1"} {
		if rr := do(t, h, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Errorf("GET %s: got %d, want 200", path, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/flush", nil)
	req.Header.Set("X-Api-Key", "secret")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("flush with key: got %d, want 200", rr.Code)
	}
}
