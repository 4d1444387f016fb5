package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"farmtrack/internal/core"
	"farmtrack/internal/services"
	"farmtrack/internal/store/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := memory.NewFromFiles(t.TempDir())
	srv := NewServer(":0", Deps{
		Expenses:    services.NewExpenseService(st, nil),
		Registry:    services.NewRegistryService(st, nil),
		Farm:        services.NewFarmService(st, nil),
		Reports:     services.NewReportService(st),
		DefaultUser: "default",
	})
	t.Cleanup(func() {
		srv.cacheManager.Stop()
		srv.rateLimiter.stop()
	})
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", "alice",
		`{"date":"2026-03-10","category":"seed-cat-1","itemName":"Diesel","otherCosts":"40"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var created core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" {
		t.Error("created expense has no id")
	}
	if created.CategoryName != "Ploughing" {
		t.Errorf("CategoryName = %q, want snapshot %q", created.CategoryName, "Ploughing")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/expenses/"+created.ID, "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/expenses/"+created.ID, "alice",
		`{"date":"2026-03-11","category":"seed-cat-2","itemName":"Diesel topup","otherCosts":"55"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rr.Code, rr.Body.String())
	}
	var updated core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode updated: %v", err)
	}
	if updated.CategoryName != "Planting" {
		t.Errorf("CategoryName after update = %q, want %q", updated.CategoryName, "Planting")
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/expenses/"+created.ID, "alice", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/expenses/"+created.ID, "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rr.Code)
	}
}

func TestListExpensesMonthFilter(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{
		`{"date":"2026-03-10","category":"seed-cat-1","itemName":"March fuel","otherCosts":"40"}`,
		`{"date":"2026-04-02","category":"seed-cat-1","itemName":"April fuel","otherCosts":"30"}`,
	} {
		if rr := doJSON(t, srv, http.MethodPost, "/api/expenses", "alice", body); rr.Code != http.StatusCreated {
			t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/expenses?month=2026-03", "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var got []core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(got) != 1 || got[0].ItemName != "March fuel" {
		t.Errorf("month filter returned %d expenses, want only the March one", len(got))
	}
}

func TestCreateExpenseRejectsBadInput(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", "alice", `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", rr.Code)
	}

	// Valid JSON but no cost component at all.
	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", "alice",
		`{"date":"2026-03-10","category":"seed-cat-1","itemName":"Nothing"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty expense status = %d, want 422, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", "alice",
		`{"category":"seed-cat-1","otherCosts":"10"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing date status = %d, want 422", rr.Code)
	}
}

func TestUserIsolationByHeader(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", "alice",
		`{"date":"2026-03-10","category":"seed-cat-1","otherCosts":"10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	var created core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/expenses/"+created.ID, "bob", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("other user's get status = %d, want 404", rr.Code)
	}

	// No header falls back to the default user, which also cannot see alice's
	// record.
	rr = doJSON(t, srv, http.MethodGet, "/api/expenses/"+created.ID, "", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("default user's get status = %d, want 404", rr.Code)
	}
}

func TestRegistryConflicts(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/subcategories", "alice", `{"name":"Fuel"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create subcategory status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodPost, "/api/subcategories", "alice", `{"name":"fuel"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate subcategory status = %d, want 409", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/subcategories/"+core.OthersSubcategoryID, "alice", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("reserved delete status = %d, want 409", rr.Code)
	}
}

func TestDashboardCacheInvalidation(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/dashboard", "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	var before services.DashboardSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if before.Total != 0 {
		t.Fatalf("empty dashboard Total = %v, want 0", before.Total)
	}
	if _, ok := srv.viewCache.Get(srv.viewKey("alice", "dashboard")); !ok {
		t.Error("dashboard view not cached after read")
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/expenses", "alice",
		`{"date":"2026-03-10","category":"seed-cat-1","otherCosts":"25"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}
	if _, ok := srv.viewCache.Get(srv.viewKey("alice", "dashboard")); ok {
		t.Error("dashboard view still cached after a write")
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/dashboard", "alice", "")
	var after services.DashboardSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if after.Total != 25 {
		t.Errorf("dashboard Total after write = %v, want 25", after.Total)
	}
}

func TestMilestoneAndFarmEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/milestones", "alice",
		`{"date":"2026-04-01","title":"First planting"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create milestone status = %d, body %s", rr.Code, rr.Body.String())
	}
	var m core.Milestone
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode milestone: %v", err)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/milestones", "alice", "")
	var list []core.Milestone
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "First planting" {
		t.Errorf("milestones = %+v, want the one created", list)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/milestones/"+m.ID, "alice", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("delete milestone status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/farm", "alice",
		`{"name":"Green Acres","location":"Nakuru","sizeAcres":12.5}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("put farm status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/farm", "alice", "")
	var info core.FarmInfo
	if err := json.Unmarshal(rr.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode farm: %v", err)
	}
	if info.Name != "Green Acres" || info.SizeAcres != 12.5 {
		t.Errorf("farm info = %+v", info)
	}
	if info.UpdatedAt == "" {
		t.Error("farm info UpdatedAt not stamped")
	}
}

func TestRateLimitOnWrites(t *testing.T) {
	srv := newTestServer(t)

	var last int
	for i := 0; i < 61; i++ {
		rr := doJSON(t, srv, http.MethodPost, "/api/milestones", "alice",
			`{"date":"2026-04-01","title":"m"}`)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st write status = %d, want 429", last)
	}

	// Reads stay unthrottled.
	rr := doJSON(t, srv, http.MethodGet, "/api/milestones", "alice", "")
	if rr.Code != http.StatusOK {
		t.Errorf("read after throttle status = %d, want 200", rr.Code)
	}
}

func TestExpenseBreakdownEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/expenses", "alice",
		`{"date":"2026-03-10","category":"seed-cat-1",
		  "labourEntries":[{"name":"Weeding crew","unitPrice":30,"quantity":4}],
		  "otherCosts":"20"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var created core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/expenses/"+created.ID+"/breakdown", "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("breakdown status = %d", rr.Code)
	}
	var b core.Breakdown
	if err := json.Unmarshal(rr.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode breakdown: %v", err)
	}
	if b.Total != 140 {
		t.Errorf("breakdown Total = %v, want 140", b.Total)
	}
	if b.Distribution["seed-sub-1"] != 120 {
		t.Errorf("labour share = %v, want 120 on the labour subcategory", b.Distribution["seed-sub-1"])
	}
}
