package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/patchops/suggestd/internal/apply"
	"github.com/patchops/suggestd/internal/remote"
	"github.com/patchops/suggestd/internal/suggestion"
)

const testPatch = "@@ -1,2 +1,2 @@\n-print(x)\n+logging.info(x)\n done"

func newTestServer(t *testing.T) (*httptest.Server, *suggestion.Store, *remote.FakeClient) {
	t.Helper()

	store := suggestion.NewStore()
	fake := remote.NewFakeClient()
	fake.GetFileFunc = func(ctx context.Context, path, ref string) (*remote.FileRef, error) {
		return &remote.FileRef{Path: path, Content: "print(x)\ndone\n", Revision: "rev-1"}, nil
	}
	fake.GetBranchFunc = func(ctx context.Context, name string) (*remote.BranchRef, error) {
		if name == "main" {
			return &remote.BranchRef{Name: name, Head: "main-sha"}, nil
		}
		return nil, &remote.Error{Kind: remote.KindNotFound, Op: "get branch"}
	}

	orch := apply.New(store, fake, "main")

	r := mux.NewRouter()
	NewHandler(store, orch).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store, fake
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestCreateAndGetSuggestion(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/suggestions",
		`{"agent":"linting","message":"use logging","patch":"`+strings.ReplaceAll(testPatch, "\n", `\n`)+`","file_path":"app.py"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decode[suggestionResponse](t, resp)
	if created.ID == "" || created.Status != "pending" {
		t.Fatalf("created = %+v, want pending with id", created)
	}

	resp, err := http.Get(srv.URL + "/suggestions/" + created.ID)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	got := decode[suggestionResponse](t, resp)
	if got.FilePath != "app.py" || got.Agent != "linting" {
		t.Fatalf("got = %+v", got)
	}
}

func TestCreateSuggestion_Validation(t *testing.T) {
	srv, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "nope"},
		{name: "missing patch", body: `{"file_path":"app.py"}`},
		{name: "missing file path", body: `{"patch":"@@ -1 +1 @@\n-a\n+b"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/suggestions", tt.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestListSuggestions(t *testing.T) {
	srv, store, _ := newTestServer(t)
	store.Create(&suggestion.Suggestion{Patch: testPatch, FilePath: "a.py"})
	store.Create(&suggestion.Suggestion{Patch: testPatch, FilePath: "b.py"})

	resp, err := http.Get(srv.URL + "/suggestions")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	list := decode[[]suggestionResponse](t, resp)
	if len(list) != 2 {
		t.Fatalf("list length = %d, want 2", len(list))
	}
}

func TestApplySuggestionEndpoint(t *testing.T) {
	srv, store, fake := newTestServer(t)
	id := store.Create(&suggestion.Suggestion{Patch: testPatch, FilePath: "app.py", Message: "use logging"})

	resp := postJSON(t, srv.URL+"/suggestions/"+id+"/apply", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d, want 200", resp.StatusCode)
	}
	result := decode[apply.Result](t, resp)
	if result.Status != suggestion.StatusApplied {
		t.Fatalf("result = %+v, want applied", result)
	}
	if result.PRNumber == 0 || result.PRURL == "" {
		t.Fatalf("result PR = #%d %q, want populated", result.PRNumber, result.PRURL)
	}
	if len(fake.CreatePRCalls) != 1 {
		t.Fatalf("CreatePR called %d times, want 1", len(fake.CreatePRCalls))
	}

	// A second apply attempt hits the status guard.
	resp = postJSON(t, srv.URL+"/suggestions/"+id+"/apply", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("re-apply status = %d, want 409", resp.StatusCode)
	}
}

func TestApplySuggestionEndpoint_FailedApplyStillReturns200(t *testing.T) {
	srv, store, fake := newTestServer(t)
	fake.GetBranchFunc = func(ctx context.Context, name string) (*remote.BranchRef, error) {
		return nil, &remote.Error{Kind: remote.KindNotFound, Op: "get branch"}
	}
	id := store.Create(&suggestion.Suggestion{Patch: testPatch, FilePath: "app.py"})

	resp := postJSON(t, srv.URL+"/suggestions/"+id+"/apply", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply status = %d, want 200 with failed result", resp.StatusCode)
	}
	result := decode[apply.Result](t, resp)
	if result.Status != suggestion.StatusFailed || result.Kind != apply.FailBranch {
		t.Fatalf("result = %+v, want failed branch_error", result)
	}
}

func TestApplySuggestionEndpoint_UnknownID(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/suggestions/nope/apply", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRejectSuggestionEndpoint(t *testing.T) {
	srv, store, fake := newTestServer(t)
	id := store.Create(&suggestion.Suggestion{Patch: testPatch, FilePath: "app.py"})

	resp := postJSON(t, srv.URL+"/suggestions/"+id+"/reject", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["status"] != "rejected" {
		t.Fatalf("body = %v, want rejected", body)
	}
	if fake.TotalCalls() != 0 {
		t.Fatalf("reject issued %d remote calls, want 0", fake.TotalCalls())
	}

	stored, _ := store.Get(id)
	if stored.Status != suggestion.StatusRejected {
		t.Fatalf("stored status = %s, want rejected", stored.Status)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}
}
