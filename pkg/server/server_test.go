package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postCompile(t *testing.T, body string) (*httptest.ResponseRecorder, compileResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/compiler", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	New().ServeHTTP(rec, req)

	var resp compileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestCompileEndpointSuccess(t *testing.T) {
	rec, resp := postCompile(t, `{"code": "int x; x = 1; output(x);"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if !resp.Success {
		t.Fatalf("expected success, got output:\n%s", resp.Output)
	}
	// The output is the captured driver text, not the artifact files.
	for _, want := range []string{"compiling...", "generating ARMv8 assembly...", "done."} {
		if !strings.Contains(resp.Output, want) {
			t.Errorf("driver output missing %q:\n%s", want, resp.Output)
		}
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != allowedOrigin {
		t.Errorf("CORS origin: got %q, want %q", got, allowedOrigin)
	}
}

func TestCompileEndpointSourceErrors(t *testing.T) {
	rec, resp := postCompile(t, `{"code": "output(y);"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	// Diagnostics ride inside the output; the flag stays true because the
	// run itself completed. Only structural failures flip it.
	if !resp.Success {
		t.Fatalf("diagnostics must not fail the request: %+v", resp)
	}
	if !strings.Contains(resp.Output, "undeclared identifier 'y'") {
		t.Errorf("output missing diagnostic:\n%s", resp.Output)
	}
	if !strings.Contains(resp.Output, "compilation failed with 1 error(s)") {
		t.Errorf("output missing failure line:\n%s", resp.Output)
	}
}

func TestCompileEndpointBadRequest(t *testing.T) {
	rec, resp := postCompile(t, "not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want 400", rec.Code)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("expected an error response, got %+v", resp)
	}
}

func TestCompileEndpointMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/compiler", nil)
	rec := httptest.NewRecorder()
	New().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/compiler", nil)
	rec := httptest.NewRecorder()
	New().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("preflight methods: %q", got)
	}
}
