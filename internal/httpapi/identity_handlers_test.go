package httpapi

import (
	"net/http"
	"testing"
)

func TestResolveID(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/identity/id", `{"username":"mod"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["id"] != float64(2) {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestResolveIDUnknownHandle(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/identity/id", `{"username":"ghost"}`, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestResolveIDValidation(t *testing.T) {
	h := newHarness(t)

	if rec := h.do(t, http.MethodGet, "/v1/identity/id", "", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/v1/identity/id", `{"username":"  "}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank username status = %d", rec.Code)
	}
	if rec := h.do(t, http.MethodPost, "/v1/identity/id", `{broken`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d", rec.Code)
	}
}
