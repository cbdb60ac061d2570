package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mapleroute/portal/internal/auth/authenticator"
	"github.com/mapleroute/portal/internal/auth/domain"
	"github.com/mapleroute/portal/internal/auth/handlers"
	"github.com/mapleroute/portal/internal/auth/store"
)

func newTestServer(t *testing.T, devDisclose bool) *httptest.Server {
	t.Helper()
	auth := authenticator.New(context.Background(), authenticator.Config{
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}, nil, store.NewMemoryKV(),
		authenticator.WithCodeGenerator(func() string { return "123456" }),
	)
	t.Cleanup(auth.Close)

	srv := httptest.NewServer(handlers.New(auth, devDisclose).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeResult(t *testing.T, resp *http.Response) domain.Result {
	t.Helper()
	defer resp.Body.Close()
	var res domain.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRequestCodeDisclosesDevCode(t *testing.T) {
	srv := newTestServer(t, true)

	resp := postJSON(t, srv.URL+"/code", map[string]string{"email": "a@b.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decodeResult(t, resp)
	if !res.Success || res.DevCode != "123456" {
		t.Fatalf("result = %+v", res)
	}
}

func TestRequestCodeHidesDevCodeOutsideDevMode(t *testing.T) {
	srv := newTestServer(t, false)

	resp := postJSON(t, srv.URL+"/code", map[string]string{"email": "a@b.com"})
	res := decodeResult(t, resp)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}
	if res.DevCode != "" {
		t.Fatal("dev code must not leak outside dev mode")
	}
}

func TestRequestCodeRejectsEmptyEmail(t *testing.T) {
	srv := newTestServer(t, true)

	resp := postJSON(t, srv.URL+"/code", map[string]string{"email": "  "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decodeResult(t, resp)
	if res.Reason != domain.ReasonValidation {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestVerifyFlow(t *testing.T) {
	srv := newTestServer(t, true)

	postJSON(t, srv.URL+"/code", map[string]string{"email": "a@b.com", "display_name": "Ada"}).Body.Close()

	resp := postJSON(t, srv.URL+"/verify", map[string]string{"email": "a@b.com", "code": "123456"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decodeResult(t, resp)
	if !res.Success {
		t.Fatalf("result = %+v", res)
	}

	// Session endpoint reports the signed-in user.
	sessResp, err := http.Get(srv.URL + "/session")
	if err != nil {
		t.Fatal(err)
	}
	defer sessResp.Body.Close()
	var sess struct {
		Authenticated bool                `json:"authenticated"`
		User          *domain.SessionUser `json:"user"`
		Mode          string              `json:"mode"`
	}
	if err := json.NewDecoder(sessResp.Body).Decode(&sess); err != nil {
		t.Fatal(err)
	}
	if !sess.Authenticated || sess.User == nil || sess.User.Email != "a@b.com" {
		t.Fatalf("session = %+v", sess)
	}
	if sess.Mode != "local" {
		t.Fatalf("mode = %q", sess.Mode)
	}
}

func TestVerifyWrongCodeUnauthorized(t *testing.T) {
	srv := newTestServer(t, true)

	postJSON(t, srv.URL+"/code", map[string]string{"email": "a@b.com"}).Body.Close()

	resp := postJSON(t, srv.URL+"/verify", map[string]string{"email": "a@b.com", "code": "000000"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	res := decodeResult(t, resp)
	if res.Reason != domain.ReasonInvalidCode {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestSignOut(t *testing.T) {
	srv := newTestServer(t, true)

	postJSON(t, srv.URL+"/code", map[string]string{"email": "a@b.com"}).Body.Close()
	postJSON(t, srv.URL+"/verify", map[string]string{"email": "a@b.com", "code": "123456"}).Body.Close()

	resp := postJSON(t, srv.URL+"/signout", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	sessResp, err := http.Get(srv.URL + "/session")
	if err != nil {
		t.Fatal(err)
	}
	defer sessResp.Body.Close()
	var sess struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(sessResp.Body).Decode(&sess); err != nil {
		t.Fatal(err)
	}
	if sess.Authenticated {
		t.Fatal("expected unauthenticated after sign-out")
	}
}

func TestInvalidJSON(t *testing.T) {
	srv := newTestServer(t, true)

	resp, err := http.Post(srv.URL+"/code", "application/json", bytes.NewReader([]byte("{{{")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
