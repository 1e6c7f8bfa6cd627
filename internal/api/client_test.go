package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerTokenSent(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]int{"total": 2})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	c.SetToken("tok123")
	total, res := c.UnreadTotal(context.Background())
	if !res.Valid || !res.Authorized {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got != "Bearer tok123" {
		t.Errorf("authorization header = %q", got)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestUnauthorizedResult(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		c := NewClient(ts.URL)
		_, res := c.Me(context.Background())
		ts.Close()

		if res.Valid || res.Authorized {
			t.Errorf("status %d: expected unauthorized result, got %+v", code, res)
		}
	}
}

func TestFieldErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": map[string]string{"username": "already taken"},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	_, res := c.Signup(context.Background(), SignupRequest{Username: "alice"})
	if res.Valid {
		t.Fatal("validation failure should not be valid")
	}
	if !res.Authorized {
		t.Error("a 400 must not look like a dead token")
	}
	if res.FieldErrors["username"] != "already taken" {
		t.Errorf("field errors = %v", res.FieldErrors)
	}
}

func TestNetworkFailureIsTransient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close() // refuse connections

	c := NewClient(ts.URL)
	_, res := c.Me(context.Background())
	if res.Valid {
		t.Error("network failure should not be valid")
	}
	if !res.Authorized {
		t.Error("network failure must not force a logout")
	}
	if res.Message == "" {
		t.Error("transient failures should carry a message")
	}
}

func TestUnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	res := c.SendInvitation(context.Background(), "u2")
	if res.Valid || !res.Authorized {
		t.Errorf("conflict should be invalid but authorized: %+v", res)
	}
}
