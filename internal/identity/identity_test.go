package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestResolveReturnsExistingToken(t *testing.T) {
	clientID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: clientID})

	got, isNew := Resolve(req)
	if isNew {
		t.Fatal("valid token must not be treated as new")
	}
	if got != clientID {
		t.Fatalf("expected %s got %s", clientID, got)
	}
}

func TestResolveIssuesTokenWhenAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/health", nil)

	got, isNew := Resolve(req)
	if !isNew {
		t.Fatal("missing cookie must produce a new identity")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("generated token is not a UUID: %v", err)
	}
}

func TestResolveIssuesTokenWhenMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "zzz-not-a-uuid"})

	got, isNew := Resolve(req)
	if !isNew {
		t.Fatal("malformed cookie must degrade to a new identity")
	}
	if got == "zzz-not-a-uuid" {
		t.Fatal("malformed value must never be echoed back")
	}
}

func TestResolveNeverReturnsSameTokenTwiceForNewClients(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/health", nil)

	first, _ := Resolve(req)
	second, _ := Resolve(req)
	if first == second {
		t.Fatal("fresh identities must be unique")
	}
}

func TestSetCookieAttributes(t *testing.T) {
	rr := httptest.NewRecorder()
	clientID := uuid.NewString()

	SetCookie(rr, clientID, true)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie got %d", len(cookies))
	}

	c := cookies[0]
	if c.Name != CookieName || c.Value != clientID {
		t.Fatalf("unexpected cookie %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly {
		t.Fatal("cookie must be HttpOnly")
	}
	if !c.Secure {
		t.Fatal("cookie must be Secure when requested")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatal("cookie must be SameSite=Lax")
	}
	if c.MaxAge != 365*24*60*60 {
		t.Fatalf("expected one-year max-age got %d", c.MaxAge)
	}
}
