package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeAuth struct {
	authCodeURLFn func(state string) string
	exchangeFn    func(ctx context.Context, code string) error
}

func (f *fakeAuth) AuthCodeURL(state string) string {
	if f.authCodeURLFn == nil {
		return "https://accounts.example.com/auth?state=" + state
	}
	return f.authCodeURLFn(state)
}

func (f *fakeAuth) Exchange(ctx context.Context, code string) error {
	if f.exchangeFn == nil {
		return nil
	}
	return f.exchangeFn(ctx, code)
}

func newOAuthRouter(auth *fakeAuth) http.Handler {
	return NewRouter(RouterDeps{
		Reservations: &fakeService{},
		Auth:         auth,
		TimeZone:     time.UTC,
	})
}

func stateCookieFrom(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == oauthStateCookie {
			return c
		}
	}
	t.Fatal("state cookie not set")
	return nil
}

func TestOAuthBegin_RedirectsWithState(t *testing.T) {
	var urlState string
	auth := &fakeAuth{
		authCodeURLFn: func(state string) string {
			urlState = state
			return "https://accounts.example.com/auth?state=" + state
		},
	}

	w := httptest.NewRecorder()
	newOAuthRouter(auth).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/google/auth", nil))

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", w.Code)
	}
	cookie := stateCookieFrom(t, w)
	if cookie.Value == "" || cookie.Value != urlState {
		t.Fatalf("cookie state %q != url state %q", cookie.Value, urlState)
	}
	if !strings.Contains(w.Header().Get("Location"), urlState) {
		t.Fatalf("redirect location missing state: %s", w.Header().Get("Location"))
	}
}

func TestOAuthCallback_ExchangesCode(t *testing.T) {
	var gotCode string
	auth := &fakeAuth{
		exchangeFn: func(ctx context.Context, code string) error {
			gotCode = code
			return nil
		},
	}
	router := newOAuthRouter(auth)

	begin := httptest.NewRecorder()
	router.ServeHTTP(begin, httptest.NewRequest(http.MethodGet, "/google/auth", nil))
	state := stateCookieFrom(t, begin).Value

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=auth-code&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: state})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if gotCode != "auth-code" {
		t.Fatalf("code = %q", gotCode)
	}
}

func TestOAuthCallback_RejectsMismatchedState(t *testing.T) {
	auth := &fakeAuth{
		exchangeFn: func(ctx context.Context, code string) error {
			t.Fatal("exchange must not run")
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=x&state=attacker", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "legit"})
	w := httptest.NewRecorder()
	newOAuthRouter(auth).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestOAuthCallback_ExchangeFailure(t *testing.T) {
	auth := &fakeAuth{
		exchangeFn: func(ctx context.Context, code string) error {
			return errors.New("token endpoint down")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback?code=x&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "s1"})
	w := httptest.NewRecorder()
	newOAuthRouter(auth).ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}
