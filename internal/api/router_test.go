package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/credential-service/internal/core/service"
	"github.com/99minutos/credential-service/internal/infrastructure/db/memory"
	"github.com/99minutos/credential-service/internal/infrastructure/security/password"
	"github.com/99minutos/credential-service/internal/infrastructure/security/token"
)

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()

	hasher, err := password.NewHasher(password.Config{MemoryKB: 8 * 1024, Iterations: 1, Parallelism: 1})
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	codec, err := token.NewCodec(token.Config{Secret: []byte("test-secret")})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	users := memory.NewUserRepository()
	auth := service.NewAuthService(users, hasher, codec, 30*time.Minute)

	return NewRouter(Dependencies{
		AuthService: auth,
		Guard:       service.NewAccessGuard(codec, zerolog.Nop()),
		Log:         zerolog.Nop(),
	})
}

func do(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectDetail(t *testing.T, rec *httptest.ResponseRecorder, code int, detail string) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("expected %d, got %d (%s)", code, rec.Code, rec.Body.String())
	}
	if got := decode(t, rec)["detail"]; got != detail {
		t.Fatalf("expected detail %q, got %v", detail, got)
	}
}

func TestRouter_RegisterLoginMe(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"username":"u","email":"u@x.com","password":"pw123"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["username"] != "u" || body["email"] != "u@x.com" {
		t.Fatalf("register: unexpected body %+v", body)
	}

	rec = do(e, http.MethodPost, "/api/auth/login", `{"username":"u","password":"pw123"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	login := decode(t, rec)
	tok, _ := login["access_token"].(string)
	if tok == "" || login["token_type"] != "bearer" {
		t.Fatalf("login: unexpected body %+v", login)
	}

	rec = do(e, http.MethodGet, "/api/users/me", "", map[string]string{"Authorization": "Bearer " + tok})
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["username"] != "u" || body["email"] != "u@x.com" {
		t.Fatalf("me: unexpected body %+v", body)
	}
}

func TestRouter_Me_Unauthenticated(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodGet, "/api/users/me", "", nil)
	expectDetail(t, rec, http.StatusUnauthorized, "Not authenticated")
	if rec.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
		t.Fatalf("missing WWW-Authenticate header")
	}

	rec = do(e, http.MethodGet, "/api/users/me", "", map[string]string{"Authorization": "Bearer garbage"})
	expectDetail(t, rec, http.StatusUnauthorized, "Could not validate credentials")
	if rec.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
		t.Fatalf("missing WWW-Authenticate header")
	}
}

func TestRouter_Register_Duplicates(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"a@x.com","password":"pw"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"b@x.com","password":"pw2"}`, nil)
	expectDetail(t, rec, http.StatusBadRequest, "Username already registered")

	rec = do(e, http.MethodPost, "/api/auth/register", `{"username":"bob","email":"a@x.com","password":"pw"}`, nil)
	expectDetail(t, rec, http.StatusBadRequest, "Email already registered")
}

func TestRouter_Login_FailuresAreIndistinguishable(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"a@x.com","password":"right"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	unknown := do(e, http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"right"}`, nil)
	wrong := do(e, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"wrong"}`, nil)

	expectDetail(t, unknown, http.StatusUnauthorized, "Incorrect username or password")
	if unknown.Code != wrong.Code || unknown.Body.String() != wrong.Body.String() {
		t.Fatalf("responses differ: %d %s vs %d %s", unknown.Code, unknown.Body.String(), wrong.Code, wrong.Body.String())
	}
	if wrong.Header().Get(echo.HeaderWWWAuthenticate) != "Bearer" {
		t.Fatalf("missing WWW-Authenticate header")
	}
}

func TestRouter_ValidationAndPayloadErrors(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"username":"u","email":"nope","password":"pw"}`, nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	rec = do(e, http.MethodPost, "/api/auth/login", `{"username":`, nil)
	expectDetail(t, rec, http.StatusBadRequest, "invalid payload")
}

func TestRouter_Register_MultiBytePasswordOverLimit(t *testing.T) {
	e := newTestRouter(t)

	body := `{"username":"u","email":"u@x.com","password":"` + strings.Repeat("é", 3000) + `"}`
	rec := do(e, http.MethodPost, "/api/auth/register", body, nil)
	expectDetail(t, rec, http.StatusUnprocessableEntity, "password must be at most 4096 bytes")

	rec = do(e, http.MethodPost, "/api/auth/login", `{"username":"u","password":"x"}`, nil)
	expectDetail(t, rec, http.StatusUnauthorized, "Incorrect username or password")
}

func TestRouter_Login_EmptyPasswordIsGenericFailure(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodPost, "/api/auth/register", `{"username":"alice","email":"a@x.com","password":"right"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	empty := do(e, http.MethodPost, "/api/auth/login", `{"username":"alice","password":""}`, nil)
	missing := do(e, http.MethodPost, "/api/auth/login", `{"username":"alice"}`, nil)
	wrong := do(e, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"wrong"}`, nil)

	expectDetail(t, empty, http.StatusUnauthorized, "Incorrect username or password")
	for _, rec := range []*httptest.ResponseRecorder{missing, wrong} {
		if rec.Code != empty.Code || rec.Body.String() != empty.Body.String() {
			t.Fatalf("responses differ: %d %s vs %d %s", rec.Code, rec.Body.String(), empty.Code, empty.Body.String())
		}
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e := newTestRouter(t)

	if rec := do(e, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health/ready", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}

	_ = do(e, http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"x"}`, nil)

	rec := do(e, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	for _, name := range []string{"credential_logins_total", "credential_http_requests_total"} {
		if !strings.Contains(rec.Body.String(), name) {
			t.Fatalf("metrics: %s not exposed", name)
		}
	}

	if rec := do(e, http.MethodGet, "/swagger/doc.json", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("swagger: expected 200, got %d", rec.Code)
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	e := newTestRouter(t)

	rec := do(e, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if _, ok := decode(t, rec)["detail"]; !ok {
		t.Fatalf("expected detail envelope, got %s", rec.Body.String())
	}
}
