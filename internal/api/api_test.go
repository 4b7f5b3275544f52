package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/komponente/internal/assets"
	"github.com/erazemk/komponente/internal/auth"
	"github.com/erazemk/komponente/internal/db"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/notify"
	"github.com/erazemk/komponente/internal/service"
	"github.com/erazemk/komponente/internal/session"
	"github.com/erazemk/komponente/internal/store"
)

const testJWTSecret = "test-secret"

// outbox records contact messages instead of sending them.
type outbox struct {
	sent []notify.Message
	err  error
}

func (o *outbox) Send(_ context.Context, m notify.Message) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, m)
	return nil
}

type testServer struct {
	*httptest.Server
	outbox *outbox
}

func newTestServer(t *testing.T, loginRate string) *testServer {
	t.Helper()
	database := db.NewTestDB(t)

	local, err := assets.NewLocalStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("creating asset store: %v", err)
	}

	guard := &service.Guard{DB: database, Sessions: session.NewMemoryStore(), Secret: testJWTSecret, TTL: time.Hour}
	inventory := &service.Inventory{DB: database, Assets: local}
	ledger := &service.Ledger{DB: database}
	box := &outbox{}

	svc := Services{
		Guard:     guard,
		Inventory: inventory,
		Ledger:    ledger,
		Taxonomy:  &service.Taxonomy{DB: database},
		Users:     &service.Users{DB: database, Guard: guard},
		Reports:   &service.Reports{Inventory: inventory, Ledger: ledger},
		Contact:   &service.Contact{Sender: box, To: "docente@example.com"},
		Uploads:   local.Handler(),
	}
	if loginRate != "" {
		svc.LoginLimit, err = RateLimit(loginRate)
		if err != nil {
			t.Fatalf("rate limit: %v", err)
		}
	}

	ctx := context.Background()
	for _, u := range []struct{ name, username, role string }{
		{"Docente", "admin", model.RoleAdmin},
		{"Ana", "ana", model.RoleUser},
	} {
		hash, _ := auth.HashPassword("password")
		if _, err := store.CreateUser(ctx, database, u.name, u.username, hash, u.role); err != nil {
			t.Fatalf("creating %s: %v", u.username, err)
		}
	}

	server := httptest.NewServer(NewRouter(svc))
	t.Cleanup(server.Close)
	return &testServer{Server: server, outbox: box}
}

// setupTestServer starts a server and logs in as the admin.
func setupTestServer(t *testing.T) (*testServer, string) {
	t.Helper()
	server := newTestServer(t, "")
	return server, login(t, server, "admin")
}

func login(t *testing.T, server *testServer, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "password"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp struct {
		Token string        `json:"token"`
		User  model.Session `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	if loginResp.User.Username != username {
		t.Errorf("expected user %s, got %s", username, loginResp.User.Username)
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends an authenticated request, checks the status and decodes the
// response into out when out is non-nil.
func do(t *testing.T, method, url, token string, body any, want int, out any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, want, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	server := newTestServer(t, "")

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{"username": "admin", "password": "password"})
	resp, err = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie, got %+v", cookie)
	}

	// The cookie alone authenticates.
	req, _ := http.NewRequest("GET", server.URL+"/api/auth/me", nil)
	req.AddCookie(cookie)
	me, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me request: %v", err)
	}
	defer me.Body.Close()
	var s model.Session
	json.NewDecoder(me.Body).Decode(&s)
	if me.StatusCode != http.StatusOK || s.DisplayName != "Docente" {
		t.Errorf("expected 200 for Docente, got %d %+v", me.StatusCode, s)
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server := newTestServer(t, "")

	resp, err := http.Get(server.URL + "/api/components")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	req, _ := http.NewRequest("GET", server.URL+"/api/components", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Errorf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	req, _ = authRequest("GET", server.URL+"/api/components", "not-a-token", nil)
	resp, _ = http.DefaultClient.Do(req)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad token, got %d", resp.StatusCode)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, token := setupTestServer(t)

	do(t, "POST", server.URL+"/api/auth/logout", token, nil, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/auth/me", token, nil, http.StatusUnauthorized, nil)
}

func TestUserRoleForbiddenOnAdminRoutes(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server, "ana")

	do(t, "GET", server.URL+"/api/components", token, nil, http.StatusOK, nil)
	do(t, "POST", server.URL+"/api/components", token, map[string]any{"name": "LED", "quantity": 1}, http.StatusForbidden, nil)
	do(t, "POST", server.URL+"/api/movements", token, map[string]any{"component_id": 1, "kind": "exit", "quantity": 1}, http.StatusForbidden, nil)
	do(t, "GET", server.URL+"/api/users", token, nil, http.StatusForbidden, nil)
	do(t, "GET", server.URL+"/api/reports/components.xlsx", token, nil, http.StatusForbidden, nil)
}

func TestComponentsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	var cat model.Term
	do(t, "POST", server.URL+"/api/categories", token, map[string]string{"name": "Placas"}, http.StatusCreated, &cat)

	var c model.Component
	do(t, "POST", server.URL+"/api/components", token, map[string]any{
		"name": "Arduino", "quantity": 10, "category_id": cat.ID,
	}, http.StatusCreated, &c)
	if c.CategoryName == nil || *c.CategoryName != "Placas" {
		t.Errorf("expected category Placas, got %v", c.CategoryName)
	}

	var list []model.Component
	do(t, "GET", server.URL+"/api/components?name=ardu", token, nil, http.StatusOK, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 component, got %d", len(list))
	}

	do(t, "PUT", server.URL+"/api/components/"+itoa(c.ID), token, map[string]any{
		"name": "Arduino Uno", "quantity": 12,
	}, http.StatusOK, &c)
	if c.Name != "Arduino Uno" || c.Quantity != 12 {
		t.Errorf("unexpected update result: %+v", c)
	}

	do(t, "POST", server.URL+"/api/components", token, map[string]any{"name": "LED", "quantity": 2.5}, http.StatusBadRequest, nil)
	do(t, "GET", server.URL+"/api/components?category=abc", token, nil, http.StatusBadRequest, nil)

	do(t, "DELETE", server.URL+"/api/components/"+itoa(c.ID), token, nil, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/components/"+itoa(c.ID), token, nil, http.StatusNotFound, nil)
}

func TestComponentMultipartUpload(t *testing.T) {
	server, token := setupTestServer(t)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var pic bytes.Buffer
	png.Encode(&pic, img)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("name", "Servo")
	mw.WriteField("quantity", "3")
	part, _ := mw.CreateFormFile("image", "servo.png")
	part.Write(pic.Bytes())
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/components", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, msg)
	}

	var c model.Component
	json.NewDecoder(resp.Body).Decode(&c)
	if c.ImageURL == nil || !strings.HasPrefix(*c.ImageURL, assets.UploadMarker) {
		t.Fatalf("expected a local upload url, got %v", c.ImageURL)
	}

	req, _ = authRequest("GET", server.URL+*c.ImageURL, token, nil)
	img2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("fetching image: %v", err)
	}
	img2.Body.Close()
	if img2.StatusCode != http.StatusOK || img2.Header.Get("Content-Type") != "image/jpeg" {
		t.Errorf("expected jpeg image, got %d %s", img2.StatusCode, img2.Header.Get("Content-Type"))
	}
}

func TestMovementsAPIFlow(t *testing.T) {
	server, token := setupTestServer(t)

	var c model.Component
	do(t, "POST", server.URL+"/api/components", token, map[string]any{"name": "Arduino", "quantity": 10}, http.StatusCreated, &c)

	var loan model.Movement
	do(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"component_id": c.ID, "kind": "loan", "quantity": 4, "person": "Ana",
	}, http.StatusCreated, &loan)

	do(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"component_id": c.ID, "kind": "loan", "quantity": 7, "person": "Ana",
	}, http.StatusConflict, nil)
	do(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"component_id": c.ID, "kind": "loan", "quantity": 1.5, "person": "Ana",
	}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"component_id": c.ID, "kind": "entry", "quantity": int64(model.MaxQuantity) + 1,
	}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"component_id": c.ID, "kind": "loan", "quantity": 1, "person": "Nadie",
	}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"component_id": 999, "kind": "loan", "quantity": 1,
	}, http.StatusNotFound, nil)

	do(t, "GET", server.URL+"/api/components/"+itoa(c.ID), token, nil, http.StatusOK, &c)
	if c.Quantity != 6 {
		t.Errorf("expected quantity 6, got %d", c.Quantity)
	}

	var ret model.Movement
	do(t, "POST", server.URL+"/api/movements/"+itoa(loan.ID)+"/return", token,
		map[string]string{"notes": "en buen estado"}, http.StatusCreated, &ret)
	if ret.Kind != model.KindReturn || ret.Person != "Ana" {
		t.Errorf("unexpected return movement: %+v", ret)
	}
	do(t, "POST", server.URL+"/api/movements/9999/return", token, nil, http.StatusNotFound, nil)

	var history []model.Movement
	do(t, "GET", server.URL+"/api/movements?person=ana&component="+itoa(c.ID), token, nil, http.StatusOK, &history)
	if len(history) != 2 {
		t.Errorf("expected 2 movements, got %d", len(history))
	}
	do(t, "GET", server.URL+"/api/movements?from=yesterday", token, nil, http.StatusBadRequest, nil)
}

func TestReturnAcceptsChunkedEmptyBody(t *testing.T) {
	server, token := setupTestServer(t)

	var c model.Component
	do(t, "POST", server.URL+"/api/components", token, map[string]any{"name": "Cautín", "quantity": 3}, http.StatusCreated, &c)
	var loan model.Movement
	do(t, "POST", server.URL+"/api/movements", token, map[string]any{
		"component_id": c.ID, "kind": "loan", "quantity": 2, "person": "Ana",
	}, http.StatusCreated, &loan)

	// An opaque reader has no known length, so the client sends it chunked.
	req, err := http.NewRequest("POST", server.URL+"/api/movements/"+itoa(loan.ID)+"/return",
		io.NopCloser(strings.NewReader("")))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("return request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, msg)
	}

	do(t, "GET", server.URL+"/api/components/"+itoa(c.ID), token, nil, http.StatusOK, &c)
	if c.Quantity != 3 {
		t.Errorf("expected quantity 3 after return, got %d", c.Quantity)
	}

	do(t, "POST", server.URL+"/api/movements/"+itoa(loan.ID)+"/return", token,
		"not an object", http.StatusBadRequest, nil)
}

func TestReportDownload(t *testing.T) {
	server, token := setupTestServer(t)
	do(t, "POST", server.URL+"/api/components", token, map[string]any{"name": "Arduino", "quantity": 10}, http.StatusCreated, nil)

	for _, file := range []string{"components.xlsx", "components.pdf", "movements.xlsx", "movements.pdf"} {
		req, _ := authRequest("GET", server.URL+"/api/reports/"+file, token, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", file, err)
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", file, resp.StatusCode)
		}
		if !strings.Contains(resp.Header.Get("Content-Disposition"), "attachment") {
			t.Errorf("%s: expected attachment disposition", file)
		}
		if len(data) == 0 {
			t.Errorf("%s: empty body", file)
		}
	}

	do(t, "GET", server.URL+"/api/reports/components.csv", token, nil, http.StatusNotFound, nil)
	do(t, "GET", server.URL+"/api/reports/owners.xlsx", token, nil, http.StatusNotFound, nil)
}

func TestContactEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	token := login(t, server, "ana")

	do(t, "POST", server.URL+"/api/contact", token, map[string]string{
		"email": "ana@example.com", "message": "Se rompió un sensor",
	}, http.StatusOK, nil)
	if len(server.outbox.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(server.outbox.sent))
	}

	server.outbox.err = errors.New("relay down")
	do(t, "POST", server.URL+"/api/contact", token, map[string]string{
		"email": "ana@example.com", "message": "hola",
	}, http.StatusBadGateway, nil)
}

func TestUsersAPI(t *testing.T) {
	server, token := setupTestServer(t)

	var u model.User
	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"display_name": "Luis", "username": "luis", "password": "password123",
	}, http.StatusCreated, &u)
	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"display_name": "Luis", "username": "luis", "password": "password123",
	}, http.StatusConflict, nil)

	var people []string
	do(t, "GET", server.URL+"/api/people", token, nil, http.StatusOK, &people)
	if len(people) != 3 {
		t.Errorf("expected 3 people, got %v", people)
	}

	do(t, "DELETE", server.URL+"/api/users/"+itoa(u.ID), token, nil, http.StatusOK, nil)
	do(t, "DELETE", server.URL+"/api/users/"+itoa(u.ID), token, nil, http.StatusNotFound, nil)
}

func TestLoginRateLimit(t *testing.T) {
	server := newTestServer(t, "2-M")

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	var last int
	for i := 0; i < 3; i++ {
		resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("expected 429 on the third attempt, got %d", last)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, token := setupTestServer(t)
	do(t, "GET", server.URL+"/api/components", token, nil, http.StatusOK, nil)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), `komponente_http_requests_total{method="GET",route="GET /api/components",status="200"}`) {
		t.Errorf("expected request counter for GET /api/components in:\n%s", data)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
