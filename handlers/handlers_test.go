package handlers_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"rental_service/authorization"
	"rental_service/casbinAuthorization"
	"rental_service/handlers"
	application "rental_service/service"
	"rental_service/store/memstore"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	tracer := trace.NewNoopTracerProvider().Tracer("")

	users := memstore.NewUserStore()
	homes := memstore.NewHomeStore()
	sessions := memstore.NewSessionStore(time.Hour)
	files := memstore.NewFileStore()
	cleaner := application.NewReferenceCleaner(users, 1, time.Millisecond, logger)
	t.Cleanup(cleaner.Close)

	auth := application.NewAuthService(users, sessions, files, application.NewBcryptHasher(bcrypt.MinCost), nil, tracer, logger)
	listings := application.NewHomeService(homes, users, files, cleaner, true, tracer, logger)
	store := application.NewStoreService(homes, users, files, tracer, logger)

	links, err := authorization.NewLinkSigner([]byte("test-secret"), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	enforcer, err := casbinAuthorization.NewEnforcer("../rbac_model.conf", "../policy.csv")
	if err != nil {
		t.Fatal(err)
	}
	cookie := handlers.NewSessionCookie([]byte("0123456789abcdef0123456789abcdef"), false, time.Hour)

	router := mux.NewRouter()
	router.Use(handlers.SessionMiddleware(sessions, cookie, logger))
	router.Use(casbinAuthorization.CasbinMiddleware(enforcer, handlers.RequestRole, logger))
	handlers.NewAuthHandler(auth, cookie, tracer, logger).Init(router)
	handlers.NewHostHandler(listings, store, tracer, logger).Init(router)
	handlers.NewStoreHandler(listings, store, links, tracer, logger).Init(router)
	handlers.NewFileHandler(files, nil, tracer, logger).Init(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server}
}

func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar}
}

func do(t *testing.T, client *http.Client, method, url, contentType string, body io.Reader) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, content
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload interface{}) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(raw)
	}
	return do(t, client, method, url, "application/json", body)
}

func signup(t *testing.T, s *testServer, email, userType string) *http.Client {
	t.Helper()
	client := s.client(t)
	status, body := doJSON(t, client, http.MethodPost, s.URL+"/api/auth/signup", map[string]string{
		"email": email, "password": "correct horse", "firstName": "Test", "userType": userType,
	})
	if status != http.StatusCreated {
		t.Fatalf("signup failed with %d: %s", status, body)
	}
	return client
}

func homeForm(t *testing.T, fields map[string]string, withPhoto bool) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatal(err)
		}
	}
	if withPhoto {
		part, err := writer.CreateFormFile("photo", "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		img.Set(2, 2, color.RGBA{B: 255, A: 255})
		if err := png.Encode(part, img); err != nil {
			t.Fatal(err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return writer.FormDataContentType(), &buf
}

type homeResponse struct {
	Home application.HomeView `json:"home"`
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	anonymous := s.client(t)
	guest := signup(t, s, "guest@example.com", "guest")

	t.Run("ok, anonymous can browse", func(t *testing.T) {
		status, body := do(t, anonymous, http.MethodGet, s.URL+"/api/store/homes", "", nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", status, body)
		}
	})

	t.Run("fail, anonymous favourites", func(t *testing.T) {
		status, _ := do(t, anonymous, http.MethodGet, s.URL+"/api/store/favourites", "", nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", status)
		}
	})

	t.Run("fail, guest on host routes", func(t *testing.T) {
		status, _ := do(t, guest, http.MethodGet, s.URL+"/api/host/homes", "", nil)
		if status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("fail, rejections are JSON", func(t *testing.T) {
		cases := []struct {
			client *http.Client
			url    string
			status int
		}{
			{anonymous, s.URL + "/api/store/favourites", http.StatusUnauthorized},
			{guest, s.URL + "/api/host/homes", http.StatusForbidden},
		}
		for _, c := range cases {
			resp, err := c.client.Get(c.url)
			if err != nil {
				t.Fatal(err)
			}
			var body map[string]string
			decodeErr := json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			if resp.StatusCode != c.status {
				t.Fatalf("expected %d, got %d", c.status, resp.StatusCode)
			}
			if contentType := resp.Header.Get("Content-Type"); contentType != "application/json" {
				t.Fatalf("expected application/json, got %q", contentType)
			}
			if decodeErr != nil || body["error"] == "" {
				t.Fatalf("unexpected body %v: %v", body, decodeErr)
			}
		}
	})

	t.Run("ok, secure session cookie outside local environments", func(t *testing.T) {
		cookie := handlers.NewSessionCookie([]byte("0123456789abcdef0123456789abcdef"), true, time.Hour)
		recorder := httptest.NewRecorder()
		if err := cookie.Write(recorder, application.NewSession()); err != nil {
			t.Fatal(err)
		}

		written := recorder.Result().Cookies()
		if len(written) != 1 || !written[0].Secure || !written[0].HttpOnly || written[0].SameSite != http.SameSiteNoneMode {
			t.Fatalf("unexpected cookie %+v", written)
		}
	})

	t.Run("fail, tampered session cookie is anonymous", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, s.URL+"/api/store/favourites", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.AddCookie(&http.Cookie{Name: handlers.SessionCookieName, Value: "forged"})
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	t.Run("fail, duplicate signup", func(t *testing.T) {
		signup(t, s, "ana@example.com", "guest")
		status, _ := doJSON(t, s.client(t), http.MethodPost, s.URL+"/api/auth/signup", map[string]string{
			"email": "ana@example.com", "password": "correct horse", "firstName": "Ana",
		})
		if status != http.StatusConflict {
			t.Fatalf("expected 409, got %d", status)
		}
	})

	t.Run("fail, wrong password", func(t *testing.T) {
		status, _ := doJSON(t, s.client(t), http.MethodPost, s.URL+"/api/auth/login", map[string]string{
			"email": "ana@example.com", "password": "not the password",
		})
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", status)
		}
	})

	t.Run("ok, login then logout", func(t *testing.T) {
		client := s.client(t)
		status, body := doJSON(t, client, http.MethodPost, s.URL+"/api/auth/login", map[string]string{
			"email": "ana@example.com", "password": "correct horse",
		})
		if status != http.StatusOK {
			t.Fatalf("login failed with %d: %s", status, body)
		}
		if strings.Contains(strings.ToLower(string(body)), "password") {
			t.Fatalf("response leaks the password: %s", body)
		}

		status, body = do(t, client, http.MethodGet, s.URL+"/api/auth/current-user", "", nil)
		if status != http.StatusOK || !strings.Contains(string(body), "ana@example.com") {
			t.Fatalf("unexpected current user %d: %s", status, body)
		}

		status, _ = do(t, client, http.MethodPost, s.URL+"/api/auth/logout", "", nil)
		if status != http.StatusOK {
			t.Fatalf("logout failed with %d", status)
		}
		status, body = do(t, client, http.MethodGet, s.URL+"/api/auth/current-user", "", nil)
		if status != http.StatusOK || !strings.Contains(string(body), `"user":null`) {
			t.Fatalf("expected no user after logout, got %d: %s", status, body)
		}
	})

	t.Run("fail, invalid signup body", func(t *testing.T) {
		status, body := doJSON(t, s.client(t), http.MethodPost, s.URL+"/api/auth/signup", map[string]string{
			"email": "bad", "password": "correct horse", "firstName": "Ana",
		})
		if status != http.StatusUnprocessableEntity || !strings.Contains(string(body), `"field":"email"`) {
			t.Fatalf("expected 422 on email, got %d: %s", status, body)
		}
	})
}

func TestListingFlow(t *testing.T) {
	s := newTestServer(t)
	host := signup(t, s, "host@example.com", "host")
	guest := signup(t, s, "guest@example.com", "guest")

	contentType, form := homeForm(t, map[string]string{
		"houseName": "Casa", "price": "120", "location": "Lisbon", "rating": "4.44",
	}, true)
	status, body := do(t, host, http.MethodPost, s.URL+"/api/host/homes", contentType, form)
	if status != http.StatusCreated {
		t.Fatalf("add home failed with %d: %s", status, body)
	}
	var created homeResponse
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatal(err)
	}
	if created.Home.Rating != 4.4 || created.Home.PhotoURL == "" {
		t.Fatalf("unexpected listing %+v", created.Home)
	}

	t.Run("fail, listing without photo", func(t *testing.T) {
		contentType, form := homeForm(t, map[string]string{"houseName": "Bare", "price": "10", "location": "Porto"}, false)
		status, _ := do(t, host, http.MethodPost, s.URL+"/api/host/homes", contentType, form)
		if status != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", status)
		}
	})

	t.Run("ok, photo and thumbnail are served", func(t *testing.T) {
		status, body := do(t, guest, http.MethodGet, s.URL+created.Home.PhotoURL, "", nil)
		if status != http.StatusOK || !bytes.HasPrefix(body, []byte("\x89PNG")) {
			t.Fatalf("unexpected photo response %d", status)
		}
		status, body = do(t, guest, http.MethodGet, s.URL+created.Home.PhotoURL+"/thumbnail", "", nil)
		if status != http.StatusOK || !bytes.HasPrefix(body, []byte{0xFF, 0xD8}) {
			t.Fatalf("unexpected thumbnail response %d", status)
		}
	})

	t.Run("ok, guest favourites the listing", func(t *testing.T) {
		status, body := doJSON(t, guest, http.MethodPost, s.URL+"/api/store/favourites", map[string]string{"homeId": created.Home.ID})
		if status != http.StatusOK {
			t.Fatalf("favourite failed with %d: %s", status, body)
		}
		status, body = do(t, guest, http.MethodGet, s.URL+"/api/store/favourites", "", nil)
		if status != http.StatusOK || !strings.Contains(string(body), created.Home.ID) {
			t.Fatalf("favourite not listed %d: %s", status, body)
		}
	})

	t.Run("ok, edit with a form changes only the price", func(t *testing.T) {
		contentType, form := homeForm(t, map[string]string{"price": "200", "houseName": ""}, false)
		status, body := do(t, host, http.MethodPut, s.URL+"/api/host/homes/"+created.Home.ID, contentType, form)
		if status != http.StatusOK {
			t.Fatalf("edit failed with %d: %s", status, body)
		}
		var edited homeResponse
		if err := json.Unmarshal(body, &edited); err != nil {
			t.Fatal(err)
		}
		if edited.Home.Price != 200 || edited.Home.HouseName != "Casa" {
			t.Fatalf("unexpected listing %+v", edited.Home)
		}
	})

	t.Run("ok, host deletes and the favourite disappears", func(t *testing.T) {
		status, body := do(t, host, http.MethodDelete, s.URL+"/api/host/homes/"+created.Home.ID, "", nil)
		if status != http.StatusOK {
			t.Fatalf("delete failed with %d: %s", status, body)
		}
		status, body = do(t, guest, http.MethodGet, s.URL+"/api/store/favourites", "", nil)
		if status != http.StatusOK || strings.Contains(string(body), created.Home.ID) {
			t.Fatalf("favourite survived deletion %d: %s", status, body)
		}
		status, _ = do(t, guest, http.MethodGet, s.URL+"/api/store/homes/"+created.Home.ID, "", nil)
		if status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", status)
		}
	})
}
