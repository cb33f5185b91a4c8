package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gatehouse-http/gatehouse/internal/config"
	"github.com/gatehouse-http/gatehouse/pkg/session"
)

func newTestApp(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Addr: ":0"},
		Session: config.SessionConfig{CookieName: "Cookie", Lifetime: "168h"},
		Upload:  config.UploadConfig{MaxBytes: 32 << 20},
		Trace:   config.TraceConfig{BufferSize: 8},
		Metrics: config.MetricsConfig{Enabled: true},
	}

	application, err := New(cfg, zap.NewNop(), session.NewMemoryStore())
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return server, &http.Client{Jar: jar}
}

func fetch(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func expectBody(t *testing.T, client *http.Client, url string, wantStatus int, wantBody string) {
	t.Helper()
	status, body := fetch(t, client, url)
	if status != wantStatus {
		t.Errorf("%s: expected status %d, got %d", url, wantStatus, status)
	}
	if body != wantBody {
		t.Errorf("%s: expected body %q, got %q", url, wantBody, body)
	}
}

// TestBasicRoutes tests the fixed-body endpoints.
func TestBasicRoutes(t *testing.T) {
	server, client := newTestApp(t)

	expectBody(t, client, server.URL+"/", http.StatusOK, "index")
	expectBody(t, client, server.URL+"/ping", http.StatusOK, "pong")
}

// TestNotFound tests that unregistered method/path pairs answer 404.
func TestNotFound(t *testing.T) {
	server, client := newTestApp(t)

	expectBody(t, client, server.URL+"/nope", http.StatusNotFound, "Not Found")

	resp, err := client.Post(server.URL+"/ping", "text/plain", nil)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status %d for POST /ping, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

// TestErrorRoute tests that /error surfaces the failure message as the 500
// body.
func TestErrorRoute(t *testing.T) {
	server, client := newTestApp(t)
	expectBody(t, client, server.URL+"/error", http.StatusInternalServerError, "Something went wrong!")
}

// TestAuthenticationFlow tests the login/logout state machine end to end
// through the cookie jar.
func TestAuthenticationFlow(t *testing.T) {
	server, client := newTestApp(t)

	// Anonymous requests to protected routes are refused.
	expectBody(t, client, server.URL+"/user", http.StatusUnauthorized, "Access Denied")
	expectBody(t, client, server.URL+"/user/42", http.StatusUnauthorized, "Access Denied")

	expectBody(t, client, server.URL+"/login", http.StatusOK, "Successfully logged in")

	// The session resolves to the demonstration principal, who is an Admin.
	expectBody(t, client, server.URL+"/user", http.StatusOK, "John")
	expectBody(t, client, server.URL+"/user/42", http.StatusOK, "User ID: 42")

	// A non-integer ID does not match the typed template.
	expectBody(t, client, server.URL+"/user/abc", http.StatusNotFound, "Not Found")

	expectBody(t, client, server.URL+"/logout", http.StatusOK, "Successfully logged out.")
	expectBody(t, client, server.URL+"/user", http.StatusUnauthorized, "Access Denied")
}

// TestSessionCookieAttributes tests the issued cookie's name and flags.
func TestSessionCookieAttributes(t *testing.T) {
	server, _ := newTestApp(t)

	resp, err := http.Get(server.URL + "/login")
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	resp.Body.Close()

	cookies := resp.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "Cookie" {
		t.Errorf("Expected cookie name %q, got %q", "Cookie", c.Name)
	}
	if !c.HttpOnly {
		t.Errorf("Expected an HTTP-only cookie")
	}
	if c.Secure {
		t.Errorf("Expected a non-secure cookie over plain HTTP")
	}
	if c.Expires.Before(time.Now().Add(6 * 24 * time.Hour)) {
		t.Errorf("Expected roughly a 7-day expiry, got %v", c.Expires)
	}
}

// TestOnceAndEverytime tests the captured-once timestamp against the
// per-request one.
func TestOnceAndEverytime(t *testing.T) {
	server, client := newTestApp(t)

	_, first := fetch(t, client, server.URL+"/once")
	time.Sleep(5 * time.Millisecond)
	_, second := fetch(t, client, server.URL+"/once")
	if first != second {
		t.Errorf("Expected /once to be stable, got %q then %q", first, second)
	}

	_, a := fetch(t, client, server.URL+"/everytime")
	time.Sleep(5 * time.Millisecond)
	_, b := fetch(t, client, server.URL+"/everytime")
	if a == b {
		t.Errorf("Expected /everytime to change between calls, got %q twice", a)
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

// TestSmallUpload tests the in-memory upload endpoint: 400 without
// multipart content, newline-seeded name list with files.
func TestSmallUpload(t *testing.T) {
	server, client := newTestApp(t)

	resp, err := client.Post(server.URL+"/small-upload", "text/plain", strings.NewReader("not a form"))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
	if string(body) != "Bad request" {
		t.Errorf("Expected body %q, got %q", "Bad request", string(body))
	}

	buf, contentType := multipartBody(t, map[string]string{"a.txt": "aaa"})
	resp, err = client.Post(server.URL+"/small-upload", contentType, buf)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	got := string(body)
	if !strings.HasPrefix(got, "\n") {
		t.Errorf("Expected body to start with a newline, got %q", got)
	}
	if !strings.Contains(got, "a.txt") {
		t.Errorf("Expected body to contain the file name, got %q", got)
	}
}

// TestSmallUploadMultipleFiles tests that every uploaded file name appears.
func TestSmallUploadMultipleFiles(t *testing.T) {
	server, client := newTestApp(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		part, err := w.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write([]byte("data"))
	}
	w.Close()

	resp, err := client.Post(server.URL+"/small-upload", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	got := string(body)
	if got != "\none.txt\ntwo.txt\nthree.txt" {
		t.Errorf("Expected newline-joined names in upload order, got %q", got)
	}
}

// TestLargeUpload tests the streaming upload endpoint.
func TestLargeUpload(t *testing.T) {
	server, client := newTestApp(t)

	resp, err := client.Post(server.URL+"/large-upload", "text/plain", strings.NewReader("not a form"))
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", "big.bin")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(bytes.Repeat([]byte("x"), 1<<20))
	w.Close()

	resp, err = client.Post(server.URL+"/large-upload", w.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if string(body) != "\nbig.bin" {
		t.Errorf("Expected body %q, got %q", "\nbig.bin", string(body))
	}
}

// cancelingBody cancels the request context once n bytes of the body have
// been read, simulating a client that disconnects mid-upload.
type cancelingBody struct {
	r      io.Reader
	n      int
	read   int
	cancel context.CancelFunc
}

func (c *cancelingBody) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += n
	if c.read >= c.n {
		c.cancel()
	}
	return n, err
}

// TestLargeUploadCanceledMidStream tests that a streaming upload stops
// with the context error instead of draining the rest of the body.
func TestLargeUploadCanceledMidStream(t *testing.T) {
	renderer, err := NewTemplateRenderer()
	if err != nil {
		t.Fatalf("Failed to build renderer: %v", err)
	}
	table := newRouteTable(session.NewManager(session.Config{}), renderer, 32<<20)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", "big.bin")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write(bytes.Repeat([]byte("x"), 1<<20))
	w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodPost, "/large-upload", &cancelingBody{
		r:      &buf,
		n:      64 << 10,
		cancel: cancel,
	})
	req.Header.Set("Content-Type", w.FormDataContentType())
	req = req.WithContext(ctx)

	_, err = table.largeUpload(req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// TestCarBinding tests form-to-struct binding and the JSON echo.
func TestCarBinding(t *testing.T) {
	server, client := newTestApp(t)

	form := url.Values{
		"Name":   {"DeLorean"},
		"Make":   {"DMC"},
		"Wheels": {"4"},
		"Built":  {"1981-01-21"},
	}
	resp, err := client.PostForm(server.URL+"/car", form)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Expected Content-Type %q, got %q", "application/json", got)
	}

	var car Car
	if err := json.NewDecoder(resp.Body).Decode(&car); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if car.Name != "DeLorean" || car.Make != "DMC" || car.Wheels != 4 {
		t.Errorf("Unexpected car: %+v", car)
	}
	if car.Built.Year() != 1981 {
		t.Errorf("Expected Built year 1981, got %d", car.Built.Year())
	}
}

// TestViews tests that the view routes render their templates.
func TestViews(t *testing.T) {
	server, client := newTestApp(t)

	status, body := fetch(t, client, server.URL+"/razor")
	if status != http.StatusOK {
		t.Errorf("Expected status %d for /razor, got %d", http.StatusOK, status)
	}
	if !strings.Contains(body, "Gatehouse") {
		t.Errorf("Expected /razor page to contain the title, got %q", body)
	}

	status, body = fetch(t, client, server.URL+"/razorHello")
	if status != http.StatusOK || !strings.Contains(body, "Hello, world!") {
		t.Errorf("Expected /razorHello greeting, got status %d body %q", status, body)
	}

	status, _ = fetch(t, client, server.URL+"/fileupload")
	if status != http.StatusOK {
		t.Errorf("Expected status %d for /fileupload, got %d", http.StatusOK, status)
	}

	status, body = fetch(t, client, server.URL+"/person")
	if status != http.StatusOK || !strings.Contains(body, "John Doe") {
		t.Errorf("Expected /person page, got status %d body %q", status, body)
	}
}

// TestMetricsEndpoint tests the Prometheus exposition.
func TestMetricsEndpoint(t *testing.T) {
	server, client := newTestApp(t)

	// Generate some traffic first.
	fetch(t, client, server.URL+"/ping")

	status, body := fetch(t, client, server.URL+"/metrics")
	if status != http.StatusOK {
		t.Errorf("Expected status %d for /metrics, got %d", http.StatusOK, status)
	}
	if !strings.Contains(body, "gatehouse_requests_total") {
		t.Errorf("Expected request counter in metrics output, got %q", body)
	}
}
