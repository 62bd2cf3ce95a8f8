package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/troikatech/keycheck/internal/api"
	"github.com/troikatech/keycheck/internal/api/handlers"
	"github.com/troikatech/keycheck/pkg/ai"
	"github.com/troikatech/keycheck/pkg/auth"
	"github.com/troikatech/keycheck/pkg/credential"
	"github.com/troikatech/keycheck/pkg/env"
	"github.com/troikatech/keycheck/pkg/middleware"
	"github.com/troikatech/keycheck/pkg/probe"
)

const (
	testKey     = "sk-proj-abcdefghijklmnopqrstuvwxyz1234"
	maskedKey   = "sk-proj...1234"
	onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
)

// fakeOpenAI stands in for the remote API and counts calls per endpoint.
type fakeOpenAI struct {
	textCalls  atomic.Int32
	imageCalls atomic.Int32

	textStatus  int
	textBody    string
	imageStatus int
	imageBody   string
}

func newFakeOpenAI() *fakeOpenAI {
	return &fakeOpenAI{
		textStatus: http.StatusOK,
		textBody: `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"OK"}}]}`,
		imageStatus: http.StatusOK,
		imageBody:   `{"created":1,"data":[{"b64_json":"` + onePixelPNG + `"}]}`,
	}
}

func (f *fakeOpenAI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		f.textCalls.Add(1)
		w.WriteHeader(f.textStatus)
		_, _ = w.Write([]byte(f.textBody))
	case strings.HasSuffix(r.URL.Path, "/images/generations"):
		f.imageCalls.Add(1)
		w.WriteHeader(f.imageStatus)
		_, _ = w.Write([]byte(f.imageBody))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type fixture struct {
	router *gin.Engine
	api    *fakeOpenAI
	csrf   string
}

func buildTestRouter(t *testing.T, key string, cfg *env.Config) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := newFakeOpenAI()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	if cfg == nil {
		cfg = &env.Config{AppEnv: "test"}
	}

	loader := credential.NewLoaderWithLookup("", func(k string) (string, bool) {
		if k == credential.EnvKey {
			return key, key != ""
		}
		return "", false
	})
	logger := zap.NewNop()
	probes := probe.NewService(probe.Config{},
		probe.OpenAIBackend(ai.ClientOptions{BaseURL: srv.URL + "/v1/"}, logger), logger)

	h := handlers.NewHandler(cfg, loader, probes, logger)
	return &fixture{router: api.NewRouter(cfg, h), api: fake, csrf: "test-csrf-token"}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

// press submits a probe form the way the browser does.
func (f *fixture) press(path string) *httptest.ResponseRecorder {
	form := url.Values{middleware.CSRFFormField: {f.csrf}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: f.csrf})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) postJSON(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

var expectedRoutes = []struct {
	method string
	path   string
}{
	{"GET", "/health"},
	{"GET", "/metrics"},
	{"GET", "/"},
	{"POST", "/probes/text"},
	{"POST", "/probes/image"},
	{"GET", "/api/credential"},
	{"POST", "/api/probes/text"},
	{"POST", "/api/probes/image"},
	{"GET", "/static/*filepath"},
}

func Test_Routes_Registered(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	registered := make(map[string]bool)
	for _, rt := range f.router.Routes() {
		registered[rt.Method+" "+rt.Path] = true
	}

	for _, expected := range expectedRoutes {
		key := expected.method + " " + expected.path
		assert.True(t, registered[key], "missing route: %s", key)
	}
}

func TestIndex_ShowsMaskedKeyAndProbes(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	rec := f.get("/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, maskedKey)
	assert.NotContains(t, body, testKey)
	assert.Contains(t, body, `action="/probes/text"`)
	assert.Contains(t, body, `action="/probes/image"`)
	assert.Zero(t, f.api.textCalls.Load(), "loading the page must not probe")
	assert.Zero(t, f.api.imageCalls.Load())
}

func TestIndex_MissingKeyOffersNoProbes(t *testing.T) {
	f := buildTestRouter(t, "", nil)

	rec := f.get("/")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-testid="config-error"`)
	assert.Contains(t, body, "GPT_API_KEY is not set")
	assert.NotContains(t, body, `action="/probes/text"`)
	assert.NotContains(t, body, `action="/probes/image"`)
}

func TestProbePress_MissingKeyDoesNotCallRemote(t *testing.T) {
	f := buildTestRouter(t, "", nil)

	rec := f.press("/probes/text")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, f.api.textCalls.Load())
}

func TestTextProbe_Success(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	rec := f.press("/probes/text")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-testid="probe-success"`)
	assert.Contains(t, body, "<p>OK</p>")
	assert.Equal(t, int32(1), f.api.textCalls.Load())
	assert.Zero(t, f.api.imageCalls.Load())
}

func TestTextProbe_AuthFailure(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)
	f.api.textStatus = http.StatusUnauthorized
	f.api.textBody = `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`

	rec := f.press("/probes/text")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-testid="probe-failure"`)
	assert.Contains(t, body, "Incorrect API key provided")
	assert.Contains(t, body, "HTTP 401")
	assert.Equal(t, int32(1), f.api.textCalls.Load(), "no automatic retry")

	// the process keeps serving after a failed probe
	assert.Equal(t, http.StatusOK, f.get("/").Code)
}

func TestImageProbe_Success(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	rec := f.press("/probes/image")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-testid="probe-success"`)
	assert.Contains(t, body, `src="data:image/png;base64,`+onePixelPNG+`"`)
}

func TestProbes_ReportIndependently(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)
	f.api.imageStatus = http.StatusForbidden
	f.api.imageBody = `{"error":{"message":"Your organization must be verified to use the model gpt-image-1","type":"invalid_request_error"}}`

	text := f.press("/probes/text").Body.String()
	image := f.press("/probes/image").Body.String()

	assert.Contains(t, text, `data-testid="probe-success"`)
	assert.NotContains(t, text, `data-testid="probe-failure"`)
	assert.Contains(t, image, `data-testid="probe-failure"`)
	assert.Contains(t, image, "must be verified")
	assert.Contains(t, image, "HTTP 403")
}

func TestProbes_EachPressCallsRemote(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, f.press("/probes/text").Code)
		require.Equal(t, http.StatusOK, f.press("/probes/image").Code)
	}

	assert.Equal(t, int32(3), f.api.textCalls.Load())
	assert.Equal(t, int32(3), f.api.imageCalls.Load())
}

func TestProbePress_RejectsMissingCSRF(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	req := httptest.NewRequest(http.MethodPost, "/probes/text", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.api.textCalls.Load())
}

func TestAPI_ProbeText(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	rec := f.postJSON("/api/probes/text")

	require.Equal(t, http.StatusOK, rec.Code)
	var r probe.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, probe.StatusSuccess, r.Status)
	assert.Equal(t, "OK", r.Text)
}

func TestAPI_ProbeImageFailureIsStillOK(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)
	f.api.imageStatus = http.StatusTooManyRequests
	f.api.imageBody = `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`

	rec := f.postJSON("/api/probes/image")

	require.Equal(t, http.StatusOK, rec.Code)
	var r probe.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, probe.StatusFailure, r.Status)
	require.NotNil(t, r.Failure)
	assert.Equal(t, probe.KindRateLimit, r.Failure.Kind)
}

func TestAPI_MissingKeyIsProblem(t *testing.T) {
	f := buildTestRouter(t, "", nil)

	rec := f.postJSON("/api/probes/image")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Zero(t, f.api.imageCalls.Load())
}

func TestAPI_RejectsCrossSiteFormPost(t *testing.T) {
	tests := []struct {
		origins string
		want    int
	}{
		{"", http.StatusForbidden},
		{"https://ops.example", http.StatusForbidden},
		{"*", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run("origins="+tt.origins, func(t *testing.T) {
			f := buildTestRouter(t, testKey, &env.Config{AppEnv: "test", CORSAllowedOrigins: tt.origins})

			req := httptest.NewRequest(http.MethodPost, "/api/probes/image", strings.NewReader("a=b"))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("Origin", "https://evil.example")
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			assert.Zero(t, f.api.imageCalls.Load())
		})
	}
}

func TestAPI_RejectsForeignOrigin(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/probes/image", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.api.imageCalls.Load())
}

func TestAPI_AcceptsSameOriginAndListedOrigins(t *testing.T) {
	f := buildTestRouter(t, testKey, &env.Config{AppEnv: "test", CORSAllowedOrigins: "https://ops.example"})

	for _, origin := range []string{"http://example.com", "https://ops.example"} {
		req := httptest.NewRequest(http.MethodPost, "/api/probes/text", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", origin)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, origin)
	}
	assert.Equal(t, int32(2), f.api.textCalls.Load())
}

func TestAPI_UnreadableEnvFileIsInternalError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fake := newFakeOpenAI()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	// A directory cannot be parsed as a .env file
	loader := credential.NewLoaderWithLookup(t.TempDir(), func(string) (string, bool) { return "", false })
	logger := zap.NewNop()
	probes := probe.NewService(probe.Config{},
		probe.OpenAIBackend(ai.ClientOptions{BaseURL: srv.URL + "/v1/"}, logger), logger)
	cfg := &env.Config{AppEnv: "test"}
	f := &fixture{router: api.NewRouter(cfg, handlers.NewHandler(cfg, loader, probes, logger)), api: fake}

	rec := f.postJSON("/api/probes/text")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Zero(t, fake.textCalls.Load())

	assert.Equal(t, http.StatusInternalServerError, f.get("/api/credential").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.get("/").Code)
}

func TestAPI_Credential(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	rec := f.get("/api/credential")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.CredentialResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Present)
	assert.Equal(t, maskedKey, resp.Masked)
}

func TestHealth_ReportsCredentialWithoutLeakingIt(t *testing.T) {
	f := buildTestRouter(t, "", nil)

	rec := f.get("/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "missing", resp.Services["credential"])
}

func TestAccessGate_ProtectsPageButNotHealth(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	cfg := &env.Config{AppEnv: "test", AccessUser: "ops", AccessPasswordHash: hash}
	f := buildTestRouter(t, testKey, cfg)

	assert.Equal(t, http.StatusUnauthorized, f.get("/").Code)
	assert.Equal(t, http.StatusOK, f.get("/health").Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ops", "s3cret")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	f := buildTestRouter(t, testKey, nil)

	rec := f.get("/static/app.css")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".banner")
}
