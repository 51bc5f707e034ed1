package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/mdq/internal/config"
	"github.com/dgallion1/mdq/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		Port:               "8090",
		WorkerCount:        2,
		MaxQueueSize:       10,
		MaxUploadBytes:     1 << 20,
		MaxQueryBytes:      256,
		JobTTL:             time.Hour,
		MaxDepth:           128,
		DefaultInputFormat: "markdown",
	}
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	orch := pipeline.NewOrchestrator(cfg, log)
	orch.Start(context.Background())
	t.Cleanup(orch.Stop)
	return NewServer(orch, log, cfg)
}

func do(t *testing.T, s *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestQuery_Get(t *testing.T) {
	s := newTestServer(t, testConfig())
	params := url.Values{
		"query": {".h1"},
		"input": {"# Hello\n\n## World"},
	}
	rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/query?"+params.Encode(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"# Hello"}, body["results"])
}

func TestQuery_Post(t *testing.T) {
	s := newTestServer(t, testConfig())
	payload := `{"query":".[]","input":"<ul><li>a</li><li>b</li></ul>","input_format":"html","list_style":"star"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(payload))
	rec, body := do(t, s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"* a", "* b"}, body["results"])
}

func TestQuery_EmptyResultIsArray(t *testing.T) {
	s := newTestServer(t, testConfig())
	params := url.Values{"query": {".h3"}, "input": {"# only"}}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/query?"+params.Encode(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestQuery_Errors(t *testing.T) {
	s := newTestServer(t, testConfig())
	tests := []struct {
		name   string
		params url.Values
		status int
		prefix string
	}{
		{"missing query", url.Values{"input": {"# x"}}, http.StatusBadRequest, "query is required"},
		{"bad query", url.Values{"query": {"select("}}, http.StatusBadRequest, "Error evaluating query"},
		{"bad format", url.Values{"query": {".h1"}, "input_format": {"rtf"}}, http.StatusBadRequest, ""},
		{"too long", url.Values{"query": {strings.Repeat("x", 300)}}, http.StatusRequestEntityTooLarge, "query exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/query?"+tt.params.Encode(), nil))
			assert.Equal(t, tt.status, rec.Code)
			msg, _ := body["error"].(string)
			assert.NotEmpty(t, msg)
			assert.True(t, strings.HasPrefix(msg, tt.prefix), msg)
		})
	}
}

func TestQuery_InvalidJSON(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, _ := do(t, s, httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiagnostics(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/query/diagnostics?query="+url.QueryEscape(".h1"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"diagnostics":[]}`, rec.Body.String())

	rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/query/diagnostics?query="+url.QueryEscape("nope()"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	diags, ok := body["diagnostics"].([]any)
	require.True(t, ok)
	require.Len(t, diags, 1)
	d := diags[0].(map[string]any)
	assert.Equal(t, float64(1), d["line"])
	assert.Equal(t, float64(1), d["column"])
	assert.Equal(t, "nope", d["token"])
}

func TestFunctions(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, body := do(t, s, httptest.NewRequest(http.MethodGet, "/api/functions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["functions"], "select")
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "secret"
	s := newTestServer(t, cfg)

	rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/api/functions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec, _ = do(t, s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec, _ = do(t, s, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public.
	rec, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/query/batch", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestBatch_SubmitAndPoll(t *testing.T) {
	s := newTestServer(t, testConfig())
	req := multipartRequest(t,
		map[string]string{"query": ".h1"},
		map[string]string{"a.md": "# Alpha", "b.html": "<h1>Beta</h1>"},
	)
	rec, body := do(t, s, req)
	require.Equal(t, http.StatusAccepted, rec.Code, body)
	jobID, _ := body["job_id"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "/api/query/batch/"+jobID, body["poll_url"])

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/query/batch/"+jobID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		snap = pipeline.JobSnapshot{}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return snap.Status.Finished()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, pipeline.StatusCompleted, snap.Status)
	require.Len(t, snap.Files, 2)
	results := map[string][]string{}
	for _, f := range snap.Files {
		results[f.Filename] = f.Results
	}
	assert.Equal(t, []string{"# Alpha"}, results["a.md"])
	assert.Equal(t, []string{"# Beta"}, results["b.html"])
}

func TestBatch_Rejects(t *testing.T) {
	s := newTestServer(t, testConfig())

	rec, _ := do(t, s, multipartRequest(t, map[string]string{"query": "select("}, map[string]string{"a.md": "# A"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, multipartRequest(t, map[string]string{"query": ".h1"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, multipartRequest(t, map[string]string{"query": ".h1"}, map[string]string{"x.exe": "MZ"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatch_UnknownJob(t *testing.T) {
	s := newTestServer(t, testConfig())
	rec, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/api/query/batch/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"notes.md":          "notes.md",
		"../../etc/passwd":  "passwd",
		`C:\docs\report.md`: "report.md",
		"":                  "unnamed",
		"a..b.md":           "a_b.md",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
