package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediaedit-api/internal/autocut"
	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/job"
	"github.com/maauso/mediaedit-api/internal/media"
	"github.com/maauso/mediaedit-api/internal/storage"
	"github.com/maauso/mediaedit-api/internal/template"
)

// mockProcessor implements media.Processor for testing.
type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Probe(ctx context.Context, path string) (media.Info, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(media.Info), args.Error(1)
}

func (m *mockProcessor) RenderVideo(ctx context.Context, src, dst string, steps []edit.Step) error {
	return m.Called(ctx, src, dst, steps).Error(0)
}

func (m *mockProcessor) RenderImage(ctx context.Context, src, dst string, steps []edit.Step) error {
	return m.Called(ctx, src, dst, steps).Error(0)
}

func (m *mockProcessor) Concat(ctx context.Context, segments []media.Segment, dst string) error {
	return m.Called(ctx, segments, dst).Error(0)
}

func (m *mockProcessor) Passthrough(ctx context.Context, src, dst string) error {
	return m.Called(ctx, src, dst).Error(0)
}

// mockAnalyzer implements audio.Analyzer for testing.
type mockAnalyzer struct {
	mock.Mock
}

func (m *mockAnalyzer) Energy(ctx context.Context, path string) (autocut.Energy, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(autocut.Energy), args.Error(1)
}

func writeOutput(dstArg int) func(mock.Arguments) {
	return func(args mock.Arguments) {
		_ = os.WriteFile(args.String(dstArg), []byte("rendered"), 0o600)
	}
}

type testEnv struct {
	router    http.Handler
	processor *mockProcessor
	analyzer  *mockAnalyzer
	store     *storage.LocalStorage
}

func newTestEnv(t *testing.T, opts ...HandlerOption) *testEnv {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocalStorage(filepath.Join(root, "uploads"), filepath.Join(root, "outputs"))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	processor := &mockProcessor{}
	analyzer := &mockAnalyzer{}
	resolver := template.NewResolver(template.NewFileStore(filepath.Join(root, "data", "templates.json"), logger))
	svc := job.NewProcessService(job.NewMemoryRepository(), store, processor, analyzer, resolver, logger)

	handlers := NewHandlers(svc, resolver, store, logger, opts...)
	return &testEnv{
		router:    NewRouter(handlers, logger, DefaultConfig()),
		processor: processor,
		analyzer:  analyzer,
		store:     store,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type part struct {
	field    string
	filename string
	content  string
}

func multipartRequest(t *testing.T, target string, parts ...part) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename != "" {
			fw, err := mw.CreateFormFile(p.field, p.filename)
			require.NoError(t, err)
			_, err = io.WriteString(fw, p.content)
			require.NoError(t, err)
			continue
		}
		require.NoError(t, mw.WriteField(p.field, p.content))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestTemplates_ListAndDefaults(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/templates", "/templates/defaults"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		var list []template.Template
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
		require.Len(t, list, 8, path)
		assert.Equal(t, "social-short", list[0].ID)
	}
}

func TestTemplates_Create(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name": "My Look", "config": {"image": {"contrast": 1.4}, "video": {"speed": 1.5}}}`
	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var created template.Template
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "my-look-custom", created.ID)
	assert.Equal(t, 1.4, created.Config.Image["contrast"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/templates", nil))
	var list []template.Template
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 9)
	assert.Equal(t, "my-look-custom", list[8].ID)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/templates/defaults", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 8)
}

func TestTemplates_CreateInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing name", `{"config": {}}`, CodeValidation},
		{"empty name", `{"name": "", "config": {}}`, CodeValidation},
		{"missing config", `{"name": "x"}`, CodeValidation},
		{"config not an object", `{"name": "x", "config": [1]}`, CodeInvalidJSON},
		{"not json", `name=x`, CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(httptest.NewRequest(http.MethodPost, "/api/templates", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestProcess_RedirectsToDownload(t *testing.T) {
	env := newTestEnv(t)
	env.processor.On("RenderImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(writeOutput(2)).Return(nil)

	rec := env.do(multipartRequest(t, "/process",
		part{field: "file", filename: "photo.png", content: "png-bytes"},
		part{field: "edits", content: `{"brightness": 1.2}`},
		part{field: "template", content: "neon-pop"},
	))

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/download/"), location)
	assert.True(t, strings.HasSuffix(location, "_out.png"), location)
	jobID := rec.Header().Get("X-Job-ID")
	require.NotEmpty(t, jobID)

	steps := env.processor.Calls[0].Arguments.Get(3).([]edit.Step)
	assert.Equal(t, []edit.Op{edit.OpBrightness, edit.OpContrast, edit.OpSaturation}, edit.Ops(steps))
	assert.Equal(t, 1.2, steps[0].Factor)

	rec = env.do(httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rendered", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "COMPLETED", resp.Status)
	assert.Equal(t, "edits", resp.Action)
	assert.Equal(t, "image", resp.Kind)
	assert.Equal(t, "neon-pop", resp.Template)
	assert.Equal(t, location, resp.DownloadURL)
	assert.NotNil(t, resp.CompletedAt)
}

func TestProcess_Autocut(t *testing.T) {
	env := newTestEnv(t)
	env.analyzer.On("Energy", mock.Anything, mock.Anything).
		Return(autocut.Energy{Windows: []float64{0.5, 0.5, 0}, Duration: 3}, nil)
	env.processor.On("Concat", mock.Anything, mock.Anything, mock.Anything).Run(writeOutput(2)).Return(nil)

	rec := env.do(multipartRequest(t, "/process",
		part{field: "file", filename: "talk.mp4", content: "mp4"},
		part{field: "action", content: "autocut"},
		part{field: "edits", content: `{"silence_threshold": 0.1}`},
	))

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "_out.mp4"))
	env.processor.AssertNumberOfCalls(t, "Concat", 1)
}

func TestProcess_Errors(t *testing.T) {
	tests := []struct {
		name   string
		parts  []part
		status int
		code   string
	}{
		{
			name:   "no file",
			parts:  []part{{field: "edits", content: "{}"}},
			status: http.StatusBadRequest,
			code:   CodeNoFile,
		},
		{
			name:   "invalid edits json",
			parts:  []part{{field: "file", filename: "a.png", content: "x"}, {field: "edits", content: "{nope"}},
			status: http.StatusBadRequest,
			code:   CodeInvalidJSON,
		},
		{
			name:   "edits not an object",
			parts:  []part{{field: "file", filename: "a.png", content: "x"}, {field: "edits", content: "[1]"}},
			status: http.StatusBadRequest,
			code:   CodeInvalidJSON,
		},
		{
			name:   "invalid edit value",
			parts:  []part{{field: "file", filename: "a.png", content: "x"}, {field: "edits", content: `{"crop": [5, 5, 1, 1]}`}},
			status: http.StatusBadRequest,
			code:   CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(multipartRequest(t, "/process", tt.parts...))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
			env.processor.AssertNotCalled(t, "RenderImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestProcess_NotMultipart(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/process", strings.NewReader(`{"edits": {}}`))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeNoFile, decodeError(t, rec).Code)
}

func TestProcess_ProcessingFailure(t *testing.T) {
	env := newTestEnv(t)
	env.processor.On("RenderVideo", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&media.FFmpegError{Err: errors.New("exit status 1"), Stderr: "moov atom not found"})

	rec := env.do(multipartRequest(t, "/process",
		part{field: "file", filename: "broken.mp4", content: "not a video"},
	))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, CodeProcessingFailed, resp.Code)
	assert.NotContains(t, resp.Error, "moov")
}

func TestProcess_RequestTooLarge(t *testing.T) {
	env := newTestEnv(t, WithMaxUploadBytes(1024))

	rec := env.do(multipartRequest(t, "/process",
		part{field: "file", filename: "big.png", content: strings.Repeat("x", 8192)},
	))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeTooLarge, decodeError(t, rec).Code)
}

func TestProcessTimeline(t *testing.T) {
	env := newTestEnv(t)
	env.processor.On("Concat", mock.Anything, mock.Anything, mock.Anything).Run(writeOutput(2)).Return(nil)

	rec := env.do(multipartRequest(t, "/process-timeline",
		part{field: "files", filename: "a.mp4", content: "a"},
		part{field: "files", filename: "b.mp4", content: "b"},
		part{field: "timeline", content: `[{"index": 1, "trim": [0.5, null]}]`},
	))

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "_timeline.mp4"))

	segments := env.processor.Calls[0].Arguments.Get(1).([]media.Segment)
	require.Len(t, segments, 2)
	assert.Nil(t, segments[0].Trim)
	require.NotNil(t, segments[1].Trim)
	assert.Equal(t, 0.5, segments[1].Trim.Start)
	assert.Nil(t, segments[1].Trim.End)
}

func TestProcessTimeline_Errors(t *testing.T) {
	tests := []struct {
		name  string
		parts []part
		code  string
	}{
		{"no files", []part{{field: "timeline", content: "[]"}}, CodeNoFile},
		{"invalid timeline json", []part{{field: "files", filename: "a.mp4", content: "a"}, {field: "timeline", content: "[{"}}, CodeInvalidJSON},
		{"invalid entry", []part{{field: "files", filename: "a.mp4", content: "a"}, {field: "timeline", content: `[{"index": 0, "trim": [2, 1]}]`}}, CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(multipartRequest(t, "/process-timeline", tt.parts...))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestProcessTimeline_NoSegments(t *testing.T) {
	env := newTestEnv(t)
	env.processor.On("Concat", mock.Anything, mock.Anything, mock.Anything).Return(media.ErrNoSegments)

	rec := env.do(multipartRequest(t, "/process-timeline",
		part{field: "files", filename: "a.mp4", content: "a"},
	))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeEmptyInput, decodeError(t, rec).Code)
}

func TestDownload_NotFound(t *testing.T) {
	env := newTestEnv(t)
	secret := filepath.Join(filepath.Dir(env.store.OutputDir()), "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("secret"), 0o600))

	for _, path := range []string{"/download/missing.mp4", "/download/..%2Fsecret.txt"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.NotContains(t, rec.Body.String(), "secret\n", path)
	}
}

func TestGetJob_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/jobs/job-missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeJobNotFound, decodeError(t, rec).Code)
}

func TestListJobs(t *testing.T) {
	env := newTestEnv(t)
	env.processor.On("RenderImage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(writeOutput(2)).Return(nil)

	for i := 0; i < 2; i++ {
		rec := env.do(multipartRequest(t, "/process", part{field: "file", filename: "a.png", content: "x"}))
		require.Equal(t, http.StatusFound, rec.Code)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []JobResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&jobs))
	assert.Len(t, jobs, 2)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/process", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	rec := env.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Job-ID")
}

func TestRequestIDPropagated(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")

	rec := env.do(req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}
