package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/mediaedit-api/internal/edit"
	"github.com/maauso/mediaedit-api/internal/job"
	"github.com/maauso/mediaedit-api/internal/media"
	"github.com/maauso/mediaedit-api/internal/template"
	"github.com/maauso/mediaedit-api/internal/timeline"
)

const (
	// DefaultMaxUploadBytes caps request bodies when no limit is configured.
	DefaultMaxUploadBytes int64 = 1 << 30
	// multipartMemory is how much of a multipart body is kept in memory;
	// the rest spills to temporary files.
	multipartMemory = 32 << 20
	// maxJSONBody caps template request bodies.
	maxJSONBody = 1 << 20
	// jobIDHeader carries the request record id on redirects.
	jobIDHeader = "X-Job-ID"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeInvalidJSON      = "INVALID_JSON"
	CodeNoFile           = "NO_FILE"
	CodeEmptyInput       = "EMPTY_INPUT"
	CodeTooLarge         = "REQUEST_TOO_LARGE"
	CodeProcessingFailed = "PROCESSING_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeJobNotFound      = "JOB_NOT_FOUND"
	CodeTemplateStore    = "TEMPLATE_STORE_FAILED"
)

// OutputLocator resolves output file names to local paths.
type OutputLocator interface {
	OutputPath(name string) (string, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service        *job.ProcessService
	templates      *template.Resolver
	outputs        OutputLocator
	validator      *validator.Validate
	logger         *slog.Logger
	maxUploadBytes int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUploadBytes limits the size of upload request bodies.
func WithMaxUploadBytes(n int64) HandlerOption {
	return func(h *Handlers) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.ProcessService, templates *template.Resolver, outputs OutputLocator, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:        service,
		templates:      templates,
		outputs:        outputs,
		validator:      validator.New(),
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ListTemplates handles GET /api/templates requests.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	all, err := h.templates.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list templates", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to load templates", CodeTemplateStore)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

// DefaultTemplates handles GET /templates/defaults requests.
func (h *Handlers) DefaultTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.templates.Defaults())
}

// CreateTemplate handles POST /api/templates requests.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", CodeInvalidJSON)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), CodeValidation)
		return
	}

	created, err := h.templates.Create(r.Context(), req.Name, template.Config{
		Video: req.Config.Video,
		Image: req.Config.Image,
	})
	if err != nil {
		if errors.Is(err, template.ErrInvalidTemplate) {
			writeError(w, http.StatusBadRequest, err.Error(), CodeValidation)
			return
		}
		h.logger.Error("failed to save template", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to save template", CodeTemplateStore)
		return
	}

	h.logger.Info("template created", slog.String("template_id", created.ID))
	writeJSON(w, http.StatusOK, created)
}

// Process handles POST /process requests: one uploaded file plus edits.
// On success the client is redirected to the result.
func (h *Handlers) Process(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded", CodeNoFile)
		return
	}
	defer func() { _ = file.Close() }()

	edits, err := edit.DecodeSpecString(formValue(r, "edits", "{}"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid edits JSON", CodeInvalidJSON)
		return
	}

	out, err := h.service.ProcessMedia(r.Context(), job.ProcessInput{
		File:       job.FileInput{Filename: header.Filename, Data: file},
		Mode:       r.FormValue("mode"),
		Action:     job.ParseAction(r.FormValue("action")),
		Edits:      edits,
		TemplateID: r.FormValue("template"),
	})
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	h.redirectToOutput(w, r, out)
}

// ProcessTimeline handles POST /process-timeline requests: several files
// stitched in order.
func (h *Handlers) ProcessTimeline(w http.ResponseWriter, r *http.Request) {
	if !h.parseMultipart(w, r) {
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["files[]"]
	}
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded", CodeNoFile)
		return
	}

	entries, err := timeline.Parse([]byte(r.FormValue("timeline")))
	if err != nil {
		h.writeProcessError(w, err)
		return
	}

	files := make([]job.FileInput, 0, len(headers))
	for _, fh := range headers {
		f, err := openPart(fh)
		if err != nil {
			h.logger.Error("failed to open upload part", slog.String("error", err.Error()))
			writeError(w, http.StatusBadRequest, "unreadable upload", CodeNoFile)
			return
		}
		defer func() { _ = f.Close() }()
		files = append(files, job.FileInput{Filename: fh.Filename, Data: f})
	}

	out, err := h.service.ProcessTimeline(r.Context(), job.TimelineInput{Files: files, Timeline: entries})
	if err != nil {
		h.writeProcessError(w, err)
		return
	}
	h.redirectToOutput(w, r, out)
}

func openPart(fh *multipart.FileHeader) (multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	return f, nil
}

// Download handles GET /download/{filename} requests.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	path, err := h.outputs.OutputPath(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found", CodeNotFound)
		return
	}

	f, err := os.Open(path) // #nosec G304 - path is confined to the output directory
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found", CodeNotFound)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "file not found", CodeNotFound)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	found, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", CodeJobNotFound)
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, toJobResponse(found))
}

// ListJobs handles GET /jobs requests.
func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs", "JOB_FETCH_FAILED")
		return
	}
	resp := make([]JobResponse, len(jobs))
	for i, j := range jobs {
		resp[i] = toJobResponse(j)
	}
	writeJSON(w, http.StatusOK, resp)
}

func toJobResponse(j *job.Job) JobResponse {
	resp := JobResponse{
		ID:         j.ID,
		Action:     string(j.Action),
		Kind:       string(j.Kind),
		Status:     string(j.Status),
		Template:   j.TemplateID,
		OutputName: j.OutputName,
		OutputURL:  j.OutputURL,
		Error:      j.Error,
		CreatedAt:  j.CreatedAt,
	}
	if j.OutputName != "" {
		resp.DownloadURL = downloadPath(j.OutputName)
	}
	if !j.CompletedAt.IsZero() {
		completed := j.CompletedAt
		resp.CompletedAt = &completed
	}
	return resp
}

// parseMultipart caps the body and parses the form, writing an error
// response and returning false on failure.
func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds %d bytes", tooLarge.Limit), CodeTooLarge)
			return false
		}
		h.logger.Warn("failed to parse multipart form", slog.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, "expected a multipart form upload", CodeNoFile)
		return false
	}
	return true
}

// writeProcessError maps processing errors to HTTP responses.
func (h *Handlers) writeProcessError(w http.ResponseWriter, err error) {
	var verr *edit.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error(), CodeValidation)
	case errors.Is(err, edit.ErrInvalidJSON):
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidJSON)
	case errors.Is(err, job.ErrNoUpload):
		writeError(w, http.StatusBadRequest, "no file uploaded", CodeNoFile)
	case errors.Is(err, media.ErrNoSegments):
		writeError(w, http.StatusBadRequest, "no valid segments to stitch", CodeEmptyInput)
	case errors.Is(err, media.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error(), CodeValidation)
	default:
		h.logger.Error("processing failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "processing failed", CodeProcessingFailed)
	}
}

// redirectToOutput sends the client to the published URL when there is one,
// otherwise to the local download route.
func (h *Handlers) redirectToOutput(w http.ResponseWriter, r *http.Request, out *job.ProcessOutput) {
	target := out.OutputURL
	if target == "" {
		target = downloadPath(out.OutputName)
	}
	w.Header().Set(jobIDHeader, out.JobID)
	http.Redirect(w, r, target, http.StatusFound)
}

func downloadPath(name string) string {
	return "/download/" + url.PathEscape(name)
}

func formValue(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
