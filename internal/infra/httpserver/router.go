package httpserver

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appinv "github.com/bryanwahyu/forensiq/internal/application/investigations"
	domai "github.com/bryanwahyu/forensiq/internal/domain/ai"
	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
	"github.com/bryanwahyu/forensiq/internal/middleware"
)

//go:embed web
var webFS embed.FS

// FormField is the multipart field carrying evidence files.
const FormField = "evidence_files"

// memory kept for multipart parts before they spill to temp files
const multipartMemory = 32 << 20

type Options struct {
	Log            zerolog.Logger
	MaxUploadBytes int64
	AllowedOrigins []string
	APIKeys        []string
	RateLimiter    *middleware.RateLimiter // nil disables rate limiting
	Checks         map[string]middleware.HealthChecker
}

type Router struct {
	svc       *appinv.Service
	log       zerolog.Logger
	maxUpload int64
}

func NewRouter(svc *appinv.Service, opts Options) http.Handler {
	r := &Router{svc: svc, log: opts.Log, maxUpload: opts.MaxUploadBytes}
	mux := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))
	mux.Use(middleware.RequestLogger(opts.Log))
	mux.Use(middleware.MetricsMiddleware)

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	mux.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFileFS(w, req, static, "index.html")
	})
	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.Get("/health", middleware.HealthHandler(opts.Checks))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checks))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	analyze := mux.With()
	if opts.RateLimiter != nil {
		analyze = mux.With(middleware.RateLimit(opts.RateLimiter))
	}
	analyze.Post("/analyze", r.wrap(r.handleAnalyze))

	mux.Route("/v1/investigations", func(rt chi.Router) {
		rt.Use(middleware.APIKeyAuth(opts.APIKeys))
		rt.Get("/latest", r.wrap(r.handleLatest))
		rt.Get("/{id}", r.wrap(r.handleGet))
		rt.Get("/{id}/errors", r.wrap(r.handleErrors))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// statusError carries an explicit HTTP status.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func badRequest(err error) error {
	return &statusError{status: http.StatusBadRequest, msg: err.Error()}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var se *statusError
		switch {
		case errors.As(err, &se):
			middleware.WriteError(w, se.status, se.msg)
		case appinv.IsInputError(err):
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, sql.ErrNoRows), errors.Is(err, domain.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "not found")
		case errors.Is(err, domai.ErrQuotaExceeded):
			middleware.WriteError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			r.log.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
			middleware.WriteError(w, http.StatusInternalServerError, "System Failure: "+err.Error())
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// POST /analyze (multipart evidence_files)
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if r.maxUpload > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	}
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return &statusError{status: http.StatusRequestEntityTooLarge, msg: "Upload exceeds size limit."}
		case errors.Is(err, http.ErrNotMultipart):
			return appinv.ErrNoEvidence
		default:
			return badRequest(err)
		}
	}
	defer req.MultipartForm.RemoveAll()

	headers := req.MultipartForm.File[FormField]
	cmd := appinv.AnalyzeCommand{Files: make([]appinv.Upload, 0, len(headers))}
	for _, fh := range headers {
		cmd.Files = append(cmd.Files, uploadFrom(fh))
	}

	middleware.InvestigationStarted(len(headers))
	res, err := r.svc.Analyze(req.Context(), cmd)
	middleware.InvestigationFinished(len(res.Timeline), err != nil)
	if err != nil {
		return err
	}
	return writeJSON(w, res)
}

func uploadFrom(fh *multipart.FileHeader) appinv.Upload {
	return appinv.Upload{
		Name: fh.Filename,
		Size: fh.Size,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// GET /v1/investigations/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}

// GET /v1/investigations/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateInvestigationID(id); err != nil {
		return badRequest(err)
	}

	inv, err := r.svc.Get(req.Context(), domain.ID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, inv)
}

// GET /v1/investigations/{id}/errors?limit=50
func (r *Router) handleErrors(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateInvestigationID(id); err != nil {
		return badRequest(err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.svc.Errors(req.Context(), domain.ID(id), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}
