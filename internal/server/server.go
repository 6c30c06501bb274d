// Package server exposes extraction and classification over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/classify"
	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/pipeline"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Runner runs one extraction.
type Runner interface {
	Run(ctx context.Context, in model.RunInput) (*model.BusinessProfile, error)
}

// Options configure the server.
type Options struct {
	AllowedOrigins []string
	// MaxRuns bounds concurrent extractions; extra requests get 429.
	MaxRuns int
}

// Server is the HTTP API.
type Server struct {
	router     chi.Router
	runner     Runner
	classifier *classify.Classifier
	opts       Options
}

// New creates a server. A nil classifier uses the default rules.
func New(runner Runner, classifier *classify.Classifier, opts Options) *Server {
	if classifier == nil {
		classifier = classify.Default()
	}
	if opts.MaxRuns < 1 {
		opts.MaxRuns = 1
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{runner: runner, classifier: classifier, opts: opts}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/classify", s.handleClassify)
	r.With(middleware.Throttle(s.opts.MaxRuns)).Post("/extract", s.handleExtract)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var in model.RunInput
	if err := decode(w, r, &in); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	in, err := pipeline.ValidateInput(in)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := s.runner.Run(r.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		var setupErr *pipeline.SetupError
		switch {
		case errors.As(err, &setupErr):
			status = http.StatusBadGateway
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			status = http.StatusServiceUnavailable
		}
		zap.L().Error("server: extraction failed",
			zap.String("business", in.BusinessName),
			zap.String("url", in.BaseURL),
			zap.Error(err),
		)
		jsonError(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	URLs []string `json:"urls"`
}

// ClassifyResult is one row of the /classify response. Rejected pages
// carry no category.
type ClassifyResult struct {
	URL      string             `json:"url"`
	Category model.PageCategory `json:"category,omitempty"`
	Tier     int                `json:"tier,omitempty"`
	Rule     string             `json:"rule,omitempty"`
	Title    string             `json:"title,omitempty"`
	Rejected bool               `json:"rejected"`
}

// Classify runs every URL through c.
func Classify(c *classify.Classifier, urls []string) []ClassifyResult {
	out := make([]ClassifyResult, 0, len(urls))
	for _, u := range urls {
		cl, ok := c.Classify(u, "")
		if !ok {
			out = append(out, ClassifyResult{URL: u, Rejected: true})
			continue
		}
		out = append(out, ClassifyResult{
			URL:      u,
			Category: cl.Category,
			Tier:     cl.Tier,
			Rule:     cl.Rule,
			Title:    cl.Title,
		})
	}
	return out
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := decode(w, r, &req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.URLs) == 0 {
		jsonError(w, "urls is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": Classify(s.classifier, req.URLs)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request after it completes.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}
