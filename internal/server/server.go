// Package server exposes the pipeline steps over HTTP for workflow tools.
// Step handlers share the stage directories, so they run one at a time.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/jobs"
	"github.com/forPelevin/clipsai/internal/ports"
	"github.com/forPelevin/clipsai/internal/ports/adapters/script"
	"github.com/forPelevin/clipsai/internal/types"
	"github.com/forPelevin/clipsai/internal/usecase"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Annotator adds media metadata to listed files.
type Annotator interface {
	Annotate(ctx context.Context, files []types.FileInfo)
}

type Config struct {
	Layout types.Layout
	Python string
	// Token is passed to the design step when set.
	Token string
	Jobs  *jobs.Store
	Probe Annotator
	Log   zerolog.Logger

	// NewInvoker builds the invoker for one request; output is captured
	// for error details. Defaults to the script adapter.
	NewInvoker func(stdout, stderr io.Writer) ports.Invoker
	Now        func() time.Time
}

type Server struct {
	cfg Config
	mu  sync.Mutex
	mux *http.ServeMux
}

func New(cfg Config) *Server {
	if cfg.NewInvoker == nil {
		python, log := cfg.Python, cfg.Log
		cfg.NewInvoker = func(stdout, stderr io.Writer) ports.Invoker {
			return script.New(python, stdout, stderr, log)
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(cors(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /process-video", s.handleProcessVideo)
	s.mux.HandleFunc("POST /add-subtitles", s.handleAddSubtitles)
	s.mux.HandleFunc("POST /apply-design", s.handleApplyDesign)
	s.mux.HandleFunc("POST /process-complete-pipeline", s.handleCompletePipeline)
	s.mux.HandleFunc("GET /download-file/{name}", s.handleDownload)
	s.mux.HandleFunc("GET /list-files", s.handleListFiles)
	s.mux.HandleFunc("POST /cleanup", s.handleCleanup)
	s.mux.HandleFunc("GET /jobs", s.handleListJobs)
	s.mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Endpoint not found", "")
	})
}

// stepRun is the outcome of one step execution.
type stepRun struct {
	JobID  string
	Stdout string
	Stderr string
	Err    error
}

// runStep executes a single step and records it as a job. The caller holds
// s.mu.
func (s *Server) runStep(ctx context.Context, step ports.Step, req types.Request) stepRun {
	var stdout, stderr bytes.Buffer
	uc := usecase.New(usecase.Deps{Invoker: s.cfg.NewInvoker(&stdout, &stderr)})

	var jobID string
	if s.cfg.Jobs != nil {
		j, err := s.cfg.Jobs.Start(ctx, step.Name(), req.URL)
		if err != nil {
			s.cfg.Log.Error().Err(err).Msg("record job")
		} else {
			jobID = j.ID
		}
	}

	s.cfg.Log.Info().Str("step", step.Name()).Str("job", jobID).Msg("executing")
	err := uc.RunSteps(ctx, req, s.cfg.Layout, []ports.Step{step})

	if jobID != "" {
		code := 0
		var stepErr *usecase.StepError
		if errors.As(err, &stepErr) {
			code = stepErr.ExitCode
		}
		if ferr := s.cfg.Jobs.Finish(ctx, jobID, err, code); ferr != nil {
			s.cfg.Log.Error().Err(ferr).Str("job", jobID).Msg("finish job")
		}
	}
	if err != nil {
		s.cfg.Log.Error().Err(err).Str("step", step.Name()).Msg("step failed")
	}
	return stepRun{JobID: jobID, Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

func (s *Server) list(ctx context.Context, dir, pattern string) []types.FileInfo {
	files, err := layout.Inventory(dir, pattern)
	if err != nil {
		s.cfg.Log.Warn().Err(err).Str("dir", dir).Msg("list files")
		return []types.FileInfo{}
	}
	if s.cfg.Probe != nil {
		s.cfg.Probe.Annotate(ctx, files)
	}
	return files
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.cfg.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.cfg.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", s.cfg.Now().Sub(start)).
			Msg("http")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decodeBody accepts an empty body as the zero value.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	JobID   string `json:"job_id,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}
