// Package server exposes the scene-list submission
// pipeline over HTTP: one POST endpoint guarded by an
// optional shared secret, plus health and journal
// read-outs.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sceneindex/submitd/journal"
	"github.com/sceneindex/submitd/scenelist"
	"github.com/sceneindex/submitd/submitter"
)

// SubmitFunc runs the submission pipeline for one
// validated request.
type SubmitFunc func(
	ctx context.Context,
	sub *scenelist.Submission,
) (*submitter.Result, error)

// Config wires the HTTP surface to its collaborators.
type Config struct {
	// Logger receives request and journal logs.
	Logger *slog.Logger
	// SharedSecret guards the submission endpoints
	// when non-empty.
	SharedSecret string
	// Rules are the validation limits.
	Rules scenelist.Rules
	// Submit runs the pipeline.
	Submit SubmitFunc
	// Journal records attempts when non-nil.
	Journal *journal.Journal
	// Version is reported by the health endpoint.
	Version string
	// StartTime is used for the health uptime.
	StartTime time.Time
}

// Server is the HTTP front of the service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds a Server listening on addr.
func NewServer(addr string, cfg Config) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      NewRouter(cfg),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info(
		"starting http server",
		"addr", s.httpServer.Addr,
	)

	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")

	return s.httpServer.Shutdown(ctx)
}

// NewRouter assembles the chi router. Any path or
// method outside the routes below answers 404.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.NotFound(notFoundHandler())
	r.MethodNotAllowed(notFoundHandler())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.SharedSecret))

		r.Post("/submit", submitHandler(cfg))
		r.Get("/submissions", listHandler(cfg))
	})

	return r
}

func notFoundHandler() http.HandlerFunc {
	return func(
		w http.ResponseWriter,
		_ *http.Request,
	) {
		writeFailure(
			w, CodeNotFound, "no such endpoint", "",
		)
	}
}

func healthHandler(cfg Config) http.HandlerFunc {
	type health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
		UptimeS int64  `json:"uptime_s"`
	}

	return func(
		w http.ResponseWriter,
		_ *http.Request,
	) {
		writeJSON(w, http.StatusOK, health{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(
				time.Since(cfg.StartTime).Seconds(),
			),
		})
	}
}

// submitHandler validates the body and drives the
// pipeline. Validation failures answer locally with
// zero remote calls performed.
func submitHandler(cfg Config) http.HandlerFunc {
	return func(
		w http.ResponseWriter,
		r *http.Request,
	) {
		body, err := io.ReadAll(io.LimitReader(
			r.Body,
			int64(cfg.Rules.MaxBodyBytes)+1,
		))
		if err != nil {
			writeFailure(
				w,
				scenelist.CodeBadRequest,
				"cannot read request body",
				err.Error(),
			)

			return
		}

		if len(body) > cfg.Rules.MaxBodyBytes {
			writeFailure(
				w,
				scenelist.CodePayloadTooLarge,
				"request body too large",
				"",
			)

			return
		}

		sub, err := scenelist.Validate(
			body, cfg.Rules,
		)
		if err != nil {
			writeError(w, err)

			return
		}

		result, err := cfg.Submit(r.Context(), sub)

		record(r.Context(), cfg, sub, result, err)

		if err != nil {
			writeError(w, err)

			return
		}

		writeJSON(w, http.StatusOK, Response{
			OK:    true,
			PRURL: result.PRURL,
		})
	}
}

func listHandler(cfg Config) http.HandlerFunc {
	return func(
		w http.ResponseWriter,
		r *http.Request,
	) {
		if cfg.Journal == nil {
			writeFailure(
				w,
				CodeNotFound,
				"journal is not enabled",
				"",
			)

			return
		}

		limit, _ := strconv.Atoi(
			r.URL.Query().Get("limit"),
		)

		entries, err := cfg.Journal.Recent(
			r.Context(), limit,
		)
		if err != nil {
			cfg.Logger.Error(
				"cannot list journal",
				"error", err,
			)

			writeFailure(
				w,
				"internal_error",
				"cannot list submissions",
				err.Error(),
			)

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"submissions": entries,
		})
	}
}

// record journals one attempt. Failures are logged,
// never surfaced: the journal is an audit aid, not part
// of the submission contract.
func record(
	ctx context.Context,
	cfg Config,
	sub *scenelist.Submission,
	result *submitter.Result,
	submitErr error,
) {
	if cfg.Journal == nil {
		return
	}

	entry := journal.Entry{
		IMDBID:    sub.SceneList.IMDBID,
		ScenePath: sub.ScenePath,
		Status:    "ok",
	}

	if submitErr != nil {
		entry.Status = "failed"

		var c coder
		if errors.As(submitErr, &c) {
			entry.ErrorCode = c.ErrorCode()
		}
	}

	if result != nil {
		entry.Branch = result.Branch
		entry.PRURL = result.PRURL
	}

	if err := cfg.Journal.Record(
		ctx, entry,
	); err != nil {
		cfg.Logger.Error(
			"cannot record submission",
			"error", err,
		)
	}
}
