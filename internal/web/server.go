// Package web serves the A/B test report pages. The front end is
// session-less: every page renders directly from the per-test report
// directories, with orderings cached by the report store.
package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"wikiguess/internal/assets"
	"wikiguess/internal/config"
	"wikiguess/internal/report"
)

// Server is the wikiguess web front end.
type Server struct {
	cfg      *config.Config
	store    *report.Store
	resolver *assets.Resolver
	log      *zap.Logger
	tmpl     *template.Template

	// Directory pages are expensive to assemble; the chronological base
	// is cached and reordered per request until the store changes.
	dirMu    sync.Mutex
	dirGen   uint64
	dirBase  []dirEntry
	dirBuilt bool

	httpSrv *http.Server
}

// New creates the server and parses its templates.
func New(cfg *config.Config, store *report.Store, resolver *assets.Resolver, log *zap.Logger) (*Server, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		log:      log,
		tmpl:     tmpl,
	}
	s.httpSrv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.GetReadTimeout(),
		WriteTimeout: cfg.GetWriteTimeout(),
	}
	return s, nil
}

// Handler builds the route table with logging and auth applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleWelcome)
	mux.HandleFunc("GET /dir/{$}", s.handleDirDefault)
	mux.HandleFunc("GET /dir/{batch}", s.handleDir)
	mux.HandleFunc("GET /show/{$}", s.handleShowDefault)
	mux.HandleFunc("GET /show/{batch}/{$}", s.handleShowBatch)
	mux.HandleFunc("GET /show/{batch}/{testname}", s.handleShowTest)
	mux.HandleFunc("GET /show/{batch}/{testname}/result/{guess...}", s.handleResult)
	mux.Handle("GET /static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(s.cfg.Reports.StaticRoot))))
	mux.HandleFunc("/", s.handleNotFound)

	var handler http.Handler = mux
	if s.cfg.Server.AuthUser != "" {
		handler = basicAuth(s.cfg.Server.AuthUser, s.cfg.Server.AuthPassword, handler)
	}
	return requestLogger(s.log, handler)
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.httpSrv.Addr),
			zap.String("mode", s.cfg.Server.Mode))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
	defer cancel()
	s.log.Info("shutting down")
	return s.httpSrv.Shutdown(shutdownCtx)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("template render failed", zap.String("template", name), zap.Error(err))
	}
}

func (s *Server) renderError(w http.ResponseWriter, status int, batch, why string) {
	s.render(w, status, "error.html", errorView{
		baseView: baseView{Title: "404'd!"},
		Batch:    batch,
		Why:      why,
	})
}
