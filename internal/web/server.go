// Package web serves a directory of pages with comments loaded into each HTML page.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/thorsell/comments/internal/loader"
	"github.com/thorsell/comments/internal/logging"
	"github.com/thorsell/comments/internal/view"
)

// Options configures how pages get their comments.
type Options struct {
	Fetcher  loader.Fetcher
	Endpoint string
	MountID  string
	Logger   *slog.Logger
}

// Server is the page host HTTP server.
type Server struct {
	pages   fs.FS
	opts    Options
	log     *slog.Logger
	files   http.Handler
	handler http.Handler
}

// NewServer creates a page host serving pages.
func NewServer(pages fs.FS, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MountID == "" {
		opts.MountID = view.DefaultMountID
	}

	s := &Server{
		pages: pages,
		opts:  opts,
		log:   logger,
		files: http.FileServer(http.FS(pages)),
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/").HandlerFunc(s.handlePage).Methods(http.MethodGet, http.MethodHead)

	s.handler = logging.RequestLogger(logger)(r)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("page host listening", "addr", addr, "endpoint", s.opts.Endpoint)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		s.log.Warn("writing health response", "error", err)
	}
}

// handlePage serves HTML pages with comments loaded and everything else as-is.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	name, ok := s.resolve(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if !isHTML(name) {
		s.files.ServeHTTP(w, r)
		return
	}

	f, err := s.pages.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() {
		_ = f.Close()
	}()

	doc, err := view.Parse(f, s.opts.MountID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error reading page: %v", err), http.StatusInternalServerError)
		return
	}

	// A failed load is already logged; the page is served without comments.
	_ = loader.New(s.opts.Fetcher, doc, s.opts.Endpoint, s.log).Run(r.Context())

	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		http.Error(w, fmt.Sprintf("Error rendering page: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.Method == http.MethodHead {
		return
	}
	if _, err := buf.WriteTo(w); err != nil {
		s.log.Warn("writing page", "path", r.URL.Path, "error", err)
	}
}

// resolve maps a URL path to a file in pages, using index.html for directories.
func (s *Server) resolve(urlPath string) (string, bool) {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		name = "."
	}
	if !fs.ValidPath(name) {
		return "", false
	}

	info, err := fs.Stat(s.pages, name)
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		return name, true
	}

	index := path.Join(name, "index.html")
	if _, err := fs.Stat(s.pages, index); err != nil {
		return "", false
	}
	return index, true
}

func isHTML(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}
