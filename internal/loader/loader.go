// Package loader fetches a comments fragment and renders it into a page.
//
// A Loader performs one request per invocation and never retries. Every
// failure, whether the request, the render, or a panic in either, is
// reported as a single diagnostic log record and handed back on the
// completion channel; nothing propagates to the host as a crash.
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thorsell/comments/internal/view"
)

// DiagnosticMessage is the log message for every failed load.
const DiagnosticMessage = "Error fetching comments:"

// Stages at which a load can fail.
const (
	StageFetch  = "fetch"
	StageRender = "render"
)

// Fetcher retrieves the fragment served at endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, endpoint string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, endpoint string) (string, error) {
	return f(ctx, endpoint)
}

// Error is the failure of a single load.
type Error struct {
	Stage    string
	Endpoint string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Loader loads comments from one endpoint into one view.
type Loader struct {
	fetcher  Fetcher
	view     view.CommentView
	endpoint string
	log      *slog.Logger
}

// New creates a Loader. A nil logger uses slog.Default().
func New(fetcher Fetcher, v view.CommentView, endpoint string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher:  fetcher,
		view:     v,
		endpoint: endpoint,
		log:      logger,
	}
}

// Load starts a load and returns immediately. The returned channel
// receives the outcome once (nil on success) and is then closed; callers
// that do not care may drop it.
func (l *Loader) Load(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- l.Run(ctx)
	}()
	return done
}

// Run performs a load and waits for it to finish.
func (l *Loader) Run(ctx context.Context) (err error) {
	stage := StageFetch
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Stage: stage, Endpoint: l.endpoint, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			l.log.Error(DiagnosticMessage, "error", err)
		}
	}()

	fragment, err := l.fetcher.Fetch(ctx, l.endpoint)
	if err != nil {
		return &Error{Stage: stage, Endpoint: l.endpoint, Err: err}
	}

	stage = StageRender
	if err := l.view.Render(fragment); err != nil {
		return &Error{Stage: stage, Endpoint: l.endpoint, Err: err}
	}

	l.log.Debug("comments loaded", "endpoint", l.endpoint, "bytes", len(fragment))
	return nil
}
