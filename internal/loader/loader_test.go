package loader

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/thorsell/comments/internal/client"
	"github.com/thorsell/comments/internal/view"
)

const page = `<html><body><div id="comment-section"><p>static</p></div></body></html>`

func TestLoadRendersFragment(t *testing.T) {
	doc := parsePage(t, page)
	logger, logs := bufferLogger()

	l := New(staticFetcher("<p>hi</p>"), doc, "/api/comment", logger)
	if err := <-l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	assertInner(t, doc, "<p>hi</p>")
	if strings.Contains(logs.String(), DiagnosticMessage) {
		t.Errorf("unexpected diagnostic: %s", logs.String())
	}
}

func TestLoadFetchErrorLeavesPageUnchanged(t *testing.T) {
	doc := parsePage(t, page)
	logger, logs := bufferLogger()
	netErr := errors.New("connection refused")

	l := New(FetcherFunc(func(context.Context, string) (string, error) {
		return "", netErr
	}), doc, "/api/comment", logger)

	err := <-l.Load(context.Background())
	if !errors.Is(err, netErr) {
		t.Fatalf("error = %v, want %v", err, netErr)
	}
	var loadErr *Error
	if !errors.As(err, &loadErr) || loadErr.Stage != StageFetch {
		t.Errorf("error = %#v, want fetch stage", err)
	}

	assertInner(t, doc, "<p>static</p>")

	out := logs.String()
	if n := strings.Count(out, DiagnosticMessage); n != 1 {
		t.Errorf("got %d diagnostics, want 1: %s", n, out)
	}
	if !strings.Contains(out, "connection refused") {
		t.Errorf("diagnostic missing error detail: %s", out)
	}
}

func TestLoadEmptyFragment(t *testing.T) {
	doc := parsePage(t, page)
	logger, logs := bufferLogger()

	l := New(staticFetcher(""), doc, "/api/comment", logger)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	assertInner(t, doc, "")
	if strings.Contains(logs.String(), DiagnosticMessage) {
		t.Errorf("unexpected diagnostic: %s", logs.String())
	}
}

func TestLoadMissingMountPointDoesNotPanic(t *testing.T) {
	doc := parsePage(t, `<html><body><div id="elsewhere"></div></body></html>`)
	logger, logs := bufferLogger()

	l := New(staticFetcher("<p>hi</p>"), doc, "/api/comment", logger)
	err := <-l.Load(context.Background())
	if !errors.Is(err, view.ErrMountPointNotFound) {
		t.Fatalf("error = %v, want ErrMountPointNotFound", err)
	}
	var loadErr *Error
	if !errors.As(err, &loadErr) || loadErr.Stage != StageRender {
		t.Errorf("error = %#v, want render stage", err)
	}
	if n := strings.Count(logs.String(), DiagnosticMessage); n != 1 {
		t.Errorf("got %d diagnostics, want 1", n)
	}
}

func TestLoadRecoversPanickingView(t *testing.T) {
	logger, logs := bufferLogger()

	l := New(staticFetcher("<p>hi</p>"), panicView{}, "/api/comment", logger)
	err := <-l.Load(context.Background())
	if err == nil {
		t.Fatal("expected error from panicking view")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %q, want panic value", err.Error())
	}
	if n := strings.Count(logs.String(), DiagnosticMessage); n != 1 {
		t.Errorf("got %d diagnostics, want 1", n)
	}
}

func TestLoadTwiceIsIdempotent(t *testing.T) {
	once := parsePage(t, page)
	twice := parsePage(t, page)
	logger, _ := bufferLogger()

	if err := New(staticFetcher("<p>hi</p>"), once, "/api/comment", logger).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	l := New(staticFetcher("<p>hi</p>"), twice, "/api/comment", logger)
	for i := 0; i < 2; i++ {
		if err := <-l.Load(context.Background()); err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
	}

	a, _ := once.InnerHTML()
	b, _ := twice.InnerHTML()
	if a != b {
		t.Errorf("once = %q, twice = %q", a, b)
	}
}

func TestLoadConcurrentLastWriterWins(t *testing.T) {
	doc := parsePage(t, page)
	logger, _ := bufferLogger()

	fragments := []string{"<p>a</p>", "<p>b</p>"}
	var wg sync.WaitGroup
	for _, f := range fragments {
		wg.Add(1)
		done := New(staticFetcher(f), doc, "/api/comment", logger).Load(context.Background())
		go func() {
			defer wg.Done()
			if err := <-done; err != nil {
				t.Errorf("load: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := doc.InnerHTML()
	if err != nil {
		t.Fatalf("inner html: %v", err)
	}
	if got != fragments[0] && got != fragments[1] {
		t.Errorf("inner html = %q, want one of %q", got, fragments)
	}
}

func TestLoadPassesConfiguredEndpoint(t *testing.T) {
	doc := parsePage(t, page)
	logger, _ := bufferLogger()

	var seen string
	l := New(FetcherFunc(func(_ context.Context, endpoint string) (string, error) {
		seen = endpoint
		return "", nil
	}), doc, "/api/comment", logger)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if seen != "/api/comment" {
		t.Errorf("endpoint = %q, want /api/comment", seen)
	}
}

func TestLoadWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/comment" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<ul><li>first!</li></ul>`))
	}))
	defer srv.Close()

	doc := parsePage(t, page)
	logger, _ := bufferLogger()

	l := New(client.New(srv.URL, client.Options{}), doc, "/api/comment", logger)
	if err := <-l.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	assertInner(t, doc, "<ul><li>first!</li></ul>")
}

func TestLoadRendersErrorPageWithoutStrictStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<h1>Not Found</h1>"))
	}))
	defer srv.Close()

	doc := parsePage(t, page)
	logger, _ := bufferLogger()

	l := New(client.New(srv.URL, client.Options{}), doc, "/api/comment", logger)
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	assertInner(t, doc, "<h1>Not Found</h1>")

	strictDoc := parsePage(t, page)
	strict := New(client.New(srv.URL, client.Options{StrictStatus: true}), strictDoc, "/api/comment", logger)
	if err := strict.Run(context.Background()); err == nil {
		t.Fatal("expected error in strict mode")
	}
	assertInner(t, strictDoc, "<p>static</p>")
}

func TestNewDefaultsLogger(t *testing.T) {
	l := New(staticFetcher(""), panicView{}, "/api/comment", nil)
	if l.log == nil {
		t.Fatal("expected default logger")
	}
}

type panicView struct{}

func (panicView) Render(string) error {
	panic("boom")
}

func staticFetcher(text string) Fetcher {
	return FetcherFunc(func(context.Context, string) (string, error) {
		return text, nil
	})
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func parsePage(t *testing.T, html string) *view.Document {
	t.Helper()
	d, err := view.Parse(strings.NewReader(html), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func assertInner(t *testing.T, d *view.Document, want string) {
	t.Helper()
	got, err := d.InnerHTML()
	if err != nil {
		t.Fatalf("inner html: %v", err)
	}
	if got != want {
		t.Errorf("inner html = %q, want %q", got, want)
	}
}
