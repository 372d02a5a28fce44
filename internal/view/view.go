// Package view provides the mount point that comment fragments are rendered into.
package view

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultMountID is the id of the element that receives comments.
const DefaultMountID = "comment-section"

// ErrMountPointNotFound is returned when the page has no element with the mount id.
var ErrMountPointNotFound = errors.New("mount point not found")

// CommentView receives a rendered comments fragment.
type CommentView interface {
	Render(fragment string) error
}

// Document is an HTML page whose mount point can be rewritten.
type Document struct {
	mu      sync.Mutex
	doc     *goquery.Document
	mountID string
}

// Parse reads an HTML page. An empty mountID uses DefaultMountID.
func Parse(r io.Reader, mountID string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	if mountID == "" {
		mountID = DefaultMountID
	}
	return &Document{doc: doc, mountID: mountID}, nil
}

// MountID returns the id this document renders into.
func (d *Document) MountID() string {
	return d.mountID
}

// Render replaces the inner markup of the mount point with fragment.
func (d *Document) Render(fragment string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	mount := d.mountPoint()
	if mount.Length() == 0 {
		return fmt.Errorf("%w: #%s", ErrMountPointNotFound, d.mountID)
	}
	mount.SetHtml(fragment)
	return nil
}

// InnerHTML returns the current markup of the mount point.
func (d *Document) InnerHTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mount := d.mountPoint()
	if mount.Length() == 0 {
		return "", fmt.Errorf("%w: #%s", ErrMountPointNotFound, d.mountID)
	}
	return mount.Html()
}

// WriteTo renders the whole page to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cw := &countingWriter{w: w}
	for _, n := range d.doc.Nodes {
		if err := html.Render(cw, n); err != nil {
			return cw.n, fmt.Errorf("rendering page: %w", err)
		}
	}
	return cw.n, nil
}

// mountPoint matches on the id attribute directly so ids that are not
// valid CSS identifiers still resolve. The first match in document order wins.
func (d *Document) mountPoint() *goquery.Selection {
	return d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return id == d.mountID
	}).First()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
