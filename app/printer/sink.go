package printer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ComandaPOS/app/document"

	"github.com/pkg/browser"
)

// DocumentSink opens a print surface for a rendered document
type DocumentSink interface {
	Show(ctx context.Context, doc document.Document) error
}

// BrowserSink writes the document to a temporary file and opens it in the
// system browser, which prints it on load.
type BrowserSink struct {
	open func(r io.Reader) error
}

// NewBrowserSink creates a sink backed by the default browser
func NewBrowserSink() *BrowserSink {
	return &BrowserSink{open: browser.OpenReader}
}

// Show opens the document
func (s *BrowserSink) Show(ctx context.Context, doc document.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.open(strings.NewReader(doc.HTML)); err != nil {
		return fmt.Errorf("failed to open print window for %s: %w", doc.Title, err)
	}
	return nil
}
