// Package pdftext extracts plain text from PDF bank statements, one string
// per page.
package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrEmpty is returned for zero-length input.
	ErrEmpty = errors.New("empty file")
	// ErrNotPDF is returned when the input does not start with a PDF header.
	ErrNotPDF = errors.New("file is not a PDF document")
	// ErrEncrypted is returned for password-protected documents.
	ErrEncrypted = errors.New("PDF is password-protected, please decrypt it first")
	// ErrUnreadable is returned when the document structure cannot be read.
	ErrUnreadable = errors.New("PDF could not be read")
)

// pdfMagic opens every PDF file; some producers put a few bytes of junk
// before it, so the header is searched for in the first kilobyte.
var pdfMagic = []byte("%PDF-")

const headerWindow = 1024

// Source turns a PDF document into per-page text.
type Source interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) ([]string, error)
}

// Extractor is the Source backed by github.com/ledongthuc/pdf.
type Extractor struct{}

// NewExtractor creates a PDF text extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// IsPDF reports whether data carries a PDF header.
func IsPDF(data []byte) bool {
	if len(data) > headerWindow {
		data = data[:headerWindow]
	}
	return bytes.Contains(data, pdfMagic)
}

// ExtractBytes is a convenience wrapper over Extract for in-memory input.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte) ([]string, error) {
	return e.Extract(ctx, bytes.NewReader(data), int64(len(data)))
}

// Extract validates the header, rejects encrypted documents and returns the
// text of every page in order. Pages are rebuilt row by row so that the
// columns of a statement line stay on one line.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (pages []string, err error) {
	_, span := otel.Tracer("pdftext").Start(ctx, "pdftext.Extract")
	defer span.End()
	span.SetAttributes(attribute.Int64("pdf.size_bytes", size))

	if size <= 0 {
		return nil, ErrEmpty
	}

	header := make([]byte, min(size, headerWindow))
	if _, err := r.ReadAt(header, 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if !IsPDF(header) {
		return nil, ErrNotPDF
	}

	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return nil, ErrEncrypted
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	numPages := reader.NumPage()
	span.SetAttributes(attribute.Int("pdf.pages", numPages))
	if numPages == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrUnreadable)
	}

	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, pageText(page))
	}

	if totalTextLen(pages) == 0 {
		if text := plainText(reader); text != "" {
			return []string{text}, nil
		}
	}
	return pages, nil
}

// pageText joins the words of each row with single spaces, falling back to
// the page's plain text when row grouping fails.
func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n")
	}

	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	text, err := page.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func plainText(r *pdf.Reader) string {
	rd, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(rd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}

// JoinPages concatenates page texts into the full statement text, each page
// terminated by a newline.
func JoinPages(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}
