package document

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	fitz "github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// DefaultMaxPages caps how many PDF pages are read per document
const DefaultMaxPages = 200

// TextExtractor pulls plain text out of stored permit documents. PDFs are
// read page by page with mupdf, text files are read as is.
type TextExtractor struct {
	maxPages int
	logger   *zap.Logger
}

// NewTextExtractor creates a new TextExtractor
func NewTextExtractor(maxPages int, logger *zap.Logger) *TextExtractor {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &TextExtractor{
		maxPages: maxPages,
		logger:   logger,
	}
}

// Extract returns the text of the file at fullPath. Content types that
// carry no extractable text return port.ErrUnsupportedContent.
func (e *TextExtractor) Extract(ctx context.Context, fullPath, contentType string) (string, error) {
	switch {
	case contentType == "application/pdf":
		return e.extractPDF(ctx, fullPath)
	case strings.HasPrefix(contentType, "text/"):
		return e.extractText(fullPath)
	}
	return "", fmt.Errorf("%w: %s", port.ErrUnsupportedContent, contentType)
}

func (e *TextExtractor) extractPDF(ctx context.Context, fullPath string) (string, error) {
	doc, err := fitz.New(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > e.maxPages {
		e.logger.Warn("PDF truncated",
			zap.String("path", fullPath),
			zap.Int("pages", pageCount),
			zap.Int("max_pages", e.maxPages))
		pageCount = e.maxPages
	}

	var b strings.Builder
	for page := 0; page < pageCount; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(page)
		if err != nil {
			e.logger.Warn("Failed to extract page text",
				zap.String("path", fullPath),
				zap.Int("page", page),
				zap.Error(err))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	e.logger.Debug("Extracted PDF text",
		zap.String("path", fullPath),
		zap.Int("pages", pageCount),
		zap.Int("chars", b.Len()))
	return b.String(), nil
}

func (e *TextExtractor) extractText(fullPath string) (string, error) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text file is not valid UTF-8", port.ErrUnsupportedContent)
	}
	return strings.TrimSpace(string(data)), nil
}

var _ port.TextExtractor = (*TextExtractor)(nil)
