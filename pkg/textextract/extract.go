// Package textextract pulls plain text out of uploaded knowledge files.
package textextract

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for file types outside the allow-list.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SupportedFormats is the upload allow-list.
func SupportedFormats() []string {
	return []string{"txt", "md", "pdf", "docx"}
}

// IsSupported reports whether format (an extension, with or without the
// leading dot) can be extracted.
func IsSupported(format string) bool {
	format = normalizeFormat(format)
	for _, f := range SupportedFormats() {
		if f == format {
			return true
		}
	}
	return false
}

// Extract returns the plain text of a document. The caller feeds the raw
// bytes; chunking and whitespace cleanup happen downstream.
func Extract(data io.ReaderAt, size int64, format string) (string, error) {
	switch normalizeFormat(format) {
	case "txt", "md":
		return extractPlain(data, size)
	case "pdf":
		return extractPDF(data, size)
	case "docx":
		return extractDOCX(data, size)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func normalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

func extractPlain(data io.ReaderAt, size int64) (string, error) {
	buf := make([]byte, size)
	if _, err := data.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", fmt.Errorf("read text file: %w", err)
	}
	return string(bytes.TrimSpace(buf)), nil
}

func extractPDF(data io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || text == "" {
			continue
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n\n"), nil
}

func extractDOCX(data io.ReaderAt, size int64) (string, error) {
	reader, err := zip.NewReader(data, size)
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}

	for _, f := range reader.File {
		if filepath.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read document.xml: %w", err)
		}
		return stripXMLTags(string(content)), nil
	}

	return "", fmt.Errorf("document.xml not found in DOCX archive")
}

// stripXMLTags drops markup and collapses the remaining text runs. Paragraph
// boundaries inside word processing XML are lost; the chunker's whitespace
// normalization handles the rest.
func stripXMLTags(s string) string {
	var out strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			out.WriteRune(' ')
		case !inTag:
			out.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(out.String()), " ")
}
