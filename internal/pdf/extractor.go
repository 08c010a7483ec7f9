package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	ltpdf "github.com/ledongthuc/pdf"
)

// ErrUnsupportedType indicates content that is not a PDF; callers should
// surface it as an unsupported-attachment condition, not a failure.
var ErrUnsupportedType = errors.New("unsupported attachment type")

// pdfMagic is the header every PDF starts with.
var pdfMagic = []byte("%PDF-")

// Result is the outcome of a text extraction. Success is false when no
// page yielded text; Reason then explains why.
type Result struct {
	// Text is the concatenated page text, pages separated by form feeds.
	Text string
	// Pages is the page count of the document.
	Pages int
	// PageErrors lists pages that were skipped, as "page N: cause".
	PageErrors []string
	Success    bool
	Reason     string
}

// ExtractText extracts plain text from PDF content. A mime type other than
// a PDF one returns ErrUnsupportedType; corrupt documents return a Result
// with Success false rather than an error.
func ExtractText(data []byte, mimeType string) (*Result, error) {
	if !IsPDF(data, mimeType) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	if len(data) == 0 {
		return &Result{Reason: "empty attachment content"}, nil
	}
	return extract(data), nil
}

// IsPDF reports whether the content looks like a PDF, by mime type or by
// the file header. Graph sometimes labels PDFs application/octet-stream.
func IsPDF(data []byte, mimeType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])) {
	case "application/pdf", "application/x-pdf":
		return true
	}
	return bytes.HasPrefix(data, pdfMagic)
}

// extract walks the document page by page. The parser is known to panic on
// some malformed inputs, so the whole walk runs under a recover.
func extract(data []byte) (result *Result) {
	result = &Result{}
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Reason = fmt.Sprintf("pdf parser failed: %v", r)
		}
	}()

	reader, err := ltpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.Reason = fmt.Sprintf("unreadable pdf: %v", err)
		return result
	}

	result.Pages = reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= result.Pages; i++ {
		text, err := extractPage(reader, i)
		if err != nil {
			result.PageErrors = append(result.PageErrors, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\f')
		}
		sb.WriteString(text)
	}

	result.Text = sb.String()
	result.Success = result.Text != ""
	if !result.Success {
		if len(result.PageErrors) > 0 {
			result.Reason = "no page yielded text"
		} else {
			result.Reason = "document contains no extractable text, it may be scanned images"
		}
	}
	return result
}

// extractPage isolates per-page panics so one bad page does not abort the
// remaining ones.
func extractPage(reader *ltpdf.Reader, num int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", errors.New("missing page object")
	}
	return page.GetPlainText(nil)
}
