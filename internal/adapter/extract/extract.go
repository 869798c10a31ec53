// Package extract turns uploaded files and web pages into plain text for ingestion.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/arturoeanton/helpdesk-rag/internal/port"
)

const maxPageBytes = 10 << 20

// Extractor implements port.TextExtractor.
type Extractor struct {
	httpClient *http.Client
}

// New creates an extractor. A nil client uses http.DefaultClient.
func New(client *http.Client) *Extractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &Extractor{httpClient: client}
}

// ExtractFile reads PDFs and text/* files. Any other type yields its original file name.
func (e *Extractor) ExtractFile(_ context.Context, f port.UploadedFile) (string, error) {
	switch {
	case f.MimeType == "application/pdf":
		return pdfText(f.Path)
	case strings.HasPrefix(f.MimeType, "text/"):
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.OriginalName, err)
		}
		return string(data), nil
	default:
		return f.OriginalName, nil
	}
}

func pdfText(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("read pdf buffer: %w", err)
	}
	return buf.String(), nil
}

// ExtractURL fetches url and returns the text of its <body>.
func (e *Extractor) ExtractURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", port.ErrUnsupportedContent, err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	return BodyText(io.LimitReader(resp.Body, maxPageBytes))
}

// BodyText returns the text content of the <body> element, skipping scripts and styles.
func BodyText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	body := findElement(doc, "body")
	if body == nil {
		return "", nil
	}

	var parts []string
	collectText(body, &parts)
	return strings.Join(parts, " "), nil
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, parts *[]string) {
	switch {
	case n.Type == html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript"):
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

var _ port.TextExtractor = (*Extractor)(nil)
