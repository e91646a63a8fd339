// Package extract converts feedback attachments into plain text so
// they can be normalized like any other payload.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

const (
	maxPDFPages     = 100
	maxExtractedLen = 256 << 10 // 256KB
)

// FromFile reads path and extracts its text content based on the file
// extension.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return FromBytes(filepath.Ext(path), data)
}

// FromBytes extracts plain text from data. ext is the file extension
// including the dot; matching is case-insensitive.
func FromBytes(ext string, data []byte) (string, error) {
	switch strings.ToLower(ext) {
	case ".txt", ".md", ".markdown", ".log":
		return clamp(strings.TrimSpace(string(data))), nil
	case ".html", ".htm":
		return htmlText(data)
	case ".pdf":
		return pdfText(data)
	default:
		return "", fmt.Errorf("unsupported attachment type %q", ext)
	}
}

func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	skip := map[string]bool{
		"script": true, "style": true, "nav": true,
		"header": true, "footer": true, "noscript": true,
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skip[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "h1", "h2", "h3", "h4", "li", "br", "tr":
				sb.WriteString("\n")
			}
		}
	}
	walk(doc)

	text := collapseSpace(sb.String())
	if text == "" {
		return "", errors.New("no text content in html")
	}
	return clamp(text), nil
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	pages := r.NumPage()
	if pages == 0 {
		return "", errors.New("pdf has no pages")
	}
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages that fail extraction are skipped, not fatal.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
		if sb.Len() > maxExtractedLen {
			break
		}
	}

	text := collapseSpace(sb.String())
	if text == "" {
		return "", errors.New("no text content in pdf")
	}
	return clamp(text), nil
}

// collapseSpace squeezes runs of whitespace into single spaces while
// keeping line breaks.
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func clamp(s string) string {
	if len(s) <= maxExtractedLen {
		return s
	}
	return strings.ToValidUTF8(s[:maxExtractedLen], "")
}
