// Package document parses fetched markup into a queryable tree.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// MaxSize caps the markup accepted for a single document.
const MaxSize = 10 * 1024 * 1024

// XPathPrefix marks a selector as an XPath expression instead of CSS.
const XPathPrefix = "xpath:"

var (
	// ErrEmptyDocument is returned when there is no markup to parse.
	ErrEmptyDocument = errors.New("document is empty")
	// ErrTooLarge is returned when the markup exceeds MaxSize.
	ErrTooLarge = fmt.Errorf("document exceeds %d bytes", MaxSize)
)

// Document is a parsed markup tree together with the URL it was fetched from.
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse decodes raw markup and builds a document rooted at baseURL.
func Parse(raw []byte, baseURL string) (*Document, error) {
	return ParseReader(bytes.NewReader(raw), "", baseURL)
}

// ParseReader reads markup from r. contentType is the HTTP Content-Type header
// when known and is used as the first charset hint.
func ParseReader(r io.Reader, contentType, baseURL string) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read markup: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}

	var base *url.URL
	if baseURL != "" {
		base, err = url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
	}

	doc, err := goquery.NewDocumentFromReader(decode(data, contentType))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return &Document{doc: doc, base: base}, nil
}

// decode converts data to UTF-8. A BOM or Content-Type charset wins, then a
// meta declaration, then valid UTF-8 passes through. Anything left goes
// through byte-level detection.
func decode(data []byte, contentType string) io.Reader {
	_, name, certain := charset.DetermineEncoding(data, contentType)
	valid := utf8.Valid(data)
	if certain || (!valid && name != "windows-1252") {
		if name == "utf-8" {
			return bytes.NewReader(data)
		}
		if r, err := charset.NewReaderLabel(name, bytes.NewReader(data)); err == nil {
			return r
		}
	}
	if valid {
		return bytes.NewReader(data)
	}
	if r, err := charset.NewReaderLabel(detectCharset(data), bytes.NewReader(data)); err == nil {
		return r
	}
	return bytes.NewReader(data)
}

func detectCharset(data []byte) string {
	result, err := chardet.NewHtmlDetector().DetectBest(data)
	if err != nil || result == nil {
		return "windows-1252"
	}
	return strings.ToLower(result.Charset)
}

// Root returns the document as a selection.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

// BaseURL returns the URL the document was loaded from, or nil.
func (d *Document) BaseURL() *url.URL {
	return d.base
}

// Resolve turns href into an absolute URL using the document base.
func (d *Document) Resolve(href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	if d.base == nil {
		return ref, nil
	}
	return d.base.ResolveReference(ref), nil
}

// Find evaluates selector against the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return Select(d.doc.Selection, selector)
}

// Select evaluates a CSS selector, or an XPath expression when prefixed with
// XPathPrefix, against the descendants of sel. Results are in document order.
// Invalid selectors match nothing.
func Select(sel *goquery.Selection, selector string) *goquery.Selection {
	expr, ok := strings.CutPrefix(selector, XPathPrefix)
	if !ok {
		return sel.Find(selector)
	}
	var nodes []*html.Node
	for _, top := range sel.Nodes {
		found, err := htmlquery.QueryAll(top, strings.TrimSpace(expr))
		if err != nil {
			return sel.FindNodes()
		}
		nodes = append(nodes, found...)
	}
	return sel.FindNodes(nodes...)
}
