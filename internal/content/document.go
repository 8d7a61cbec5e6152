package content

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrEmptyDocument is returned when an uploaded document has no usable text.
var ErrEmptyDocument = errors.New("document contains no usable text")

// Document is the extracted, normalized source text of one upload.
type Document struct {
	Title string
	Text  string
}

// DocumentExtractor turns an uploaded document into normalized text ready
// for segmentation.
type DocumentExtractor struct {
	tp *TextProcessor
}

// NewDocumentExtractor creates a new document extractor
func NewDocumentExtractor() *DocumentExtractor {
	return &DocumentExtractor{tp: NewTextProcessor()}
}

// Extract reads the document and returns its normalized text. HTML documents
// go through container-aware extraction; anything else is treated as plain
// text. Documents shorter than MinDocumentLength are rejected before any
// external call is made.
func (e *DocumentExtractor) Extract(r io.Reader, html bool) (Document, error) {
	var doc Document
	var err error
	if html {
		doc, err = e.extractHTML(r)
	} else {
		doc, err = e.extractPlain(r)
	}
	if err != nil {
		return Document{}, err
	}

	doc.Text = e.tp.Normalize(doc.Text)
	if len(doc.Text) < MinDocumentLength {
		return Document{}, ErrEmptyDocument
	}
	return doc, nil
}

func (e *DocumentExtractor) extractPlain(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	return Document{Text: string(data)}, nil
}

func (e *DocumentExtractor) extractHTML(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	res := Document{Title: strings.TrimSpace(doc.Find("title").Text())}

	var text strings.Builder

	// first try to find content in common article containers
	article := doc.Find("article, .article, .post, .content, main")
	if article.Length() > 0 {
		article.Find("p").Each(func(_ int, s *goquery.Selection) {
			text.WriteString(s.Text())
			text.WriteString("\n\n")
		})
	} else {
		// fallback to all paragraphs, skipping short ones which are
		// likely navigation or boilerplate
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			if len(s.Text()) > minParagraphLength {
				text.WriteString(s.Text())
				text.WriteString("\n\n")
			}
		})
	}

	res.Text = text.String()
	return res, nil
}
