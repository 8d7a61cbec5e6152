package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentExtractor_ExtractPlain(t *testing.T) {
	e := NewDocumentExtractor()

	t.Run("plain text passes through normalized", func(t *testing.T) {
		text := "This is the first sentence of a long enough document.\n\nIt has  multiple   paragraphs and plenty of text to pass the minimum length check."
		doc, err := e.Extract(strings.NewReader(text), false)
		require.NoError(t, err)
		assert.NotContains(t, doc.Text, "\n")
		assert.NotContains(t, doc.Text, "  ")
		assert.Contains(t, doc.Text, "first sentence")
	})

	t.Run("too short document rejected", func(t *testing.T) {
		_, err := e.Extract(strings.NewReader("tiny"), false)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})

	t.Run("empty document rejected", func(t *testing.T) {
		_, err := e.Extract(strings.NewReader(""), false)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}

func TestDocumentExtractor_ExtractHTML(t *testing.T) {
	e := NewDocumentExtractor()

	t.Run("prefers article container over stray paragraphs", func(t *testing.T) {
		html := `<html><head><title>My Article</title></head><body>
<p>This is a navigation breadcrumb paragraph that should be skipped entirely by extraction.</p>
<article>
<p>The real article body starts here and continues with enough words to matter.</p>
<p>A second paragraph of genuine article content keeps the story going for a while.</p>
</article>
</body></html>`
		doc, err := e.Extract(strings.NewReader(html), true)
		require.NoError(t, err)
		assert.Equal(t, "My Article", doc.Title)
		assert.Contains(t, doc.Text, "real article body")
		assert.Contains(t, doc.Text, "second paragraph")
		assert.NotContains(t, doc.Text, "breadcrumb")
	})

	t.Run("falls back to long paragraphs without containers", func(t *testing.T) {
		html := `<html><head><title>Loose</title></head><body>
<p>ok</p>
<p>This paragraph is comfortably longer than the minimum and should be collected as content by the fallback path of the extractor.</p>
</body></html>`
		doc, err := e.Extract(strings.NewReader(html), true)
		require.NoError(t, err)
		assert.Contains(t, doc.Text, "comfortably longer")
		assert.NotContains(t, doc.Text, "ok ")
	})

	t.Run("html with no text rejected", func(t *testing.T) {
		_, err := e.Extract(strings.NewReader("<html><body><div>nope</div></body></html>"), true)
		assert.ErrorIs(t, err, ErrEmptyDocument)
	})
}
