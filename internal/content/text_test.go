package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextProcessor_Normalize(t *testing.T) {
	tp := NewTextProcessor()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already clean", input: "Hello world.", expected: "Hello world."},
		{name: "collapses runs", input: "Hello   world.\n\nNext\tline.", expected: "Hello world. Next line."},
		{name: "trims edges", input: "  padded  ", expected: "padded"},
		{name: "drops control runes", input: "a\x00b\x07c", expected: "abc"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tp.Normalize(tc.input))
		})
	}
}

func TestTextProcessor_SplitChunks(t *testing.T) {
	tp := NewTextProcessor()

	t.Run("short text yields one chunk", func(t *testing.T) {
		chunks := tp.SplitChunks("One. Two! Three?", 4800)
		require.Len(t, chunks, 1)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, "One. Two! Three?", chunks[0].Text)
	})

	t.Run("terminators are kept", func(t *testing.T) {
		chunks := tp.SplitChunks("Is it done? Yes! Good.", 4800)
		require.Len(t, chunks, 1)
		assert.Contains(t, chunks[0].Text, "done?")
		assert.Contains(t, chunks[0].Text, "Yes!")
		assert.Contains(t, chunks[0].Text, "Good.")
	})

	t.Run("sentences stay whole across chunk boundaries", func(t *testing.T) {
		text := "First sentence here. Second sentence here. Third sentence here."
		chunks := tp.SplitChunks(text, 45)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c.Text), 45)
			assert.True(t, strings.HasSuffix(c.Text, "."), "chunk %d should end on a sentence", c.Index)
		}
	})

	t.Run("every chunk stays within byte bound", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 200; i++ {
			b.WriteString("A medium length sentence that repeats itself a few times. ")
		}
		for _, maxBytes := range []int{100, 500, 4800} {
			for _, c := range tp.SplitChunks(b.String(), maxBytes) {
				assert.LessOrEqual(t, len(c.Text), maxBytes)
			}
		}
	})

	t.Run("chunks preserve sentence order", func(t *testing.T) {
		text := "Alpha one. Bravo two. Charlie three. Delta four. Echo five."
		chunks := tp.SplitChunks(text, 25)
		var joined []string
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			joined = append(joined, c.Text)
		}
		assert.Equal(t, text, strings.Join(joined, " "))
	})

	t.Run("pure and restartable", func(t *testing.T) {
		text := "Same input. Same output. Every single time. No hidden state anywhere."
		first := tp.SplitChunks(text, 30)
		second := tp.SplitChunks(text, 30)
		assert.Equal(t, first, second)
	})

	t.Run("oversized sentence is hard split at the bound", func(t *testing.T) {
		long := strings.Repeat("x", 120) + "."
		chunks := tp.SplitChunks(long, 50)
		require.NotEmpty(t, chunks)
		total := 0
		for _, c := range chunks {
			assert.LessOrEqual(t, len(c.Text), 50)
			total += len(c.Text)
		}
		assert.Equal(t, len(long), total)
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		assert.Empty(t, tp.SplitChunks("", 4800))
		assert.Empty(t, tp.SplitChunks("   ", 4800))
	})

	t.Run("bound below widest rune falls back to default", func(t *testing.T) {
		// a 2-byte bound cannot hold the 3-byte "日", the split must
		// still terminate and the default bound applies
		text := "日本語のテキスト。"
		for _, maxBytes := range []int{-1, 0, 1, 2, 3} {
			chunks := tp.SplitChunks(text, maxBytes)
			require.Len(t, chunks, 1)
			assert.Equal(t, text, chunks[0].Text)
			for _, c := range chunks {
				assert.LessOrEqual(t, len(c.Text), MaxChunkBytes)
			}
		}
	})
}

func TestTextProcessor_EstimateDuration(t *testing.T) {
	tp := NewTextProcessor()

	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "empty", text: "", expected: 0},
		{name: "single word rounds up", text: "hello", expected: 1},
		{name: "exactly seven words", text: "one two three four five six seven", expected: 1},
		{name: "eight words rounds up", text: "one two three four five six seven eight", expected: 2},
		{name: "twenty one words", text: strings.Repeat("word ", 21), expected: 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tp.EstimateDuration(tc.text))
		})
	}
}

func TestTextProcessor_TruncateString(t *testing.T) {
	tp := NewTextProcessor()

	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{name: "shorter than max", input: "Hello", maxLength: 10, expected: "Hello"},
		{name: "equal to max", input: "Hello", maxLength: 5, expected: "Hello"},
		{name: "longer than max", input: "Hello, world!", maxLength: 5, expected: "Hello..."},
		{name: "utf-8 not broken", input: "Привет, мир!", maxLength: 5, expected: "Приве..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tp.TruncateString(tc.input, tc.maxLength))
		})
	}
}

func TestTruncateBytes(t *testing.T) {
	assert.Equal(t, "abc", TruncateBytes("abc", 10))
	assert.Equal(t, "ab", TruncateBytes("abcd", 2))
	// 2-byte runes are not split down the middle
	assert.Equal(t, "п", TruncateBytes("пр", 3))
	assert.Equal(t, "", TruncateBytes("пр", 1))
}
