package content

// content processing limits
const (
	// MaxChunkBytes bounds the byte size of a single generation chunk
	MaxChunkBytes = 4800

	// MinDocumentLength is the shortest document worth a podcast
	MinDocumentLength = 100

	// DisplayTruncateLength limits text shown in logs
	DisplayTruncateLength = 50
)

// speech pacing
const (
	// WordsPerSecond is the assumed narration pace used for the duration
	// estimate; the estimate never decodes actual audio
	WordsPerSecond = 7
)

// min paragraph length considered real article content during extraction
const minParagraphLength = 50
