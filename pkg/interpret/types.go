package interpret

// Language selects the prompt and message texts.
type Language string

const (
	// English is the primary language.
	English Language = "en"

	// Urdu is the secondary language.
	Urdu Language = "ur"
)

// ParseLanguage maps a language code to a Language.
// Unknown codes fall back to English.
func ParseLanguage(code string) Language {
	if Language(code) == Urdu {
		return Urdu
	}
	return English
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == English || l == Urdu
}

// Request is a single interpretation request.
type Request struct {
	// Dream is the free-text dream description.
	Dream string

	// Language selects the prompt language. Empty or unknown values use English.
	Language Language
}

// Chunk is one incremental fragment of model output.
type Chunk struct {
	Text  string
	Final bool
}

// Result is the complete interpretation text.
type Result struct {
	// Text is the ordered concatenation of every chunk delivered for the call.
	Text string

	// Chunks is the number of chunks delivered.
	Chunks int
}

// generateRequest is the body of POST /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse is one line of a streamed response, or the whole body of
// a non-streamed one. Response is a pointer so a missing key can be told
// apart from an empty fragment.
type generateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

// tagsResponse is the body of GET /api/tags.
type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one model offered by the upstream server.
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
	Size       int64  `json:"size,omitempty"`
}
