// Package recipe turns a free-text corpus into a structured recipe using
// deterministic pattern and word-list heuristics.
package recipe

// Recipe is the structured result of one extraction.
// Ingredients and Steps are never nil so they encode as JSON arrays.
type Recipe struct {
	Title       string   `json:"title"`
	Servings    string   `json:"servings,omitempty"`
	Time        string   `json:"time,omitempty"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
	Notes       []string `json:"notes,omitempty"`
	Equipment   []string `json:"equipment,omitempty"`
	SourceURL   string   `json:"sourceUrl,omitempty"`
}

// Hints carry caller knowledge that is not in the corpus.
type Hints struct {
	SourceURL string
	// SourceTitle wins over any title found in the corpus.
	SourceTitle string
	// FallbackTitle is used when no title can be found. Defaults to DefaultTitle.
	FallbackTitle string
}

const (
	DefaultTitle = "Untitled Recipe"

	NoteNoIngredients = "No ingredient list was found. Check the video description or paste the ingredients."
	NoteNoSteps       = "No cooking steps were found. Paste the method text to improve the result."

	maxTitleLen       = 80
	maxIngredients    = 40
	maxSteps          = 18
	maxSectionChars   = 3000
	maxSectionLineLen = 120
	maxFoodChars      = 60
	minFragmentLen    = 3
)
