package validation

import (
	"fmt"
	"strings"
)

// Confidence represents certainty in the validation result
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ContentValidationResult contains the outcome of validation
type ContentValidationResult struct {
	IsValid    bool       `json:"is_valid"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
	Keywords   []string   `json:"keywords,omitempty"`
	Missing    []string   `json:"missing"`
}

// recipeKeywords for quick heuristic validation
var recipeKeywords = []string{
	// Cooking verbs
	"bake", "cook", "fry", "boil", "grill", "roast", "saute", "sauté", "simmer", "steam",
	"mix", "whisk", "stir", "blend", "chop", "dice", "slice", "preheat", "prepare",
	// Ingredients indicators
	"ingredient", "cup", "tablespoon", "teaspoon", "tbsp", "tsp", "ounce", "oz", "gram", "ml", "liter",
	// Recipe terms
	"recipe", "dish", "meal", "serve", "serving", "minutes", "hours", "temperature", "degrees",
	// Common ingredients
	"flour", "sugar", "salt", "pepper", "oil", "butter", "egg", "milk", "water", "garlic", "onion",
}

// QuickSignal reports whether a corpus looks like it is about a recipe.
// It is diagnostic only and never gates extraction.
func QuickSignal(corpus string) ContentValidationResult {
	content := strings.TrimSpace(corpus)
	if content == "" {
		return ContentValidationResult{
			IsValid:    false,
			Confidence: ConfidenceHigh,
			Reason:     "No content provided",
			Missing:    []string{"content"},
		}
	}

	lowerContent := strings.ToLower(content)
	var found []string
	for _, kw := range recipeKeywords {
		if strings.Contains(lowerContent, kw) {
			found = append(found, kw)
		}
	}

	switch {
	case len(found) == 0:
		return ContentValidationResult{
			IsValid:    true,
			Confidence: ConfidenceLow,
			Reason:     "No common recipe keywords found",
			Missing:    []string{"recipe keywords"},
		}
	case len(found) < 3:
		return ContentValidationResult{
			IsValid:    true,
			Confidence: ConfidenceMedium,
			Reason:     fmt.Sprintf("Only %d recipe keywords found", len(found)),
			Keywords:   found,
			Missing:    []string{},
		}
	}

	return ContentValidationResult{
		IsValid:    true,
		Confidence: ConfidenceHigh,
		Reason:     "Content passed quick validation",
		Keywords:   found,
		Missing:    []string{},
	}
}
