package recipe

// Vocabulary holds the word lists the extractor matches against.
// All entries are lowercase.
type Vocabulary struct {
	// Units are measurement tokens that may follow a quantity, including abbreviations and plurals.
	Units []string
	// ActionVerbs mark a sentence as a cooking step.
	ActionVerbs []string
	// IngredientHeaders open the ingredient section.
	IngredientHeaders []string
	// SectionHeaders close the ingredient section.
	SectionHeaders []string
	// PromoWords mark social media chatter that is never an ingredient.
	PromoWords []string
	// TimeWords disqualify a quantity match as an ingredient.
	TimeWords []string
	// StopWords end the free text of an ingredient match.
	StopWords []string
	Equipment []string
}

// DefaultVocabulary returns the built-in English word lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Units: []string{
			"teaspoons", "teaspoon", "tsp",
			"tablespoons", "tablespoon", "tbsp", "tbs", "tbl",
			"cups", "cup",
			"ounces", "ounce", "oz",
			"pounds", "pound", "lbs", "lb",
			"grams", "gram", "g",
			"kilograms", "kilogram", "kg",
			"milliliters", "milliliter", "millilitres", "millilitre", "ml",
			"liters", "liter", "litres", "litre", "l",
			"cloves", "clove",
			"pinches", "pinch",
			"dashes", "dash",
			"slices", "slice",
		},
		ActionVerbs: []string{
			"add", "mix", "stir", "whisk", "cook", "bake", "fry", "saute", "sauté",
			"boil", "simmer", "chop", "slice", "mince", "combine", "blend", "serve",
			"fold", "pour", "season", "heat", "preheat",
		},
		IngredientHeaders: []string{"ingredients", "ingredient"},
		SectionHeaders: []string{
			"steps", "step", "method", "instructions", "directions",
			"preparation", "notes", "note", "how to make it",
		},
		PromoWords: []string{"subscribe", "like", "follow"},
		TimeWords:  []string{"minutes", "minute", "mins", "seconds", "second", "hours", "hour", "degrees", "°f", "°c"},
		StopWords:  []string{"to", "into", "onto", "in", "on", "for", "until", "then", "over", "with"},
		Equipment: []string{
			"air fryer", "baking sheet", "blender", "bowl", "cast iron", "cutting board",
			"dutch oven", "food processor", "grill", "instant pot", "mixer", "oven",
			"pan", "pot", "saucepan", "sheet pan", "skillet", "slow cooker", "wok", "whisk",
		},
	}
}
