package recipe

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExtractor() *Extractor {
	return NewExtractor(DefaultVocabulary())
}

func TestExtract_GarlicButterShrimp(t *testing.T) {
	corpus := "TITLE: Garlic Butter Shrimp\n\nSOURCE TEXT:\nAdd 2 tbsp butter to a hot pan. Add 1 lb shrimp and cook for 3 minutes. Season with salt."

	r := newTestExtractor().Extract(corpus, Hints{SourceURL: "https://youtu.be/abc"})

	assert.Equal(t, "Garlic Butter Shrimp", r.Title)
	assert.Equal(t, []string{"2 tbsp butter", "1 lb shrimp"}, r.Ingredients)
	for _, ing := range r.Ingredients {
		assert.NotContains(t, ing, "minutes")
	}
	assert.Equal(t, []string{
		"1. Add 2 tbsp butter to a hot pan.",
		"2. Add 1 lb shrimp and cook for 3 minutes.",
		"3. Season with salt.",
	}, r.Steps)
	assert.Nil(t, r.Notes)
	assert.Equal(t, []string{"pan"}, r.Equipment)
	assert.Equal(t, "https://youtu.be/abc", r.SourceURL)
}

func TestExtract_IngredientSection(t *testing.T) {
	corpus := strings.Join([]string{
		"TITLE: Lemon Pasta",
		"",
		"PASTED TEXT:",
		"Ingredients:",
		"- 200g spaghetti",
		"- 2 cloves garlic, minced",
		"- 1 lemon",
		"- Follow me for more!",
		"- ",
		"",
		"Method:",
		"1. Boil the spaghetti in salted water for 10 minutes.",
		"2. Heat olive oil in a skillet and add the garlic.",
		"3. Toss with lemon juice and serve.",
		"Serves 2. Total time: 15 minutes.",
	}, "\n")

	r := newTestExtractor().Extract(corpus, Hints{})

	assert.Equal(t, "Lemon Pasta", r.Title)
	assert.Equal(t, []string{"200g spaghetti", "2 cloves garlic, minced", "1 lemon"}, r.Ingredients)
	assert.Equal(t, []string{
		"1. Boil the spaghetti in salted water for 10 minutes.",
		"2. Heat olive oil in a skillet and add the garlic.",
		"3. Toss with lemon juice and serve.",
	}, r.Steps)
	assert.Equal(t, "2", r.Servings)
	assert.Equal(t, "15 minutes", r.Time)
	assert.Equal(t, []string{"skillet"}, r.Equipment)
	assert.Empty(t, r.SourceURL)
}

func TestExtract_SectionStopsAtHeaderAndSkipsLongLines(t *testing.T) {
	corpus := "Ingredients\n" +
		"* 1 cup rice\n" +
		strings.Repeat("very long line ", 10) + "\n" +
		"1234\n" +
		"Steps:\n" +
		"rinse the rice\n"

	got := newTestExtractor().sectionIngredients(corpus)

	assert.Equal(t, []string{"1 cup rice"}, got)
}

func TestExtract_InlineIngredientHeader(t *testing.T) {
	got := newTestExtractor().sectionIngredients("Here is what you need. Ingredients: 3 eggs\nthen whisk")

	assert.Equal(t, []string{"3 eggs", "then whisk"}, got)
}

func TestExtract_Title(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		name   string
		corpus string
		hints  Hints
		want   string
	}{
		{
			name:   "hint wins",
			corpus: "TITLE: Marker Title\n\nSOURCE TEXT:\nMix it.",
			hints:  Hints{SourceTitle: "  Hinted   Title "},
			want:   "Hinted Title",
		},
		{
			name:   "marker",
			corpus: "TITLE: Marker Title\n\nSOURCE TEXT:\nMix it.",
			want:   "Marker Title",
		},
		{
			name:   "first sentence",
			corpus: "SOURCE TEXT:\nCrispy tofu bowls are the best. Fry the tofu.",
			want:   "Crispy tofu bowls are the best.",
		},
		{
			name:   "first sentence truncated",
			corpus: strings.Repeat("word ", 30),
			want:   strings.TrimSpace(strings.Repeat("word ", 16)),
		},
		{
			name:   "caller fallback",
			corpus: "",
			hints:  Hints{FallbackTitle: "My Video"},
			want:   "My Video",
		},
		{
			name:   "default",
			corpus: " ",
			want:   DefaultTitle,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := e.Extract(tt.corpus, tt.hints)
			assert.Equal(t, tt.want, r.Title)
			assert.LessOrEqual(t, len([]rune(r.Title)), maxTitleLen)
		})
	}
}

func TestExtract_LowSignal(t *testing.T) {
	e := newTestExtractor()

	r := e.Extract("Wow this looks amazing", Hints{})
	assert.Empty(t, r.Ingredients)
	assert.NotNil(t, r.Ingredients)
	assert.Equal(t, []string{"1. Wow this looks amazing"}, r.Steps)
	assert.Equal(t, []string{NoteNoIngredients}, r.Notes)

	r = e.Extract("", Hints{})
	assert.NotNil(t, r.Ingredients)
	assert.NotNil(t, r.Steps)
	assert.Empty(t, r.Steps)
	assert.Equal(t, []string{NoteNoIngredients, NoteNoSteps}, r.Notes)
	assert.Equal(t, DefaultTitle, r.Title)
}

func TestExtract_Segmentation(t *testing.T) {
	got := segment("First line\nsecond part! Really? ok • Chop onions – Dice garlic - x")

	assert.Equal(t, []string{
		"First line second part!",
		"Really?",
		"Chop onions",
		"Dice garlic",
	}, got)
}

func TestExtract_SegmentationGluedBullets(t *testing.T) {
	assert.Equal(t, []string{"Chop onions", "Dice garlic", "Stir-fry the rest"},
		segment("•Chop onions•Dice garlic•Stir-fry the rest"))
}

func TestExtract_GluedBulletList(t *testing.T) {
	r := newTestExtractor().Extract("SOURCE TEXT:\nIngredients\n•2 cups flour•1 egg\nSteps\nMix it.", Hints{})

	assert.Equal(t, []string{"2 cups flour", "1 egg"}, r.Ingredients)
	assert.NotContains(t, r.Title, "•")
	require.NotEmpty(t, r.Steps)
	for _, step := range r.Steps {
		assert.NotContains(t, step, "•")
		assert.NotContains(t, step, "flour")
	}
}

func TestExtract_AccentedVerb(t *testing.T) {
	r := newTestExtractor().Extract("Sauté the onions. They smell great. Fryer not a verb here.", Hints{})

	assert.Equal(t, []string{"1. Sauté the onions."}, r.Steps)
}

func TestExtract_StepsDeduplicated(t *testing.T) {
	r := newTestExtractor().Extract("Stir well. Stir   well. stir well. Serve hot.", Hints{})

	assert.Equal(t, []string{"1. Stir well.", "2. Serve hot."}, r.Steps)
}

func TestExtract_Caps(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "Add 2 cups %s. ", word(i))
	}

	r := newTestExtractor().Extract(sb.String(), Hints{})

	assert.Len(t, r.Ingredients, maxIngredients)
	assert.Len(t, r.Steps, maxSteps)
	assert.Equal(t, "2 cups "+word(0), r.Ingredients[0])
}

func TestPatternIngredients(t *testing.T) {
	e := newTestExtractor()

	tests := []struct {
		text string
		want []string
	}{
		{"Use 1/2 cup of sugar.", []string{"1/2 cup sugar"}},
		{"Use 1 1/2 cups flour and 2 eggs.", []string{"1 1/2 cups flour", "2 eggs"}},
		{"Grab 2-3 cloves garlic.", []string{"2-3 cloves garlic"}},
		{"Cut into 4 x 2 slices bread.", []string{"4 x 2 slices bread"}},
		{"Add ½ tsp salt then stir.", []string{"½ tsp salt"}},
		{"Bake at 180 degrees for 25 minutes.", nil},
		{"Preheat to 350°F now.", nil},
		{"Step 1 add the pasta.", nil},
		{"There are 3 in a row.", nil},
		{"Model X5 beats v2.0 easily", nil},
		{"Peel 2.5kg potatoes.", []string{"2.5kg potatoes"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, e.patternIngredients(tt.text))
		})
	}
}

func TestExtract_Invariants(t *testing.T) {
	e := newTestExtractor()
	corpora := []string{
		"",
		"TITLE: x",
		"Add salt. Add salt. add  salt. - Add salt",
		"Ingredients:\n- 2 eggs\n- 2 eggs\n- 2 Eggs\nMethod:\nWhisk eggs. Whisk eggs.",
		"Add 2 tbsp butter. Add 2 tbsp butter to the pan. Mix 3 cups flour with 1 cup water and stir for 2 minutes.",
		strings.Repeat("Chop 1 onion. ", 30),
		"!!! ... ??? - - •",
	}

	for i, corpus := range corpora {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			first := e.Extract(corpus, Hints{SourceURL: "https://example.com"})
			second := e.Extract(corpus, Hints{SourceURL: "https://example.com"})
			assert.Equal(t, first, second)

			assertUnique(t, first.Ingredients)

			raw := make([]string, 0, len(first.Steps))
			for n, step := range first.Steps {
				prefix := strconv.Itoa(n+1) + ". "
				require.True(t, strings.HasPrefix(step, prefix), "step %q lacks %q", step, prefix)
				raw = append(raw, strings.TrimPrefix(step, prefix))
			}
			assertUnique(t, raw)
		})
	}
}

func assertUnique(t *testing.T, entries []string) {
	t.Helper()
	seen := map[string]bool{}
	for _, entry := range entries {
		key := strings.Join(strings.Fields(entry), " ")
		assert.NotEmpty(t, key)
		assert.False(t, seen[key], "duplicate %q", key)
		seen[key] = true
	}
}

// word returns a distinct letters-only word for i.
func word(i int) string {
	return "item" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}
