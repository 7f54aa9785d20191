package recipe

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Extractor parses corpora with a fixed Vocabulary. It is immutable after
// NewExtractor and safe for concurrent use.
type Extractor struct {
	vocab Vocabulary

	stopWords   map[string]bool
	actionVerbs map[string]bool

	quantityRE       *regexp.Regexp
	verbRE           *regexp.Regexp
	ingredientHeadRE *regexp.Regexp
	inlineHeadRE     *regexp.Regexp
	sectionHeaderRE  *regexp.Regexp
	promoRE          *regexp.Regexp
	equipmentRE      *regexp.Regexp
}

var (
	titleMarkerRE = regexp.MustCompile(`(?m)^[ \t]*TITLE:[ \t]*(.+)$`)
	labelLineRE   = regexp.MustCompile(`(?m)^[ \t]*(?:TITLE|AUTHOR):.*$`)
	blockLabelRE  = regexp.MustCompile(`(?m)^[ \t]*(?:SOURCE TEXT|PASTED TEXT):[ \t]*`)
	// A dash or en-dash splits only before whitespace, which keeps "stir-fry"
	// whole. A bullet splits even when glued to its neighbours.
	sentenceEndRE = regexp.MustCompile(`[.!?]+\s+|\s*•\s*|\s*[-–]\s+`)
	bulletRE      = regexp.MustCompile(`^\s*(?:[-–•*▪●]+|\d+[.)]\s)\s*`)
	servingsRE    = regexp.MustCompile(`(?i)\b(?:serves|servings?|makes|yield)\s*:?\s*(\d+(?:\s*[-–]\s*\d+)?)`)
	timeRE        = regexp.MustCompile(`(?i)\b(?:total time|cook time|cooking time|prep time|ready in)\s*:?\s*(\d+(?:\s*[-–]\s*\d+)?\s*(?:minutes|minute|mins|min|hours|hour|hrs|hr)\b)`)
	letterRE      = regexp.MustCompile(`\p{L}`)
)

// quantity is an integer, decimal, simple or mixed fraction, or a unicode fraction.
const quantityPattern = `(?:\d+\s+\d+/\d+|\d+/\d+|\d+(?:[.,]\d+)?|\d*[½¼¾⅓⅔⅛])`

// NewExtractor compiles the matchers for v.
func NewExtractor(v Vocabulary) *Extractor {
	e := &Extractor{
		vocab:       v,
		stopWords:   toSet(v.StopWords),
		actionVerbs: toSet(v.ActionVerbs),
	}

	// (?:^|[^\w./]) keeps quantities from starting inside a word or number.
	// The free text ends on a letter so the separator before the next quantity is left unconsumed.
	e.quantityRE = regexp.MustCompile(
		`(?:^|[^\w./])(` + quantityPattern + `(?:\s*(?:-|–|x|×)\s*` + quantityPattern + `)?)` +
			`\s*(?:((?i:` + alternation(v.Units) + `))\.?\s+)?` +
			`(?:of\s+)?` +
			`([a-z](?:[a-z \-']{0,` + fmt.Sprint(maxFoodChars-2) + `}[a-z])?)`,
	)
	e.verbRE = wordRE(v.ActionVerbs)
	e.promoRE = wordRE(v.PromoWords)
	e.equipmentRE = wordRE(v.Equipment)
	e.ingredientHeadRE = regexp.MustCompile(`(?im)^[ \t]*[#*]*[ \t]*(?:` + alternation(v.IngredientHeaders) + `)[*]*[ \t]*:?[* \t]*(?:\n|$)`)
	e.inlineHeadRE = regexp.MustCompile(`(?i)\b(?:` + alternation(v.IngredientHeaders) + `)\s*:`)
	e.sectionHeaderRE = regexp.MustCompile(`(?i)^[#*\s]*(?:` + alternation(v.SectionHeaders) + `)[*\s]*(?::.*)?$`)
	return e
}

// Extract parses corpus into a Recipe. It never fails: when the corpus carries
// too little signal the lists are empty and Notes explain why.
func (e *Extractor) Extract(corpus string, hints Hints) Recipe {
	body := cleanBody(corpus)
	sentences := segment(body)

	r := Recipe{
		Title:       e.title(corpus, sentences, hints),
		Servings:    firstGroup(servingsRE, body),
		Time:        normalize(firstGroup(timeRE, body)),
		Ingredients: e.ingredients(body),
		Steps:       e.steps(sentences),
		Equipment:   e.equipment(body),
		SourceURL:   strings.TrimSpace(hints.SourceURL),
	}

	if len(r.Ingredients) == 0 {
		r.Notes = append(r.Notes, NoteNoIngredients)
	}
	if len(r.Steps) == 0 {
		r.Notes = append(r.Notes, NoteNoSteps)
	}
	return r
}

// cleanBody drops the TITLE and AUTHOR lines and the block labels so they
// never become ingredients or steps.
func cleanBody(corpus string) string {
	body := labelLineRE.ReplaceAllString(corpus, "")
	return blockLabelRE.ReplaceAllString(body, "")
}

// segment collapses newlines and splits on sentence punctuation or bullet markers.
func segment(text string) []string {
	flat := strings.Join(strings.Fields(text), " ")
	if flat == "" {
		return nil
	}

	var out []string
	keep := func(s string) {
		if s = normalize(s); len([]rune(s)) >= minFragmentLen {
			out = append(out, s)
		}
	}

	prev := 0
	for _, m := range sentenceEndRE.FindAllStringIndex(flat, -1) {
		start, end := m[0], m[1]
		if strings.ContainsRune(".!?", rune(flat[start])) {
			cut := start + len(strings.TrimRight(flat[start:end], " \t"))
			keep(flat[prev:cut])
		} else {
			keep(flat[prev:start])
		}
		prev = end
	}
	keep(flat[prev:])
	return out
}

func (e *Extractor) title(corpus string, sentences []string, hints Hints) string {
	if t := normalize(hints.SourceTitle); t != "" {
		return truncate(t, maxTitleLen)
	}
	if m := titleMarkerRE.FindStringSubmatch(corpus); m != nil {
		if t := normalize(m[1]); t != "" {
			return truncate(t, maxTitleLen)
		}
	}
	if len(sentences) > 0 {
		t := strings.TrimSpace(strings.TrimPrefix(sentences[0], "SOURCE TEXT:"))
		if t != "" {
			return truncate(t, maxTitleLen)
		}
	}
	if t := normalize(hints.FallbackTitle); t != "" {
		return t
	}
	return DefaultTitle
}

// ingredients is the union of the section and pattern strategies. A pattern
// match that only repeats the start of a section line is dropped.
func (e *Extractor) ingredients(body string) []string {
	seen := newDedupe()
	out := make([]string, 0)
	section := e.sectionIngredients(body)
	for _, c := range section {
		if len(out) < maxIngredients && seen.add(c) {
			out = append(out, c)
		}
	}
	for _, c := range e.patternIngredients(body) {
		if len(out) >= maxIngredients {
			break
		}
		if coveredBy(section, c) {
			continue
		}
		if seen.add(c) {
			out = append(out, c)
		}
	}
	return out
}

func coveredBy(lines []string, candidate string) bool {
	c := strings.ToLower(candidate)
	for _, l := range lines {
		if strings.HasPrefix(strings.ToLower(l), c) {
			return true
		}
	}
	return false
}

// sectionIngredients reads the lines following an ingredients header up to the next section header.
func (e *Extractor) sectionIngredients(body string) []string {
	loc := e.ingredientHeadRE.FindStringIndex(body)
	if loc == nil {
		loc = e.inlineHeadRE.FindStringIndex(body)
	}
	if loc == nil {
		return nil
	}
	section := truncateRunes(body[loc[1]:], maxSectionChars)

	var out []string
lines:
	for _, line := range strings.Split(section, "\n") {
		if e.sectionHeaderRE.MatchString(line) {
			break
		}
		// "•2 cups flour•1 egg" holds one item per bullet.
		for _, item := range strings.Split(line, "•") {
			item = normalize(bulletRE.ReplaceAllString(item, ""))
			item = strings.TrimRight(item, ",;")
			switch {
			case item == "",
				len([]rune(item)) >= maxSectionLineLen,
				len(findWords(e.promoRE, item)) > 0,
				!letterRE.MatchString(item):
				continue
			}
			out = append(out, item)
			if len(out) >= maxIngredients {
				break lines
			}
		}
	}
	return out
}

// patternIngredients finds "quantity [unit] food" phrases anywhere in body.
func (e *Extractor) patternIngredients(body string) []string {
	var out []string
	for _, m := range e.quantityRE.FindAllStringSubmatchIndex(body, -1) {
		raw := body[m[2]:m[1]]
		if e.hasTimeWord(raw) {
			continue
		}

		// Quantity and unit keep their original spacing, so "200g" stays "200g".
		measure := body[m[2]:m[3]]
		if m[4] >= 0 {
			measure = body[m[2]:m[5]]
		}
		food := e.trimFood(body[m[6]:m[7]])
		if food == "" {
			continue
		}
		out = append(out, normalize(measure+" "+food))
	}
	return out
}

// trimFood cuts the free text at the first stop word or at "and <verb>".
// It returns "" when the text starts with a stop word or a verb.
func (e *Extractor) trimFood(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		lw := strings.ToLower(w)
		if i == 0 && (e.stopWords[lw] || e.actionVerbs[lw]) {
			return ""
		}
		if e.stopWords[lw] {
			words = words[:i]
			break
		}
		if lw == "and" && i+1 < len(words) && e.actionVerbs[strings.ToLower(words[i+1])] {
			words = words[:i]
			break
		}
	}
	for len(words) > 0 && (words[len(words)-1] == "and" || words[len(words)-1] == "or") {
		words = words[:len(words)-1]
	}
	return strings.Trim(strings.Join(words, " "), " -'")
}

func (e *Extractor) hasTimeWord(s string) bool {
	lower := strings.ToLower(s)
	words := strings.FieldsFunc(lower, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, tw := range e.vocab.TimeWords {
		if strings.HasPrefix(tw, "°") {
			if strings.Contains(lower, tw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == tw {
				return true
			}
		}
	}
	return false
}

// steps keeps sentences with a cooking verb, or every sentence when none has one.
func (e *Extractor) steps(sentences []string) []string {
	var picked []string
	for _, s := range sentences {
		if len(findWords(e.verbRE, s)) > 0 {
			picked = append(picked, s)
		}
	}
	if len(picked) == 0 {
		picked = sentences
	}

	seen := newDedupe()
	out := make([]string, 0, min(len(picked), maxSteps))
	for _, s := range picked {
		if len(out) >= maxSteps {
			break
		}
		if seen.add(s) {
			out = append(out, fmt.Sprintf("%d. %s", len(out)+1, normalize(s)))
		}
	}
	return out
}

func (e *Extractor) equipment(body string) []string {
	seen := newDedupe()
	var out []string
	for _, w := range findWords(e.equipmentRE, body) {
		item := strings.ToLower(normalize(w))
		if seen.add(item) {
			out = append(out, item)
		}
	}
	return out
}

// dedupe tracks normalized, case-folded entries.
type dedupe map[string]bool

func newDedupe() dedupe { return dedupe{} }

// add reports whether s was new. Empty strings are never new.
func (d dedupe) add(s string) bool {
	key := strings.ToLower(normalize(s))
	if key == "" || d[key] {
		return false
	}
	d[key] = true
	return true
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	return strings.TrimSpace(truncateRunes(s, n))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

// alternation quotes words into a regexp alternation, longest first.
func alternation(words []string) string {
	sorted := append([]string(nil), words...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, 0, len(sorted))
	for _, w := range sorted {
		if w = strings.TrimSpace(w); w != "" {
			quoted = append(quoted, strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`))
		}
	}
	return strings.Join(quoted, "|")
}

// wordRE matches any of words, case-insensitively, when not preceded by a
// letter or digit. RE2's \b is ASCII-only, which would break "sauté".
// It returns nil for an empty list.
func wordRE(words []string) *regexp.Regexp {
	alt := alternation(words)
	if alt == "" {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + alt + `)`)
}

// findWords returns the whole-word matches of re in s, in order.
func findWords(re *regexp.Regexp, s string) []string {
	if re == nil {
		return nil
	}
	var out []string
	for _, m := range re.FindAllStringSubmatchIndex(s, -1) {
		end := m[3]
		if end < len(s) {
			r, _ := utf8.DecodeRuneInString(s[end:])
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				continue
			}
		}
		out = append(out, s[m[2]:end])
	}
	return out
}
