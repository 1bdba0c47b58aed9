package extract

import (
	"regexp"
	"strings"
)

// Category is one entry of the activity classifier. Categories are checked
// in slice order and the first one with a keyword hit wins, so the order is
// the tie-break.
type Category struct {
	Name     string
	Keywords []string
}

// Keywords match whole words plus a plural or -ing/-ed ending. A trailing
// "*" marks a stem that matches any word starting with it.
var Categories = []Category{
	{Name: "chess", Keywords: []string{"chess", "puzzle", "tactic", "opening", "blitz", "rapid"}},
	{Name: "reading", Keywords: []string{"read", "book", "page", "chapter", "novel", "article"}},
	{Name: "exercise", Keywords: []string{"workout", "gym", "run", "running", "jog", "jogging", "rep", "squat", "push-up", "pushup", "lift", "exercise", "exercising", "cardio", "swim", "swimming", "bike", "biking", "cycling", "walk"}},
	{Name: "music", Keywords: []string{"piano", "guitar", "violin", "drum", "sing", "scales", "music"}},
	{Name: "learning", Keywords: []string{"study", "studying", "course", "lesson", "learn", "language", "duolingo", "flashcard", "homework"}},
	{Name: "mindfulness", Keywords: []string{"meditat*", "mindful*", "breath*", "yoga", "gratitude"}},
	{Name: "writing", Keywords: []string{"write", "writing", "wrote", "journal", "blog", "essay", "draft"}},
	{Name: "health", Keywords: []string{"water", "sleep", "vitamin", "medication", "floss", "stretch"}},
}

type compiledCategory struct {
	name     string
	keywords []*regexp.Regexp
}

var compiledCategories = compileCategories(Categories)

func compileCategories(cats []Category) []compiledCategory {
	out := make([]compiledCategory, 0, len(cats))
	for _, c := range cats {
		cc := compiledCategory{name: c.Name}
		for _, kw := range c.Keywords {
			cc.keywords = append(cc.keywords, keywordRegexp(kw))
		}
		out = append(out, cc)
	}
	return out
}

func keywordRegexp(kw string) *regexp.Regexp {
	if stem, ok := strings.CutSuffix(kw, "*"); ok {
		return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(stem))
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `(?:s|es|ing|ed)?\b`)
}

// DetectActivityCategory returns the first category with a keyword match, or
// "" when nothing matches.
func DetectActivityCategory(text string) string {
	return detect(compiledCategories, text)
}

func detect(cats []compiledCategory, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, c := range cats {
		for _, kw := range c.keywords {
			if kw.MatchString(text) {
				return c.name
			}
		}
	}
	return ""
}
