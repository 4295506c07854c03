package termmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tm := TermMap{
		"Dana Levi":  "דנה לוי",
		"Tel Aviv":   "תל אביב",
		"Haifa":      "חיפה",
		"Dead Sea":   "ים המלח",
		"Ben Gurion": "בן גוריון",
	}

	texts := []string{
		"Dana Levi, look out!",
		"We landed in Tel Aviv.",
		"This is just a regular line.",
	}

	result := Match(tm, texts)

	assert.Len(t, result.Matched, 2)
	assert.Equal(t, "דנה לוי", result.Matched["Dana Levi"])
	assert.Equal(t, "תל אביב", result.Matched["Tel Aviv"])

	_, hasHaifa := result.Matched["Haifa"]
	assert.False(t, hasHaifa)
	_, hasDeadSea := result.Matched["Dead Sea"]
	assert.False(t, hasDeadSea)
}

func TestMatch_EmptyTermMap(t *testing.T) {
	result := Match(TermMap{}, []string{"some text"})
	assert.Empty(t, result.Matched)
}

func TestMatch_EmptyTexts(t *testing.T) {
	tm := TermMap{"hello": "world"}
	result := Match(tm, []string{})
	assert.Empty(t, result.Matched)
}

func TestMatch_CaseSensitive(t *testing.T) {
	tm := TermMap{
		"Dana": "דנה",
	}

	// Lowercase "dana" should not match "Dana"
	result := Match(tm, []string{"dana is here"})
	assert.Empty(t, result.Matched)

	// Exact case should match
	result = Match(tm, []string{"Dana is here"})
	assert.Len(t, result.Matched, 1)
}

func TestMatch_WordBoundary(t *testing.T) {
	tm := TermMap{
		"elf": "שדון",
	}

	// "elf" as part of "herself" should NOT match
	result := Match(tm, []string{"She found herself alone."})
	assert.Empty(t, result.Matched)

	// "elf" as a standalone word should match
	result = Match(tm, []string{"The elf cast a spell."})
	assert.Len(t, result.Matched, 1)
	assert.Equal(t, "שדון", result.Matched["elf"])

	// "elf" at end of sentence
	result = Match(tm, []string{"She met an elf"})
	assert.Len(t, result.Matched, 1)

	// "elf" at start of sentence
	result = Match(tm, []string{"elf warriors attacked"})
	assert.Len(t, result.Matched, 1)
}

func TestMatch_WordBoundary_MultiWord(t *testing.T) {
	tm := TermMap{
		"Dan": "דן",
	}

	// "Dan" inside "DanDaDan" should NOT match (no boundary after "Dan")
	result := Match(tm, []string{"DanDaDan is great"})
	assert.Empty(t, result.Matched)

	// "Dan" as standalone should match
	result = Match(tm, []string{"Dan is great"})
	assert.Len(t, result.Matched, 1)
}

func TestMatch_WordBoundary_Punctuation(t *testing.T) {
	tm := TermMap{
		"Elf": "שדון",
	}

	// Punctuation counts as word boundary
	result := Match(tm, []string{"Look, an Elf!"})
	assert.Len(t, result.Matched, 1)

	result = Match(tm, []string{"(Elf)"})
	assert.Len(t, result.Matched, 1)

	result = Match(tm, []string{`"Elf"`})
	assert.Len(t, result.Matched, 1)
}

func TestMatch_MultipleTextsOneTerm(t *testing.T) {
	tm := TermMap{
		"Dana": "דנה",
	}

	// Term appears in multiple texts, should only be in result once
	result := Match(tm, []string{"Dana here", "Dana there"})
	assert.Len(t, result.Matched, 1)
}

func TestContainsWordFold(t *testing.T) {
	// Case-insensitive word boundary match
	assert.True(t, ContainsWordFold("The Elf is here", "elf"))
	assert.True(t, ContainsWordFold("the elf is here", "Elf"))
	assert.False(t, ContainsWordFold("herself", "elf"))
	assert.False(t, ContainsWordFold("HERSELF", "elf"))
}

func TestMatchResult_LinesSorted(t *testing.T) {
	result := MatchResult{Matched: TermMap{"Tel Aviv": "תל אביב", "Dana": "דנה"}}
	assert.Equal(t, []string{"- Dana => דנה", "- Tel Aviv => תל אביב"}, result.Lines())
	assert.Empty(t, MatchResult{}.Lines())
}
