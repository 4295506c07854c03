package termmap

// TermMap maps source terms to the exact target-language text to use.
type TermMap map[string]string

// MatchResult holds terms that matched against input texts.
type MatchResult struct {
	Matched TermMap
}
