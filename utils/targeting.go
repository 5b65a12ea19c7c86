package utils

import "strings"

// placeholderVocabulary lists values users type to mean "no preference".
// Matched case-insensitively after trimming; a criterion reduced to nothing
// contributes no terms to the search.
var placeholderVocabulary = map[string]struct{}{
	"":                 {},
	"-":                {},
	"any":              {},
	"anything":         {},
	"open":             {},
	"open to anything": {},
	"none":             {},
	"n/a":              {},
	"na":               {},
	"no preference":    {},
	"skip":             {},
}

// FilterPlaceholders strips semantically-empty values from a targeting
// criterion list. Pure function; the order of meaningful values is kept.
func FilterPlaceholders(values []string) []string {
	var out []string
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if _, skip := placeholderVocabulary[strings.ToLower(trimmed)]; skip {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// BuildSearchQuery joins a campaign's meaningful targeting terms into the
// keyword string passed to the provider search. An empty result means the
// campaign has no usable targeting yet and discovery should be skipped.
func BuildSearchQuery(jobTitles, locations, industries, keywords []string) string {
	var terms []string
	for _, list := range [][]string{jobTitles, locations, industries, keywords} {
		terms = append(terms, FilterPlaceholders(list)...)
	}
	return strings.Join(terms, " ")
}
