// Package sensitize masks a fixed vocabulary of sensitive terms in card text
// so social platforms do not down-rank the resulting posts.
package sensitize

import (
	"regexp"
	"sort"
	"strings"
)

// vocabulary maps each lowercase term to its rendered masked token. The token
// casing comes from this table, never from the input: separators keep the
// word readable while breaking automated keyword matching.
var vocabulary = map[string]string{
	"gaza":     "G-a-z-a",
	"war":      "w-a-r",
	"kill":     "k-i-l-l",
	"killed":   "k-i-l-l-e-d",
	"killing":  "k-i-l-l-i-n-g",
	"bomb":     "b-o-m-b",
	"bombing":  "b-o-m-b-i-n-g",
	"dead":     "d-e-a-d",
	"death":    "d-e-a-t-h",
	"terror":   "t-e-r-r-o-r",
	"attack":   "a-t-t-a-c-k",
	"shooting": "s-h-o-o-t-i-n-g",
	"murder":   "m-u-r-d-e-r",
	"hostage":  "h-o-s-t-a-g-e",
}

var termExpr = regexp.MustCompile(`(?i)\b(` + strings.Join(sortedTerms(), "|") + `)\b`)

func sortedTerms() []string {
	terms := make([]string, 0, len(vocabulary))
	for term := range vocabulary {
		terms = append(terms, regexp.QuoteMeta(term))
	}
	// Longest first so "killed" is not consumed as "kill" + "ed".
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	return terms
}

// Mask replaces every whole-word, case-insensitive vocabulary match with its
// masked token. Empty input is returned unchanged. Masked tokens contain
// separators, so a second pass finds no word-boundary match and the output is
// stable; idempotence is a consequence, not a contract.
func Mask(s string) string {
	if s == "" {
		return s
	}
	return termExpr.ReplaceAllStringFunc(s, func(match string) string {
		if masked, ok := vocabulary[strings.ToLower(match)]; ok {
			return masked
		}
		return match
	})
}

// Contains reports whether any vocabulary term appears as a whole word.
func Contains(s string) bool {
	return s != "" && termExpr.MatchString(s)
}
