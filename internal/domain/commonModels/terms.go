package commonModels

import (
	"regexp"
	"sort"
	"strings"
)

var termPattern = regexp.MustCompile(`[a-z][a-z0-9\-]{2,}`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "are": {}, "was": {}, "were": {},
	"been": {}, "this": {}, "that": {}, "these": {}, "those": {}, "you": {}, "they": {},
	"their": {}, "our": {}, "not": {}, "yes": {}, "can": {}, "could": {}, "may": {}, "might": {},
	"will": {}, "would": {}, "should": {}, "than": {}, "then": {}, "also": {}, "such": {},
	"into": {}, "what": {}, "which": {}, "who": {}, "how": {}, "does": {}, "did": {}, "has": {},
	"have": {}, "had": {}, "its": {}, "about": {}, "there": {}, "here": {}, "all": {}, "any": {},
}

func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

// Terms lowercases text and returns its candidate keywords in order of appearance.
func Terms(text string) []string {
	var out []string
	for _, t := range termPattern.FindAllString(strings.ToLower(text), -1) {
		if !IsStopword(t) {
			out = append(out, t)
		}
	}
	return out
}

// FrequentTerms returns up to max terms across texts, most frequent first, ties alphabetical.
func FrequentTerms(texts []string, max int) []string {
	freq := make(map[string]int)
	for _, t := range texts {
		for _, term := range Terms(t) {
			freq[term]++
		}
	}
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > max {
		terms = terms[:max]
	}
	return terms
}
