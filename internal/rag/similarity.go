// Package rag ranks indexed document chunks against a question so the chat
// model can answer from the permit's own paperwork.
package rag

import (
	"math"
	"strings"
	"unicode"
)

// CosineSimilarity returns the cosine of the angle between a and b. It is
// 0 when the vectors differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "has": {}, "have": {},
	"how": {}, "i": {}, "if": {}, "in": {}, "is": {}, "it": {}, "its": {}, "me": {},
	"my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "so": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// Tokenize splits text into lower-cased letter/digit runs of two or more
// characters, dropping common stop words
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TextOverlap returns the share of distinct query tokens that also occur
// in text, in [0, 1]
func TextOverlap(query, text string) float64 {
	queryTokens := make(map[string]struct{})
	for _, t := range Tokenize(query) {
		queryTokens[t] = struct{}{}
	}
	if len(queryTokens) == 0 {
		return 0
	}

	textTokens := make(map[string]struct{})
	for _, t := range Tokenize(text) {
		textTokens[t] = struct{}{}
	}

	hits := 0
	for t := range queryTokens {
		if _, ok := textTokens[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}
