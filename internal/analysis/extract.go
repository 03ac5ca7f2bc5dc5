package analysis

import (
	"strings"
	"unicode"
)

var commonSideEffects = []string{
	"nausea", "vomiting", "fatigue", "headache", "rash", "hypertension",
	"anemia", "neutropenia", "diarrhea", "constipation", "insomnia",
}

var synthesisKeywords = []string{
	"reacted with", "synthesized", "purified", "obtained by", "mixture was", "added to", "yielded",
}

// abbreviations that end with a period but do not end a sentence
var abbreviations = map[string]struct{}{
	"e.g": {}, "i.e": {}, "approx": {}, "fig": {}, "dr": {}, "vs": {}, "etc": {}, "ca": {},
}

// ExtractSideEffects returns the known side effects mentioned in text,
// capitalized, without duplicates, in a stable order.
func ExtractSideEffects(text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, effect := range commonSideEffects {
		if strings.Contains(lower, effect) {
			found = append(found, capitalize(effect))
		}
	}
	return found
}

// ExtractSynthesisSteps returns the sentences of text that read like
// chemical synthesis steps.
func ExtractSynthesisSteps(text string) []string {
	steps := []string{}
	for _, sentence := range splitSentences(text) {
		if containsAny(strings.ToLower(sentence), synthesisKeywords) {
			steps = append(steps, sentence)
		}
	}
	return steps
}

// splitSentences breaks text after '.', '?' or '!' followed by whitespace,
// keeping common abbreviations intact.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		r := runes[i]
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if r == '.' && isAbbreviation(runes[start:i]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isAbbreviation(prefix []rune) bool {
	i := len(prefix)
	for i > 0 && !unicode.IsSpace(prefix[i-1]) {
		i--
	}
	word := strings.ToLower(strings.TrimLeft(string(prefix[i:]), "(["))
	_, ok := abbreviations[word]
	return ok
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(unicode.ToUpper(r[0])) + strings.ToLower(string(r[1:]))
}
