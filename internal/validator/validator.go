// Package validator scores free-text answers against a lesson's acceptance
// keywords. Matching is lexical only.
package validator

import "strings"

// AnswerValidator decides whether an answer is accepted for a keyword set.
type AnswerValidator interface {
	Score(answer string, keywords []string) bool
}

// Ensure KeywordValidator implements AnswerValidator
var _ AnswerValidator = KeywordValidator{}

// smallSetSize is the largest keyword set that accepts on a single match.
const smallSetSize = 3

// KeywordValidator counts keyword substrings in the lowercased, space-padded
// answer. Sets of three or fewer keywords need one match, larger sets two.
type KeywordValidator struct{}

// NewKeywordValidator creates a keyword validator
func NewKeywordValidator() KeywordValidator {
	return KeywordValidator{}
}

// Score reports whether the answer is accepted. Blank keywords are ignored
// for both the match count and the threshold; a set with no usable keyword
// accepts nothing.
func (KeywordValidator) Score(answer string, keywords []string) bool {
	n := usable(keywords)
	if n == 0 {
		return false
	}
	return Matches(answer, keywords) >= Threshold(n)
}

// Threshold returns the number of matches a keyword set of size n requires.
func Threshold(n int) int {
	if n <= smallSetSize {
		return 1
	}
	return 2
}

// Matches counts how many keywords occur in the normalized answer.
func Matches(answer string, keywords []string) int {
	text := Normalize(answer)
	count := 0
	for _, kw := range keywords {
		if blank(kw) {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}

func usable(keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if !blank(kw) {
			n++
		}
	}
	return n
}

func blank(kw string) bool {
	return strings.TrimSpace(kw) == ""
}

// Normalize lowercases the answer and pads it with boundary spaces so that
// keywords written as " can " also match at the start or end of the text.
func Normalize(answer string) string {
	return " " + strings.ToLower(answer) + " "
}
