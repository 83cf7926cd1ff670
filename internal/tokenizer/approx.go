package tokenizer

import "unicode"

// Approx estimates tokens without a vocabulary: every run of non-space
// characters counts once and Markdown punctuation counts once more per
// character.
type Approx struct{}

func (Approx) CountTokens(text string) int {
	tokens := 0
	inWord := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				tokens++
				inWord = false
			}
		} else {
			inWord = true
		}
		switch r {
		case '#', '*', '_', '`', '[', ']', '(', ')', '|', '-':
			tokens++
		}
	}
	if inWord {
		tokens++
	}
	return tokens
}

func (Approx) Close() {}
