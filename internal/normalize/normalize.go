// Package normalize canonicalizes transcribed speech so that a stored
// challenge phrase and a spoken response can be compared with plain string
// equality.
package normalize

import "strings"

// homophones maps spoken variants onto the number words the generator
// vocabulary uses. Applied as sequential substring replacement in this
// order, not simultaneously.
var homophones = [][2]string{
	{" for ", " four "},
	{" to ", " two "},
	{" too ", " two "},
	{" won ", " one "},
	{" ate ", " eight "},
}

// digitWords spells out single digits. Only isolated single-digit tokens are
// converted; multi-digit numbers like "42" pass through unchanged. The
// generator vocabulary only ever produces single-digit number words, so
// widening this would silently change acceptance behavior for inputs outside
// the vocabulary.
var digitWords = [10]string{
	"zero", "one", "two", "three", "four",
	"five", "six", "seven", "eight", "nine",
}

// Normalize canonicalizes transcribed speech: lowercasing, homophone
// folding, digit-to-word conversion, and whitespace collapsing. Pure and
// deterministic; Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	// Pad so the replacement tables can match whole words at the string
	// boundaries without a tokenizer.
	text = " " + text + " "

	for _, h := range homophones {
		text = strings.ReplaceAll(text, h[0], h[1])
	}

	for d, word := range digitWords {
		token := " " + string(rune('0'+d)) + " "
		text = strings.ReplaceAll(text, token, " "+word+" ")
	}

	return strings.Join(strings.Fields(text), " ")
}
