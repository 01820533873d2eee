package utils

import (
	"strings"
	"unicode"
)

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// RuneLen counts characters rather than bytes; answers are mostly Spanish.
func RuneLen(s string) int {
	return len([]rune(s))
}

// CollapseSpaces replaces any run of whitespace (newlines included) with a
// single space and trims the ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var markupReplacer = strings.NewReplacer("*", "", "_", "", "`", "")

// CleanForSpeech strips markdown emphasis and collapses whitespace. Text
// longer than maxRunes is reduced to its first three sentences and then hard
// capped at maxRunes.
func CleanForSpeech(text string, maxRunes int) string {
	clean := CollapseSpaces(markupReplacer.Replace(text))
	if RuneLen(clean) <= maxRunes {
		return clean
	}

	sentences := Sentences(clean)
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	clean = strings.Join(sentences, " ")
	return strings.TrimSpace(Truncate(clean, maxRunes))
}

// Sentences splits s after '.', '!' or '?' when the mark is followed by
// whitespace or ends the text, so decimals such as "$2.30" stay whole.
func Sentences(s string) []string {
	var out []string
	runes := []rune(s)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// Tokens lowercases s and splits it into words made of letters and digits.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
