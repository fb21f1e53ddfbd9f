package postprocess

import (
	"strings"
	"unicode"
)

const maxMentionWords = 6

// mention is a proper-noun phrase found in context text. Start is a rune
// offset in the coordinates of the text the scope was cut from.
type mention struct {
	Text  string
	Start int
}

type token struct {
	text       string
	start, end int
	broken     bool // punctuation between the previous token and this one
}

// leadingNoise are capitalized words that open a sentence without naming
// anything; they are stripped from the front of a mention
var leadingNoise = map[string]bool{
	"the": true, "a": true, "an": true, "this": true, "that": true, "these": true, "those": true,
	"he": true, "she": true, "it": true, "they": true, "we": true, "i": true, "you": true,
	"his": true, "her": true, "its": true, "their": true, "our": true, "my": true, "your": true,
	"in": true, "on": true, "at": true, "but": true, "and": true, "or": true, "so": true,
	"then": true, "when": true, "while": true, "after": true, "before": true, "if": true,
}

func tokenize(text string) []token {
	runes := []rune(text)
	var out []token
	broken := false
	for i := 0; i < len(runes); {
		r := runes[i]
		if !wordRune(r) {
			if !unicode.IsSpace(r) {
				broken = true
			}
			i++
			continue
		}
		j := i
		for j < len(runes) && wordRune(runes[j]) {
			j++
		}
		out = append(out, token{text: string(runes[i:j]), start: i, end: j, broken: broken})
		broken = false
		i = j
	}
	return out
}

func wordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '\'' || r == '’' || r == '&'
}

func capitalized(word string) bool {
	for _, r := range word {
		return unicode.IsUpper(r)
	}
	return false
}

// connectors may sit inside a name ("Bank of America", "Y on Earth")
var connectors = map[string]bool{
	"of": true, "on": true, "the": true, "for": true, "and": true, "&": true,
	"de": true, "la": true, "van": true, "von": true, "del": true,
}

func connector(word string) bool {
	return connectors[word]
}

// mentions finds runs of capitalized words, allowing filler words between
// them. base shifts offsets into the caller's coordinates.
func mentions(text string, base int) []mention {
	runes := []rune(text)
	tokens := tokenize(text)
	var out []mention

	for i := 0; i < len(tokens); {
		if !capitalized(tokens[i].text) {
			i++
			continue
		}

		last := i
		for k := i + 1; k < len(tokens) && k-i < maxMentionWords; k++ {
			tk := tokens[k]
			if tk.broken {
				break
			}
			if capitalized(tk.text) {
				last = k
				continue
			}
			if connector(tk.text) {
				continue
			}
			break
		}

		first := i
		for first <= last && leadingNoise[strings.ToLower(tokens[first].text)] {
			first++
		}
		if first <= last {
			out = append(out, mention{
				Text:  string(runes[tokens[first].start:tokens[last].end]),
				Start: base + tokens[first].start,
			})
		}
		i = last + 1
	}
	return out
}
