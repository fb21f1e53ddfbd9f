package extract

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// Segment is a run of text with rune offsets into its source
type Segment struct {
	Text  string
	Start int // inclusive
	End   int // exclusive
}

// VisibleText extracts readable text from HTML, skipping scripts and styles.
// Block elements are separated by blank lines so paragraphs survive.
func VisibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				if buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n") {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && isBlock(n.Data) && buf.Len() > 0 && !strings.HasSuffix(buf.String(), "\n\n") {
			buf.WriteString("\n\n")
		}
	}

	walk(doc)
	return strings.TrimSpace(buf.String()), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "li", "blockquote",
		"h1", "h2", "h3", "h4", "h5", "h6", "br", "tr":
		return true
	}
	return false
}

// Sentences splits text on terminal punctuation followed by whitespace.
// Offsets are rune offsets into text.
func Sentences(text string) []Segment {
	runes := []rune(text)
	var out []Segment
	start := 0

	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Avoid splitting on abbreviations and decimals
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if seg, ok := trimSegment(runes, start, i+1); ok {
			out = append(out, seg)
		}
		start = i + 1
	}

	if seg, ok := trimSegment(runes, start, len(runes)); ok {
		out = append(out, seg)
	}

	return out
}

// Paragraphs splits text on blank lines
func Paragraphs(text string) []Segment {
	runes := []rune(text)
	var out []Segment
	start := 0

	for i := 0; i < len(runes); i++ {
		if runes[i] != '\n' {
			continue
		}
		j := i + 1
		for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\r') {
			j++
		}
		if j < len(runes) && runes[j] == '\n' {
			if seg, ok := trimSegment(runes, start, i); ok {
				out = append(out, seg)
			}
			start = j + 1
			i = j
		}
	}

	if seg, ok := trimSegment(runes, start, len(runes)); ok {
		out = append(out, seg)
	}

	return out
}

// Containing returns the index of the segment that contains offset, or -1
func Containing(segments []Segment, offset int) int {
	for i, s := range segments {
		if offset >= s.Start && offset < s.End {
			return i
		}
	}
	// Offsets in the whitespace between segments belong to the next one
	for i, s := range segments {
		if offset < s.Start {
			return i
		}
	}
	return -1
}

func trimSegment(runes []rune, start, end int) (Segment, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start >= end {
		return Segment{}, false
	}
	return Segment{Text: string(runes[start:end]), Start: start, End: end}, true
}
