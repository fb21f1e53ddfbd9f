package curate

import (
	"github.com/ppiankov/kgcurator/internal/extract"
)

// defaultWindowRunes bounds the text sent per extraction call
const defaultWindowRunes = 6000

// textWindows groups consecutive paragraphs into windows of at most
// maxRunes. A longer paragraph gets a window of its own. Offsets are rune
// offsets into text.
func textWindows(text string, maxRunes int) []extract.Segment {
	if maxRunes <= 0 {
		maxRunes = defaultWindowRunes
	}
	runes := []rune(text)
	paras := extract.Paragraphs(text)

	var out []extract.Segment
	start, end := -1, -1
	flush := func() {
		if start >= 0 {
			out = append(out, extract.Segment{Text: string(runes[start:end]), Start: start, End: end})
		}
		start, end = -1, -1
	}

	for _, p := range paras {
		if start >= 0 && p.End-start > maxRunes {
			flush()
		}
		if start < 0 {
			start = p.Start
		}
		end = p.End
	}
	flush()
	return out
}
