package helpers

import "strings"

// HighlightSegment is a run of text, flagged when it matches the search term.
type HighlightSegment struct {
	Text  string
	Match bool
}

// HighlightSegments splits text around case-insensitive matches of term.
func HighlightSegments(text, term string) []HighlightSegment {
	term = strings.TrimSpace(term)
	if text == "" {
		return nil
	}
	lowerText, lowerTerm := strings.ToLower(text), strings.ToLower(term)
	// Byte offsets are only shared when lowercasing keeps lengths.
	if lowerTerm == "" || len(lowerText) != len(text) {
		return []HighlightSegment{{Text: text}}
	}

	var segments []HighlightSegment
	cursor := 0
	for {
		index := strings.Index(lowerText[cursor:], lowerTerm)
		if index < 0 {
			break
		}
		if index > 0 {
			segments = append(segments, HighlightSegment{Text: text[cursor : cursor+index]})
		}
		end := cursor + index + len(lowerTerm)
		segments = append(segments, HighlightSegment{Text: text[cursor+index : end], Match: true})
		cursor = end
	}
	if cursor < len(text) {
		segments = append(segments, HighlightSegment{Text: text[cursor:]})
	}
	return segments
}

// Highlight writes text with matches of term wrapped in <mark>.
func (w *Writer) Highlight(text, term string) {
	for _, seg := range HighlightSegments(text, term) {
		if seg.Match {
			w.Raw("<mark>")
			w.Text(seg.Text)
			w.Raw("</mark>")
			continue
		}
		w.Text(seg.Text)
	}
}
