package irc

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxLength is the per-message byte budget. Deliberately below
// the 512-byte wire ceiling so server-added routing overhead
// (:nick!user@host prefix, CRLF) still fits.
const DefaultMaxLength = 400

// ContinuationMarker is appended to every chunk except the last.
const ContinuationMarker = "…"

const (
	newlineWindow     = 100
	spaceWindow       = 50
	punctuationWindow = 50
)

const cutPunctuation = ".,;!?"

// SplitOptions tunes the chunker.
type SplitOptions struct {
	// MaxLength is the byte budget per chunk; 0 means DefaultMaxLength.
	MaxLength int
	// Prefix is prepended to every chunk after the first.
	Prefix string
}

// Split cuts text into protocol-sized chunks. Cut points are chosen
// at the best boundary at or before the budget: a newline within the
// last 100 bytes of the window, a space within the last 50, the
// nearest sentence punctuation within the last 50, or a hard cut at
// the budget. Whitespace is trimmed at each cut. Only an unsplittable
// run longer than the budget can produce an oversized chunk, and the
// hard cut prevents even that.
func Split(text string, opts SplitOptions) []string {
	max := opts.MaxLength
	if max <= 0 {
		max = DefaultMaxLength
	}

	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for {
		prefix := ""
		if len(chunks) > 0 {
			prefix = opts.Prefix
		}

		if len(prefix)+len(remaining) <= max {
			chunks = append(chunks, prefix+remaining)
			return chunks
		}

		// Reserve room for the prefix and the continuation marker so
		// marked chunks still fit the budget.
		budget := max - len(prefix) - len(ContinuationMarker)
		if budget < 1 {
			budget = 1
		}

		cut := findCut(remaining, budget)
		chunk := strings.TrimRight(remaining[:cut], " \t\r\n")
		remaining = strings.TrimLeft(remaining[cut:], " \t\r\n")

		if remaining == "" {
			chunks = append(chunks, prefix+chunk)
			return chunks
		}
		chunks = append(chunks, prefix+chunk+ContinuationMarker)
	}
}

// findCut picks the byte offset to cut at, given a window budget.
func findCut(s string, budget int) int {
	if budget >= len(s) {
		return len(s)
	}
	window := s[:budget]

	if idx := strings.LastIndexByte(window, '\n'); idx >= budget-newlineWindow && idx > 0 {
		return idx
	}
	if idx := strings.LastIndexByte(window, ' '); idx >= budget-spaceWindow && idx > 0 {
		return idx
	}

	best := -1
	for _, p := range cutPunctuation {
		if idx := strings.LastIndexByte(window, byte(p)); idx > best {
			best = idx
		}
	}
	if best >= budget-punctuationWindow && best > 0 {
		// Keep the punctuation on the chunk being emitted.
		return best + 1
	}

	// Hard cut, backed off to a rune boundary.
	cut := budget
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		cut = budget
	}
	return cut
}
