// Package segment splits review text into bounded-length, sentence-respecting
// chunks, the unit of embedding and retrieval.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChunkLen is the default chunk length cap in runes.
const DefaultMaxChunkLen = 200

// Segmenter packs consecutive sentences into chunks of at most maxLen runes.
// A single sentence longer than maxLen passes through unsplit: the cap is
// soft for oversized isolated sentences.
type Segmenter struct {
	maxLen int
}

// New creates a Segmenter. Non-positive maxLen falls back to DefaultMaxChunkLen.
func New(maxLen int) *Segmenter {
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLen
	}
	return &Segmenter{maxLen: maxLen}
}

// MaxLen returns the configured chunk length cap.
func (s *Segmenter) MaxLen() int { return s.maxLen }

// Segment splits text into chunks. Pure: no state is shared across calls.
// Empty or whitespace-only input yields nil; empty chunks are dropped.
func (s *Segmenter) Segment(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if c := strings.TrimSpace(buf.String()); c != "" {
			chunks = append(chunks, c)
		}
		buf.Reset()
		bufLen = 0
	}

	for _, sent := range sentences {
		sentLen := utf8.RuneCountInString(sent)
		switch {
		case bufLen == 0:
			buf.WriteString(sent)
			bufLen = sentLen
		case bufLen+1+sentLen <= s.maxLen: // +1 for the joining space
			buf.WriteByte(' ')
			buf.WriteString(sent)
			bufLen += 1 + sentLen
		default:
			flush()
			buf.WriteString(sent)
			bufLen = sentLen
		}
	}
	flush()

	return chunks
}

// splitSentences splits on '.', '!' or '?' followed by whitespace (or end of
// text). Text without terminal punctuation becomes a single sentence.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder

	emit := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			sentences = append(sentences, s)
		}
		cur.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if !isTerminal(r) {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			emit()
		}
	}
	emit()

	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
