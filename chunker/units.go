package chunker

import (
	"strings"

	"github.com/poiesic/relatio/core"
)

// unit is an indivisible piece of text. Chunk boundaries fall between units,
// never inside one.
type unit struct {
	text   string
	marker core.Marker // zero when the unit carries no structural marker
	code   bool
}

// block is a run of units that must be chunked together. Quoted reply blocks
// are kept apart from live content.
type block struct {
	units  []unit
	quoted bool
}

// segment splits document content into blocks of sentence-like units.
// Quoted sections in mail documents form their own blocks.
func segment(content string, source core.SourceType) []block {
	lines := strings.Split(content, "\n")

	var (
		blocks   []block
		current  []unit
		quoted   bool
		inFence  bool
		fenceBuf []string
	)

	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, block{units: current, quoted: quoted})
			current = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inFence {
				fenceBuf = append(fenceBuf, line)
				current = append(current, unit{text: strings.Join(fenceBuf, "\n"), code: true})
				fenceBuf = nil
				inFence = false
			} else {
				inFence = true
				fenceBuf = []string{line}
			}
			continue
		}
		if inFence {
			fenceBuf = append(fenceBuf, line)
			continue
		}

		if trimmed == "" {
			continue
		}

		lineQuoted := source == core.SourceTypeMail && isQuotedLine(trimmed)
		if lineQuoted != quoted {
			flush()
			quoted = lineQuoted
		}

		switch {
		case strings.HasPrefix(trimmed, "#"):
			current = append(current, unit{text: trimmed, marker: core.MarkerHeading})
		case strings.HasPrefix(trimmed, ">"):
			current = append(current, unit{text: trimmed, marker: core.MarkerQuote})
		case isListLine(trimmed):
			current = append(current, unit{text: trimmed, marker: core.MarkerListItem})
		default:
			for _, sentence := range splitSentences(trimmed) {
				current = append(current, unit{text: sentence})
			}
		}
	}

	// An unterminated fence is kept rather than dropped.
	if inFence && len(fenceBuf) > 0 {
		current = append(current, unit{text: strings.Join(fenceBuf, "\n"), code: true})
	}
	flush()

	return blocks
}

// isQuotedLine reports whether a line belongs to a quoted reply section.
func isQuotedLine(trimmed string) bool {
	if strings.HasPrefix(trimmed, ">") {
		return true
	}
	if strings.HasSuffix(trimmed, "wrote:") && strings.HasPrefix(trimmed, "On ") {
		return true
	}
	return trimmed == "-----Original Message-----"
}

// isListLine reports whether a line is a bullet or numbered list item.
func isListLine(trimmed string) bool {
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return true
	}
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') && trimmed[i+1] == ' '
}

// splitSentences splits a line into sentence units. A sentence ends at
// '.', '!' or '?' followed by a space or the end of the line.
func splitSentences(line string) []string {
	var (
		sentences []string
		start     int
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(line) && line[i+1] != ' ' {
			continue
		}
		if s := strings.TrimSpace(line[start : i+1]); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(line[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
