package battle

import (
	"strings"

	"github.com/use-agent/e7record/roster"
)

// zeroTurnsMarker appears in the rendered text of matches that ended before
// the first turn.
const zeroTurnsMarker = "Turns 0"

// Outcome is what an entry's markers and text say about the match.
type Outcome struct {
	Win       bool
	ZeroTurns bool
}

// OutcomeClassifier reads an Outcome from an entry's class tokens and text.
type OutcomeClassifier struct {
	WinClass string
}

// Classify is a pure function of its inputs. Whitespace in text is collapsed
// first so line breaks between the label and the count do not matter.
func (c OutcomeClassifier) Classify(m roster.Markers, text string) Outcome {
	normalized := strings.Join(strings.Fields(text), " ")
	return Outcome{
		Win:       m.Has(c.WinClass),
		ZeroTurns: strings.Contains(normalized, zeroTurnsMarker),
	}
}
