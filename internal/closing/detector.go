// Package closing detects farewell phrases in agent utterances. The signal
// is diagnostic only: the remote workflow's explicit end-conversation action
// is not guaranteed to fire, so operators watch for this hint, but ending
// the session remains the job of the remote close or the interrupt.
package closing

import "strings"

// DefaultPhrases covers the farewells the agent is prompted to use.
var DefaultPhrases = []string{
	"goodbye",
	"bye",
	"see you",
	"talk soon",
	"have a nice day",
	"take care",
	"thanks for calling",
	"bye-bye",
	"talk to you later",
	"end call",
}

// maxShortWords bounds the "entire message is a farewell" heuristic: a long
// reply that merely mentions a phrase mid-sentence is not a closing turn.
const maxShortWords = 8

// Detector matches agent utterances against a fixed phrase list.
type Detector struct {
	phrases []string
}

// NewDetector compiles the phrase list, falling back to DefaultPhrases when
// none are configured. Matching is case-insensitive.
func NewDetector(phrases []string) *Detector {
	compiled := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			compiled = append(compiled, phrase)
		}
	}
	if len(compiled) == 0 {
		compiled = append(compiled, DefaultPhrases...)
	}
	return &Detector{phrases: compiled}
}

// Match reports whether the utterance reads as a closing turn and returns
// the phrase that matched. A phrase counts when it ends the utterance or
// when the whole utterance is short enough to be a bare farewell.
func (d *Detector) Match(text string) (string, bool) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return "", false
	}
	trimmed := strings.TrimRight(lowered, ".!?")

	// A phrase ending the utterance is the strongest signal; the
	// short-message scan only runs when no phrase closes the text.
	for _, phrase := range d.phrases {
		if strings.HasSuffix(trimmed, phrase) {
			return phrase, true
		}
	}

	if len(strings.Fields(lowered)) <= maxShortWords {
		for _, phrase := range d.phrases {
			if strings.Contains(lowered, phrase) {
				return phrase, true
			}
		}
	}
	return "", false
}
