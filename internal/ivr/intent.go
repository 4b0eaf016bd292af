package ivr

import "strings"

// DefaultEndPhrases signal that the caller wants to end the conversation.
var DefaultEndPhrases = []string{
	"goodbye", "bye", "thank you", "thanks", "that's all",
	"no more questions", "end call", "hang up", "that's it",
	"i'm done", "all set", "that's helpful",
}

// normalize lowercases an utterance and strips common punctuation so intent
// matching is robust to trailing periods, commas and casing.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch r {
		case '.', ',', '!', '?', ';', ':', '"':
			r = ' '
		}
		if r == ' ' {
			if lastSpace {
				continue
			}
			lastSpace = true
		} else {
			lastSpace = false
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// matchesEndIntent reports whether the normalized utterance contains any end
// phrase as a whole-word substring. "thanks, bye" matches "thanks"; "maybe"
// does not match "bye".
func matchesEndIntent(utterance string, phrases []string) bool {
	padded := " " + normalize(utterance) + " "
	for _, phrase := range phrases {
		p := normalize(phrase)
		if p == "" {
			continue
		}
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}
