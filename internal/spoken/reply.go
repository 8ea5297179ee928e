package spoken

import "strings"

// Reply is the classification of a yes/no answer.
type Reply int

const (
	Unclear Reply = iota
	Affirmative
	Negative
)

func (r Reply) String() string {
	switch r {
	case Affirmative:
		return "affirmative"
	case Negative:
		return "negative"
	default:
		return "unclear"
	}
}

// Vocabulary lists the words and phrases that count as yes or no.
type Vocabulary struct {
	Affirmative []string
	Negative    []string
}

// DefaultVocabulary is used by Classify.
var DefaultVocabulary = Vocabulary{
	Affirmative: []string{"yes", "yeah", "yep", "yup", "sure", "correct", "confirm", "okay", "ok", "right", "continue"},
	Negative:    []string{"no", "nope", "nah", "wrong", "incorrect", "cancel", "not"},
}

// Classify classifies reply with DefaultVocabulary.
func Classify(reply string) Reply {
	return DefaultVocabulary.Classify(reply)
}

// Classify matches whole words only, so "know" is not "no". A reply that carries
// both a yes and a no word is Unclear.
func (v Vocabulary) Classify(reply string) Reply {
	yes := containsAny(reply, v.Affirmative)
	no := containsAny(reply, v.Negative)
	switch {
	case yes && !no:
		return Affirmative
	case no && !yes:
		return Negative
	default:
		return Unclear
	}
}

// Contains reports whether phrase occurs in transcript as whole words, ignoring case.
func Contains(transcript string, phrase string) bool {
	words := wordsOf(phrase)
	if len(words) == 0 {
		return false
	}
	padded := " " + strings.Join(wordsOf(transcript), " ") + " "
	return strings.Contains(padded, " "+strings.Join(words, " ")+" ")
}

// ContainsAny reports whether any phrase occurs in transcript.
func ContainsAny(transcript string, phrases ...string) bool {
	return containsAny(transcript, phrases)
}

func containsAny(transcript string, phrases []string) bool {
	for _, phrase := range phrases {
		if Contains(transcript, phrase) {
			return true
		}
	}
	return false
}

// wordsOf splits folded text on anything that is not a letter, digit, or apostrophe.
func wordsOf(text string) []string {
	return strings.FieldsFunc(Fold(text), func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			return false
		case r > 0x7f:
			return false
		default:
			return true
		}
	})
}
