package style

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"mercator-hq/concierge/pkg/catalog"
)

// Inserted phrases. Each insertion is gated on the phrase's absence, so every
// transform is idempotent.
const (
	EmpatheticOpener     = "Thank you for reaching out."
	CompletenessSentence = "Cover every step in detail and confirm the problem is fully resolved before closing."
	HelpfulnessClause    = "I'm here to help."
	TechnicalFraming     = "From a technical standpoint, "
)

// openerPhrases suppress the empathetic opener when already present.
var openerPhrases = []string{
	"thank you for",
	"thanks for",
	"i understand",
	"i'm sorry",
	"i am sorry",
	"i apologize",
	"i appreciate",
}

// fillerPattern matches verbose filler phrases stripped for concise personas.
var fillerPattern = regexp.MustCompile(`(?i)\b(please note that|it is important to note that|as a matter of fact,?|at the end of the day,?|needless to say,?|basically,?|actually,?|in order to)\s+`)

var fillerReplacements = map[string]string{
	"in order to": "to ",
}

var troubleshootingPattern = regexp.MustCompile(`(?i)\b(troubleshoot\w*|error|issue|problem|fix|not working|broken|crash\w*)\b`)

var helpfulnessPattern = regexp.MustCompile(`(?i)\b(help\w*|assist\w*|support\w*)\b`)

var issuePattern = regexp.MustCompile(`(?i)\bissues?\b`)

var technicalPattern = regexp.MustCompile(`(?i)\btechnical\b`)

var spaces = regexp.MustCompile(` {2,}`)

var sentenceStart = regexp.MustCompile(`(^|[.!?]\s+)\p{Ll}`)

// Apply runs the persona's style transforms in order: formality, length, tone.
func Apply(text string, s catalog.Style) string {
	text = Formality(text, s.Formality)
	text = Length(text, s.Length)
	text = Tone(text, s.Tone)
	return text
}

// Formality ensures terminal punctuation for formal and warm personas; warm
// personas also get an empathetic opener unless one is present.
func Formality(text string, f catalog.Formality) string {
	switch f {
	case catalog.FormalityFormal:
		return ensureTerminalPunctuation(text)
	case catalog.FormalityWarm:
		text = ensureTerminalPunctuation(text)
		if text != "" && !hasOpener(text) {
			text = EmpatheticOpener + " " + text
		}
		return text
	default:
		return text
	}
}

// Length strips filler for concise personas and appends a completeness
// sentence for comprehensive personas when troubleshooting is mentioned.
func Length(text string, l catalog.Length) string {
	switch l {
	case catalog.LengthConcise:
		out := fillerPattern.ReplaceAllStringFunc(text, func(m string) string {
			key := strings.ToLower(strings.TrimSpace(m))
			if r, ok := fillerReplacements[key]; ok {
				return r
			}
			return ""
		})
		out = strings.TrimSpace(spaces.ReplaceAllString(out, " "))
		return capitalizeSentences(out)
	case catalog.LengthComprehensive:
		if troubleshootingPattern.MatchString(text) && !strings.Contains(text, CompletenessSentence) {
			return appendSentence(text, CompletenessSentence)
		}
		return text
	default:
		return text
	}
}

// Tone adds a helpfulness clause for friendly and empathetic personas and
// technical framing for technical personas.
func Tone(text string, t catalog.Tone) string {
	switch t {
	case catalog.ToneFriendly, catalog.ToneEmpathetic:
		if text != "" && !helpfulnessPattern.MatchString(text) {
			return appendSentence(text, HelpfulnessClause)
		}
		return text
	case catalog.ToneTechnical:
		if issuePattern.MatchString(text) && !technicalPattern.MatchString(text) {
			return TechnicalFraming + lowerFirst(text)
		}
		return text
	default:
		return text
	}
}

func ensureTerminalPunctuation(text string) string {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if text == "" {
		return text
	}
	r, _ := utf8.DecodeLastRuneInString(text)
	switch r {
	case '.', '!', '?':
		return text
	}
	return text + "."
}

func hasOpener(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range openerPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func appendSentence(text, sentence string) string {
	text = strings.TrimRightFunc(text, unicode.IsSpace)
	if text == "" {
		return sentence
	}
	return ensureTerminalPunctuation(text) + " " + sentence
}

// capitalizeSentences uppercases a lowercase letter that starts a sentence,
// which filler removal can leave behind.
func capitalizeSentences(text string) string {
	return sentenceStart.ReplaceAllStringFunc(text, func(m string) string {
		r, size := utf8.DecodeLastRuneInString(m)
		return m[:len(m)-size] + string(unicode.ToUpper(r))
	})
}

// lowerFirst lowercases the first letter unless the first word looks like
// an acronym or the pronoun "I".
func lowerFirst(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if size == 0 || !unicode.IsUpper(r) {
		return text
	}
	next, _ := utf8.DecodeRuneInString(text[size:])
	if unicode.IsUpper(next) || next == ' ' || next == '\'' {
		return text
	}
	return string(unicode.ToLower(r)) + text[size:]
}
