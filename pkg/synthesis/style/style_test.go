package style

import (
	"strings"
	"testing"

	"mercator-hq/concierge/pkg/catalog"
)

func TestFormality(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		formality catalog.Formality
		want      string
	}{
		{"formal adds period", "Please hold", catalog.FormalityFormal, "Please hold."},
		{"formal keeps question", "Can I help?", catalog.FormalityFormal, "Can I help?"},
		{"formal trims trailing space", "Done!  ", catalog.FormalityFormal, "Done!"},
		{"warm adds opener", "Let me check that", catalog.FormalityWarm, EmpatheticOpener + " Let me check that."},
		{"warm keeps existing opener", "I understand the delay", catalog.FormalityWarm, "I understand the delay."},
		{"casual untouched", "hey there", catalog.FormalityCasual, "hey there"},
		{"warm empty", "", catalog.FormalityWarm, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Formality(tt.text, tt.formality); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLength(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		length catalog.Length
		want   string
	}{
		{
			name:   "concise strips filler",
			text:   "Basically, we need your order number. Please note that shipping is free.",
			length: catalog.LengthConcise,
			want:   "We need your order number. Shipping is free.",
		},
		{
			name:   "concise shortens in order to",
			text:   "Restart the app in order to apply the update.",
			length: catalog.LengthConcise,
			want:   "Restart the app to apply the update.",
		},
		{
			name:   "comprehensive adds completeness on troubleshooting",
			text:   "Walk through the error with the customer.",
			length: catalog.LengthComprehensive,
			want:   "Walk through the error with the customer. " + CompletenessSentence,
		},
		{
			name:   "comprehensive without keyword",
			text:   "Confirm the address.",
			length: catalog.LengthComprehensive,
			want:   "Confirm the address.",
		},
		{
			name:   "balanced untouched",
			text:   "Basically fine.",
			length: catalog.LengthBalanced,
			want:   "Basically fine.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Length(tt.text, tt.length); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTone(t *testing.T) {
	tests := []struct {
		name string
		text string
		tone catalog.Tone
		want string
	}{
		{"friendly adds clause", "Ask for the order number.", catalog.ToneFriendly, "Ask for the order number. " + HelpfulnessClause},
		{"friendly keeps help word", "Ask how you can help.", catalog.ToneFriendly, "Ask how you can help."},
		{"empathetic adds clause without punctuation", "Listen carefully", catalog.ToneEmpathetic, "Listen carefully. " + HelpfulnessClause},
		{"technical frames issue", "The login issue persists.", catalog.ToneTechnical, TechnicalFraming + "the login issue persists."},
		{"technical keeps acronym", "API issue reported.", catalog.ToneTechnical, TechnicalFraming + "API issue reported."},
		{"technical already technical", "A technical issue persists.", catalog.ToneTechnical, "A technical issue persists."},
		{"technical no issue", "All good.", catalog.ToneTechnical, "All good."},
		{"professional untouched", "Noted.", catalog.ToneProfessional, "Noted."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tone(tt.text, tt.tone); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	texts := []string{
		"Basically, the customer reports an issue with checkout",
		"Greet Jane and ask about her order",
		"Actually the printer is not working and shows an error",
		"",
		"I understand. Let me help",
	}

	var styles []catalog.Style
	for _, f := range []catalog.Formality{catalog.FormalityFormal, catalog.FormalityWarm, catalog.FormalityCasual} {
		for _, l := range []catalog.Length{catalog.LengthConcise, catalog.LengthBalanced, catalog.LengthComprehensive} {
			for _, tn := range []catalog.Tone{catalog.ToneFriendly, catalog.ToneProfessional, catalog.ToneTechnical, catalog.ToneEmpathetic} {
				styles = append(styles, catalog.Style{Formality: f, Length: l, Tone: tn})
			}
		}
	}

	for _, s := range styles {
		for _, text := range texts {
			once := Apply(text, s)
			twice := Apply(once, s)
			if once != twice {
				t.Errorf("style %+v not idempotent for %q:\n once: %q\ntwice: %q", s, text, once, twice)
			}
		}
	}
}

func TestApply_Order(t *testing.T) {
	s := catalog.Style{Formality: catalog.FormalityWarm, Length: catalog.LengthBalanced, Tone: catalog.ToneFriendly}
	got := Apply("Ask for the order number", s)

	if !strings.HasPrefix(got, EmpatheticOpener) {
		t.Errorf("expected opener first, got %q", got)
	}
	if !strings.HasSuffix(got, HelpfulnessClause) {
		t.Errorf("expected helpfulness clause last, got %q", got)
	}
}
