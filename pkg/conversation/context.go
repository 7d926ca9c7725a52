package conversation

import (
	"strconv"
	"strings"
)

// Context is the live state of one support conversation as seen by the
// synthesis engine. It is owned by the conversation manager and treated as
// read-only input for a single generation.
type Context struct {
	// SessionID namespaces per-session state (escalation, counters).
	SessionID string `json:"session_id" yaml:"session_id"`

	// Customer holds customer profile fields (e.g., customer_name, plan).
	Customer map[string]string `json:"customer,omitempty" yaml:"customer,omitempty"`

	// Topic is the current conversation topic (e.g., "billing").
	Topic string `json:"topic,omitempty" yaml:"topic,omitempty"`

	// Intent is the detected customer intent.
	Intent string `json:"intent,omitempty" yaml:"intent,omitempty"`

	// EscalationLevel is the conversation's numeric escalation level.
	EscalationLevel int `json:"escalation_level" yaml:"escalation_level"`

	// AgentTier is the tier of the agent handling the conversation.
	// Zero means the persona's knowledge tier is used.
	AgentTier int `json:"agent_tier" yaml:"agent_tier"`

	// Step is the conversation step index.
	Step int `json:"step" yaml:"step"`

	// MessageCount is the number of messages exchanged so far.
	MessageCount int `json:"message_count" yaml:"message_count"`

	// Fields holds flow fields filled by the entity extractor.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`

	// LastMessage is the latest customer message.
	LastMessage string `json:"last_message,omitempty" yaml:"last_message,omitempty"`
}

// Built-in variable names resolvable from any context.
const (
	VarSessionID       = "session_id"
	VarTopic           = "topic"
	VarIntent          = "intent"
	VarAgentTier       = "agent_tier"
	VarEscalationLevel = "escalation_level"
	VarStep            = "step"
	VarMessageCount    = "message_count"
)

// Lookup returns the context-derived value for a variable name.
// Customer profile fields win over extracted flow fields, which win over the
// built-in context attributes. Empty values are treated as absent.
func (c *Context) Lookup(name string) (string, bool) {
	if c == nil {
		return "", false
	}

	if v, ok := c.Customer[name]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}
	if v, ok := c.Fields[name]; ok && strings.TrimSpace(v) != "" {
		return v, true
	}

	switch name {
	case VarSessionID:
		return c.SessionID, c.SessionID != ""
	case VarTopic:
		return c.Topic, c.Topic != ""
	case VarIntent:
		return c.Intent, c.Intent != ""
	case VarAgentTier:
		return strconv.Itoa(c.AgentTier), true
	case VarEscalationLevel:
		return strconv.Itoa(c.EscalationLevel), true
	case VarStep:
		return strconv.Itoa(c.Step), true
	case VarMessageCount:
		return strconv.Itoa(c.MessageCount), true
	}

	return "", false
}

// CompletionRatio returns the fraction of required flow fields that have a
// non-empty value. A flow with no required fields has ratio 0.
func (c *Context) CompletionRatio(required []string) float64 {
	if len(required) == 0 || c == nil {
		return 0
	}

	filled := 0
	for _, field := range required {
		if strings.TrimSpace(c.Fields[field]) != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(required))
}

// CustomerText returns the text the customer has supplied in this turn,
// used for keyword and pattern matching.
func (c *Context) CustomerText() string {
	if c == nil {
		return ""
	}
	return c.LastMessage
}

// Clone returns a deep copy of the context.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	out.Customer = cloneMap(c.Customer)
	out.Fields = cloneMap(c.Fields)
	return &out
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
