package schema

// Speaker identifies who produced a chat turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// DefaultHistoryLimit is the number of turns kept for chat prompts.
const DefaultHistoryLimit = 20

// ChatTurn is one message of the chat conversation.
type ChatTurn struct {
	Speaker Speaker `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
}

// ChatHistory is an append-only conversation bounded to the most recent turns.
type ChatHistory struct {
	limit int
	turns []ChatTurn
}

// NewChatHistory creates an empty history holding at most limit turns.
// A non-positive limit falls back to DefaultHistoryLimit.
func NewChatHistory(limit int) *ChatHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ChatHistory{limit: limit}
}

// Append adds turns in order and evicts the oldest turns beyond the limit.
func (h *ChatHistory) Append(turns ...ChatTurn) {
	h.turns = append(h.turns, turns...)
	if over := len(h.turns) - h.limit; over > 0 {
		h.turns = append([]ChatTurn(nil), h.turns[over:]...)
	}
}

// Turns returns a copy of the retained turns, oldest first.
func (h *ChatHistory) Turns() []ChatTurn {
	out := make([]ChatTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of retained turns.
func (h *ChatHistory) Len() int {
	return len(h.turns)
}

// Limit returns the maximum number of retained turns.
func (h *ChatHistory) Limit() int {
	return h.limit
}
