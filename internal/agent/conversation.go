package agent

import "time"

// Role identifies who produced a turn.
type Role string

// Conversation roles. Tool results and protocol corrections are fed back
// to the model as user turns.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation log. Turns are never modified
// after they are appended.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Conversation is an append-only, ordered log of turns. The system
// instruction is never stored in it.
type Conversation struct {
	turns []Turn
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a turn to the end of the log.
func (c *Conversation) Append(t Turn) {
	c.turns = append(c.turns, t)
}

// Window returns a copy of the last n turns in order. When the log is
// shorter than n, or n <= 0, every turn is returned.
func (c *Conversation) Window(n int) []Turn {
	start := 0
	if n > 0 && len(c.turns) > n {
		start = len(c.turns) - n
	}
	return append([]Turn(nil), c.turns[start:]...)
}

// Turns returns a copy of the whole log.
func (c *Conversation) Turns() []Turn {
	return c.Window(0)
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}
