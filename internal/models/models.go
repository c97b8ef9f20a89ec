package models

// Role identifies the author of a conversation turn.
type Role = string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is the provider-neutral conversation turn exchanged with the UI and
// sent verbatim as an element of both providers' message arrays.
type Message struct {
	Role    Role   `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// UserMessage returns a user turn carrying text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AppendUserTurn copies history into a fresh slice and appends the new user turn.
// The caller's slice is never aliased.
func AppendUserTurn(history []Message, text string) []Message {
	out := make([]Message, 0, len(history)+1)
	out = append(out, history...)
	return append(out, UserMessage(text))
}
