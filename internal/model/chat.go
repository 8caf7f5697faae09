package model

// Role identifies who wrote a chat message.
type Role string

// Chat roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the regulation chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
