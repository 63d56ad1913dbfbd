package domain

// Sender identifies who produced a Message.
type Sender string

const (
	SenderSystem Sender = "system"
	SenderUser   Sender = "user"
)

// Message is a single entry in the session's conversation and status log.
type Message struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

func SystemMessage(text string) Message {
	return Message{Sender: SenderSystem, Text: text}
}

func UserMessage(text string) Message {
	return Message{Sender: SenderUser, Text: text}
}
