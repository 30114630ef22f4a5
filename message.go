package l3agi

import "context"

// Message roles.
const (
	RoleHuman = "human"
	RoleAI    = "ai"
)

// ChatMessage is a persisted chat turn.
type ChatMessage struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	// ParentID is the human message an AI message answers.
	ParentID string `json:"parent_id,omitempty"`
	AgentID  string `json:"agent_id,omitempty"`
	VoiceURL string `json:"voice_url,omitempty"`
	// SenderName is the display name of a human sender.
	SenderName string `json:"sender_name,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// NewAIMessage builds the AI reply to humanMessageID.
func NewAIMessage(sessionID, text, humanMessageID, agentID, voiceURL string) ChatMessage {
	return ChatMessage{
		ID:        NewID(),
		SessionID: sessionID,
		Role:      RoleAI,
		Content:   text,
		ParentID:  humanMessageID,
		AgentID:   agentID,
		VoiceURL:  voiceURL,
		CreatedAt: NowUnix(),
	}
}

// NewHumanMessage builds a message sent by a person.
func NewHumanMessage(sessionID, text, senderName, voiceURL string) ChatMessage {
	return ChatMessage{
		ID:         NewID(),
		SessionID:  sessionID,
		Role:       RoleHuman,
		Content:    text,
		SenderName: senderName,
		VoiceURL:   voiceURL,
		CreatedAt:  NowUnix(),
	}
}

// MessageStore persists chat messages per session.
type MessageStore interface {
	StoreMessage(ctx context.Context, msg ChatMessage) error
	// GetMessages returns the most recent messages of a session, oldest first.
	GetMessages(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error)
	Init(ctx context.Context) error
	Close() error
}

// Publisher delivers chat messages to live subscribers. Delivery is
// fire-and-forget: a nil error means the message was handed to the transport.
type Publisher interface {
	SendChatMessage(ctx context.Context, msg ChatMessage) error
}
