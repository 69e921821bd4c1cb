// models/chat.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation links a user and a manager, optionally around a service
type Conversation struct {
	ID            primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        primitive.ObjectID  `json:"userId" bson:"userId"`
	ManagerID     primitive.ObjectID  `json:"managerId" bson:"managerId"`
	ServiceID     *primitive.ObjectID `json:"serviceId,omitempty" bson:"serviceId,omitempty"`
	LastMessage   string              `json:"lastMessage,omitempty" bson:"lastMessage,omitempty"`
	LastMessageAt time.Time           `json:"lastMessageAt" bson:"lastMessageAt"`
	CreatedAt     time.Time           `json:"createdAt" bson:"createdAt"`
}

// ChatMessage is one message inside a conversation
type ChatMessage struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversationId" bson:"conversationId"`
	SenderID       primitive.ObjectID `json:"senderId" bson:"senderId"`
	Content        string             `json:"content" bson:"content"`
	ReadAt         *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
}

// SendMessageRequest posts a message; a missing conversationId opens a new
// conversation with the given manager
type SendMessageRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	ManagerID      string `json:"managerId,omitempty"`
	ServiceID      string `json:"serviceId,omitempty"`
	Content        string `json:"content" validate:"required"`
}
