package chat

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/solace-health/therapy/users"
)

var ErrNotFound = errors.New("conversation not found")

const (
	// MaxMessages caps a conversation; appending past the cap drops the
	// oldest messages first.
	MaxMessages = 500
	// MaxMessageLength applies after control characters are stripped.
	MaxMessageLength = 2000

	// DecryptFailurePlaceholder replaces a message body that failed its
	// integrity check. Other messages in the thread render normally.
	DecryptFailurePlaceholder = "[Unable to decrypt message]"
)

// Message is one sealed chat entry. The body is never stored in the clear.
type Message struct {
	Id       primitive.ObjectID `bson:"_id"`
	SenderId primitive.ObjectID `bson:"sender"`
	Envelope `bson:",inline"`
	SentAt   time.Time `bson:"sentAt"`
}

// Conversation holds the message history between one client and one
// therapist. The pair is unique; both sides read and write the same document.
type Conversation struct {
	Id          *primitive.ObjectID `bson:"_id,omitempty"`
	UserId      primitive.ObjectID  `bson:"user"`
	TherapistId primitive.ObjectID  `bson:"therapist"`
	Messages    []Message           `bson:"messages"`
	CreatedAt   *time.Time          `bson:"createdAt,omitempty"`
	UpdatedAt   *time.Time          `bson:"updatedAt,omitempty"`
}

// MessageView is the decrypted projection served to a reader.
type MessageView struct {
	Id       primitive.ObjectID `json:"id"`
	SenderId primitive.ObjectID `json:"senderId"`
	Body     string             `json:"body"`
	IsMe     bool               `json:"isMe"`
	SentAt   time.Time          `json:"sentAt"`
}

type Thread struct {
	ConversationId primitive.ObjectID `json:"conversationId"`
	UserId         primitive.ObjectID `json:"userId"`
	TherapistId    primitive.ObjectID `json:"therapistId"`
	Messages       []MessageView      `json:"messages"`
}

type Service interface {
	// Thread resolves the reader's conversation and returns it decrypted.
	// Clients may omit the counterpart; therapists must name the client.
	Thread(ctx context.Context, reader *users.User, counterpart *primitive.ObjectID) (*Thread, error)
	SendMessage(ctx context.Context, sender *users.User, counterpart *primitive.ObjectID, body string) (*MessageView, error)
}
