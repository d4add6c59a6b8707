package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	errs "github.com/solace-health/therapy/errors"
	"github.com/solace-health/therapy/users"
)

func NewService(repo Repository, usersService users.Service, crypto *Crypto, limiter *Limiter, logger *zap.SugaredLogger) (Service, error) {
	return &service{
		repo:    repo,
		users:   usersService,
		crypto:  crypto,
		limiter: limiter,
		logger:  logger,
	}, nil
}

type service struct {
	repo    Repository
	users   users.Service
	crypto  *Crypto
	limiter *Limiter
	logger  *zap.SugaredLogger
}

func (s *service) Thread(ctx context.Context, reader *users.User, counterpart *primitive.ObjectID) (*Thread, error) {
	userId, therapistId, err := s.resolveParticipants(ctx, reader, counterpart)
	if err != nil {
		return nil, err
	}

	conversation, err := s.repo.GetOrCreate(ctx, userId, therapistId)
	if err != nil {
		return nil, err
	}

	return s.project(conversation, *reader.Id), nil
}

func (s *service) SendMessage(ctx context.Context, sender *users.User, counterpart *primitive.ObjectID, body string) (*MessageView, error) {
	if !s.limiter.Allow(sender.Id.Hex()) {
		return nil, errs.HttpError{Code: http.StatusTooManyRequests, Err: errors.New("too many messages, slow down")}
	}
	if !s.crypto.Ready() {
		return nil, errs.Internalf("chat encryption is not configured")
	}

	body = sanitizeBody(body)
	if body == "" {
		return nil, errs.Badf("message body is empty")
	}
	if utf8.RuneCountInString(body) > MaxMessageLength {
		return nil, errs.Badf("message exceeds %d characters", MaxMessageLength)
	}

	userId, therapistId, err := s.resolveParticipants(ctx, sender, counterpart)
	if err != nil {
		return nil, err
	}

	envelope, err := s.crypto.Encrypt(body)
	if err != nil {
		return nil, err
	}

	message := Message{
		Id:       primitive.NewObjectID(),
		SenderId: *sender.Id,
		Envelope: envelope,
		SentAt:   time.Now(),
	}
	if err := s.repo.AppendMessage(ctx, userId, therapistId, message); err != nil {
		return nil, err
	}

	return &MessageView{
		Id:       message.Id,
		SenderId: message.SenderId,
		Body:     body,
		IsMe:     true,
		SentAt:   message.SentAt,
	}, nil
}

// resolveParticipants maps the reader onto the (user, therapist) pair they may
// access. Clients always land on their own assigned therapist; therapists must
// name one of their clients.
func (s *service) resolveParticipants(ctx context.Context, reader *users.User, counterpart *primitive.ObjectID) (primitive.ObjectID, primitive.ObjectID, error) {
	var zero primitive.ObjectID

	switch reader.Role {
	case users.RoleUser:
		if reader.AssignedTherapist == nil {
			return zero, zero, errs.Badf("no therapist assigned")
		}
		if counterpart != nil && *counterpart != *reader.AssignedTherapist {
			return zero, zero, errs.Forbiddenf("conversation is not accessible")
		}
		return *reader.Id, *reader.AssignedTherapist, nil

	case users.RoleTherapist:
		if counterpart == nil {
			return zero, zero, errs.Badf("client id is required")
		}
		client, err := s.users.Get(ctx, *counterpart)
		if err != nil || !client.IsClient() {
			return zero, zero, errs.NotFoundf("client %s not found", counterpart.Hex())
		}
		if !client.IsClientOf(*reader.Id) {
			return zero, zero, errs.Forbiddenf("client %s is not assigned to this therapist", counterpart.Hex())
		}
		return *client.Id, *reader.Id, nil
	}

	return zero, zero, errs.Forbiddenf("chat is not available for this role")
}

// project decrypts the history for one reader. A message that fails its
// integrity check renders as a placeholder without poisoning the rest of the
// thread.
func (s *service) project(conversation *Conversation, readerId primitive.ObjectID) *Thread {
	thread := &Thread{
		ConversationId: *conversation.Id,
		UserId:         conversation.UserId,
		TherapistId:    conversation.TherapistId,
		Messages:       make([]MessageView, 0, len(conversation.Messages)),
	}

	for _, message := range conversation.Messages {
		body, err := s.crypto.Decrypt(message.Envelope)
		if err != nil {
			s.logger.Warnw("unable to decrypt message",
				"conversationId", conversation.Id.Hex(),
				"messageId", message.Id.Hex(),
				"error", err,
			)
			body = DecryptFailurePlaceholder
		}
		thread.Messages = append(thread.Messages, MessageView{
			Id:       message.Id,
			SenderId: message.SenderId,
			Body:     body,
			IsMe:     message.SenderId == readerId,
			SentAt:   message.SentAt,
		})
	}

	return thread
}

// sanitizeBody strips control characters, keeping line breaks and tabs, then
// trims surrounding whitespace.
func sanitizeBody(body string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, body)
	return strings.TrimSpace(cleaned)
}
