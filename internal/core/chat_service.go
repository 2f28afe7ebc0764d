package core

import (
	"context"
	"fmt"

	"github.com/Duval1703/chatbot/internal/logger"
	"github.com/Duval1703/chatbot/internal/store"
)

const (
	sessionNameMaxRunes = 50
	historyFetchLimit   = 10
)

// ConversationStore persists sessions and their messages.
type ConversationStore interface {
	CreateSession(ctx context.Context, userID, name string) (*store.ChatSession, error)
	GetSession(ctx context.Context, sessionID, userID string) (*store.ChatSession, error)
	ListSessions(ctx context.Context, userID string) ([]store.SessionSummary, error)
	SoftDeleteSession(ctx context.Context, sessionID, userID string) error
	CreateMessage(ctx context.Context, msg *store.Message) error
	GetRecentMessages(ctx context.Context, sessionID string, n int) ([]store.Message, error)
	GetSessionMessages(ctx context.Context, sessionID string) ([]store.Message, error)
}

type ChatService struct {
	store     ConversationStore
	generator Generator
}

func NewChatService(s ConversationStore, g Generator) *ChatService {
	return &ChatService{
		store:     s,
		generator: g,
	}
}

// ResolveOrCreateSession returns the caller's session when sessionID is set,
// otherwise creates one named after the first message.
func (s *ChatService) ResolveOrCreateSession(ctx context.Context, userID string, sessionID *string, firstMessage string) (*store.ChatSession, error) {
	if sessionID != nil && *sessionID != "" {
		session, err := s.store.GetSession(ctx, *sessionID, userID)
		if err != nil {
			return nil, storeError("resolve session", err)
		}
		return session, nil
	}

	session, err := s.store.CreateSession(ctx, userID, SessionName(firstMessage))
	if err != nil {
		return nil, storeError("create session", err)
	}
	return session, nil
}

// SessionName truncates a first message into a display name.
func SessionName(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > sessionNameMaxRunes {
		return string(runes[:sessionNameMaxRunes]) + "..."
	}
	return firstMessage
}

func (s *ChatService) AppendMessage(ctx context.Context, sessionID, userID, content, sender, language string) (*store.Message, error) {
	msg := &store.Message{
		SessionID: sessionID,
		UserID:    userID,
		Content:   content,
		Sender:    sender,
		Language:  language,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, storeError("append message", err)
	}
	return msg, nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *ChatService) RecentMessages(ctx context.Context, sessionID string, limit int) ([]store.Message, error) {
	msgs, err := s.store.GetRecentMessages(ctx, sessionID, limit)
	if err != nil {
		return nil, storeError("recent messages", err)
	}
	return msgs, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]store.SessionSummary, error) {
	sessions, err := s.store.ListSessions(ctx, userID)
	if err != nil {
		return nil, storeError("list sessions", err)
	}
	return sessions, nil
}

// GetSessionDetails returns a session and all its messages in order.
// Soft-deleted sessions remain readable by their owner.
func (s *ChatService) GetSessionDetails(ctx context.Context, sessionID, userID string) (*store.ChatSession, []store.Message, error) {
	session, err := s.store.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, nil, storeError("get session", err)
	}

	messages, err := s.store.GetSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, nil, storeError("get session messages", err)
	}
	return session, messages, nil
}

func (s *ChatService) SoftDeleteSession(ctx context.Context, sessionID, userID string) error {
	if err := s.store.SoftDeleteSession(ctx, sessionID, userID); err != nil {
		return storeError("delete session", err)
	}
	return nil
}

type TurnInput struct {
	UserID    string
	Message   string
	Language  string
	SessionID *string
}

type TurnResult struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
}

// HandleTurn runs one chat turn. Each step commits on its own; a failure
// after the user message is stored leaves it without a reply.
func (s *ChatService) HandleTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	session, err := s.ResolveOrCreateSession(ctx, in.UserID, in.SessionID, in.Message)
	if err != nil {
		return nil, err
	}

	l := logger.Ctx(ctx).With().Str(logger.FieldSessionID, session.ID).Logger()

	userMsg, err := s.AppendMessage(ctx, session.ID, in.UserID, in.Message, store.SenderUser, in.Language)
	if err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	recent, err := s.RecentMessages(ctx, session.ID, historyFetchLimit)
	if err != nil {
		return nil, err
	}
	history := historyFromRecent(recent, userMsg.ID)

	reply := s.generator.Generate(ctx, in.Message, in.Language, history)

	botMsg, err := s.AppendMessage(ctx, session.ID, in.UserID, reply, store.SenderBot, in.Language)
	if err != nil {
		return nil, fmt.Errorf("store bot message: %w", err)
	}

	l.Debug().Int("history_turns", len(history)).Str("message_id", botMsg.ID).Msg("chat turn completed")

	return &TurnResult{
		Response:  reply,
		SessionID: session.ID,
		MessageID: botMsg.ID,
	}, nil
}

// historyFromRecent turns newest-first messages into chronological turns,
// leaving out the live message.
func historyFromRecent(recent []store.Message, liveID string) []Turn {
	history := make([]Turn, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		msg := recent[i]
		if msg.ID == liveID {
			continue
		}
		role := RoleUser
		if msg.Sender == store.SenderBot {
			role = RoleAssistant
		}
		history = append(history, Turn{Role: role, Content: msg.Content})
	}
	return history
}
