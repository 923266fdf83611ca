package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

var (
	ErrEmptyText      = errors.New("text is required")
	ErrEmptyTitle     = errors.New("title must not be empty")
	ErrInvalidInbound = errors.New("inbound message without platform or peer")
)

// Service управляет чатами и историей сообщений.
type Service struct {
	chats     domain.ChatRepo
	messages  domain.MessageRepo
	sender    domain.Sender
	publisher domain.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис чатов.
func NewService(chats domain.ChatRepo, messages domain.MessageRepo, sender domain.Sender, publisher domain.Publisher, log zerolog.Logger) *Service {
	return &Service{
		chats:     chats,
		messages:  messages,
		sender:    sender,
		publisher: publisher,
		log:       log.With().Str("component", "chats").Logger(),
		now:       time.Now,
	}
}

// ListChats возвращает чаты по фильтру.
func (s *Service) ListChats(ctx context.Context, f domain.ChatFilter) ([]domain.Chat, error) {
	f.Query = domain.FoldText(f.Query)
	list, err := s.chats.ListChats(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("список чатов: %w", err)
	}
	if list == nil {
		list = []domain.Chat{}
	}
	return list, nil
}

// GetChat возвращает чат по id.
func (s *Service) GetChat(ctx context.Context, id int64) (domain.Chat, error) {
	return s.chats.GetChat(ctx, id)
}

// UpdateChat меняет название или признак архива и публикует событие chats.
func (s *Service) UpdateChat(ctx context.Context, id int64, patch domain.ChatPatch) (domain.Chat, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.Chat{}, ErrEmptyTitle
	}
	chat, err := s.chats.UpdateChat(ctx, id, patch)
	if err != nil {
		return domain.Chat{}, err
	}
	s.publish(domain.TopicChats, chat)
	return chat, nil
}

// ListMessages возвращает историю чата от новых к старым.
func (s *Service) ListMessages(ctx context.Context, chatID int64, limit int, beforeID int64) ([]domain.Message, error) {
	if _, err := s.chats.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	list, err := s.messages.ListMessages(ctx, chatID, limit, beforeID)
	if err != nil {
		return nil, fmt.Errorf("история сообщений: %w", err)
	}
	if list == nil {
		list = []domain.Message{}
	}
	return list, nil
}

// Reply отправляет ответ оператора в чат и сохраняет его в истории.
func (s *Service) Reply(ctx context.Context, chatID int64, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, ErrEmptyText
	}
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return domain.Message{}, err
	}

	to := domain.Recipient{ChatID: chat.ID, Platform: chat.Platform, PeerID: chat.PeerID}
	if _, err := s.sender.Send(ctx, to, domain.BroadcastPayload{Text: text}); err != nil {
		return domain.Message{}, fmt.Errorf("отправка ответа: %w", err)
	}

	msg, err := s.messages.SaveMessage(ctx, domain.Message{ChatID: chat.ID, FromOperator: true, Text: text, CreatedAt: s.now().UTC()})
	if err != nil {
		return domain.Message{}, fmt.Errorf("сохранение ответа: %w", err)
	}
	s.publish(domain.TopicMessages, msg)
	return msg, nil
}

// RecordInbound сохраняет входящее сообщение от бота, создавая чат при первом обращении.
func (s *Service) RecordInbound(ctx context.Context, in domain.InboundMessage) (domain.Message, error) {
	platform, ok := domain.NormalizePlatform(string(in.Platform))
	if !ok || in.PeerID == 0 {
		return domain.Message{}, ErrInvalidInbound
	}
	in.Platform = platform
	if in.SentAt.IsZero() {
		in.SentAt = s.now()
	}
	in.SentAt = in.SentAt.UTC()

	chat, err := s.chats.UpsertChatByPeer(ctx, in)
	if err != nil {
		return domain.Message{}, fmt.Errorf("сохранение чата: %w", err)
	}
	msg, err := s.messages.SaveMessage(ctx, domain.Message{ChatID: chat.ID, Text: in.Text, CreatedAt: in.SentAt})
	if err != nil {
		return domain.Message{}, fmt.Errorf("сохранение сообщения: %w", err)
	}
	s.log.Debug().Int64("chat_id", chat.ID).Str("platform", string(platform)).Msg("входящее сообщение")
	s.publish(domain.TopicChats, chat)
	s.publish(domain.TopicMessages, msg)
	return msg, nil
}

func (s *Service) publish(topic string, data any) {
	if s.publisher != nil {
		s.publisher.Publish(topic, data)
	}
}
