package chats

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

type stubChats struct {
	chats    map[int64]domain.Chat
	lastList domain.ChatFilter
	upserts  []domain.InboundMessage
}

func newStubChats() *stubChats {
	return &stubChats{chats: map[int64]domain.Chat{
		1: {ID: 1, Platform: domain.PlatformTelegram, PeerID: 100, Title: "Анна"},
	}}
}

func (s *stubChats) ListChats(_ context.Context, f domain.ChatFilter) ([]domain.Chat, error) {
	s.lastList = f
	return nil, nil
}

func (s *stubChats) GetChat(_ context.Context, id int64) (domain.Chat, error) {
	c, ok := s.chats[id]
	if !ok {
		return domain.Chat{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *stubChats) UpdateChat(_ context.Context, id int64, patch domain.ChatPatch) (domain.Chat, error) {
	c, ok := s.chats[id]
	if !ok {
		return domain.Chat{}, domain.ErrNotFound
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Archived != nil {
		c.Archived = *patch.Archived
	}
	s.chats[id] = c
	return c, nil
}

func (s *stubChats) UpsertChatByPeer(_ context.Context, in domain.InboundMessage) (domain.Chat, error) {
	s.upserts = append(s.upserts, in)
	return domain.Chat{ID: 42, Platform: in.Platform, PeerID: in.PeerID}, nil
}

type stubMessages struct {
	saved []domain.Message
}

func (s *stubMessages) SaveMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	msg.ID = int64(len(s.saved) + 1)
	s.saved = append(s.saved, msg)
	return msg, nil
}

func (s *stubMessages) ListMessages(context.Context, int64, int, int64) ([]domain.Message, error) {
	return nil, nil
}

type stubSender struct {
	sent []domain.Recipient
	err  error
}

func (s *stubSender) Send(_ context.Context, to domain.Recipient, _ domain.BroadcastPayload) (domain.SendAck, error) {
	if s.err != nil {
		return domain.SendAck{}, s.err
	}
	s.sent = append(s.sent, to)
	return domain.SendAck{}, nil
}

type stubPublisher struct {
	topics []string
}

func (p *stubPublisher) Publish(topic string, _ any) { p.topics = append(p.topics, topic) }

func TestReplySendsSavesAndPublishes(t *testing.T) {
	chats, msgs, snd, pub := newStubChats(), &stubMessages{}, &stubSender{}, &stubPublisher{}
	svc := NewService(chats, msgs, snd, pub, zerolog.Nop())

	msg, err := svc.Reply(context.Background(), 1, "  Ваш заказ готов  ")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(snd.sent) != 1 || snd.sent[0].PeerID != 100 {
		t.Fatalf("ответ не отправлен: %+v", snd.sent)
	}
	if !msg.FromOperator || msg.Text != "Ваш заказ готов" {
		t.Fatalf("неожиданное сообщение: %+v", msg)
	}
	if !reflect.DeepEqual(pub.topics, []string{domain.TopicMessages}) {
		t.Fatalf("неожиданные события: %v", pub.topics)
	}
}

func TestReplyErrors(t *testing.T) {
	msgs := &stubMessages{}
	svc := NewService(newStubChats(), msgs, &stubSender{err: errors.New("blocked")}, nil, zerolog.Nop())

	if _, err := svc.Reply(context.Background(), 1, " "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("ожидали ErrEmptyText, получили %v", err)
	}
	if _, err := svc.Reply(context.Background(), 99, "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
	if _, err := svc.Reply(context.Background(), 1, "x"); err == nil {
		t.Fatalf("ожидали ошибку отправки")
	}
	if len(msgs.saved) != 0 {
		t.Fatalf("неотправленный ответ не сохраняется")
	}
}

func TestRecordInboundNormalizesPlatform(t *testing.T) {
	chats, msgs, pub := newStubChats(), &stubMessages{}, &stubPublisher{}
	svc := NewService(chats, msgs, &stubSender{}, pub, zerolog.Nop())
	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("MSK", 3*3600))

	msg, err := svc.RecordInbound(context.Background(), domain.InboundMessage{Platform: "Telegram", PeerID: 5, Text: "хочу пиццу", SentAt: sentAt})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if chats.upserts[0].Platform != domain.PlatformTelegram {
		t.Fatalf("платформа не нормализована: %q", chats.upserts[0].Platform)
	}
	if msg.ChatID != 42 || msg.FromOperator || !msg.CreatedAt.Equal(sentAt) {
		t.Fatalf("неожиданное сообщение: %+v", msg)
	}
	if !reflect.DeepEqual(pub.topics, []string{domain.TopicChats, domain.TopicMessages}) {
		t.Fatalf("неожиданные события: %v", pub.topics)
	}

	if _, err := svc.RecordInbound(context.Background(), domain.InboundMessage{Platform: "icq", PeerID: 5}); !errors.Is(err, ErrInvalidInbound) {
		t.Fatalf("ожидали ErrInvalidInbound, получили %v", err)
	}
}

func TestUpdateChatPublishes(t *testing.T) {
	pub := &stubPublisher{}
	svc := NewService(newStubChats(), &stubMessages{}, &stubSender{}, pub, zerolog.Nop())

	archived := true
	chat, err := svc.UpdateChat(context.Background(), 1, domain.ChatPatch{Archived: &archived})
	if err != nil || !chat.Archived {
		t.Fatalf("чат не архивирован: %+v, %v", chat, err)
	}
	if len(pub.topics) != 1 || pub.topics[0] != domain.TopicChats {
		t.Fatalf("неожиданные события: %v", pub.topics)
	}

	empty := "  "
	if _, err := svc.UpdateChat(context.Background(), 1, domain.ChatPatch{Title: &empty}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("ожидали ErrEmptyTitle, получили %v", err)
	}
}

func TestListChatsFoldsQuery(t *testing.T) {
	chats := newStubChats()
	svc := NewService(chats, &stubMessages{}, &stubSender{}, nil, zerolog.Nop())

	list, err := svc.ListChats(context.Background(), domain.ChatFilter{Query: "  Фёдор "})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Fatalf("ожидали пустой, но не nil список")
	}
	if chats.lastList.Query != "федор" {
		t.Fatalf("запрос не нормализован: %q", chats.lastList.Query)
	}
}
