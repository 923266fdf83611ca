package sse

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

func drain(c *Client) []string {
	var frames []string
	for {
		select {
		case f := <-c.Frames():
			frames = append(frames, string(f))
		default:
			return frames
		}
	}
}

func TestHubTopicIsolation(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	orders := NewClient(8)
	hub.Subscribe(domain.TopicOrders, orders)

	hub.Publish(domain.TopicChats, map[string]int{"id": 1})
	if got := drain(orders); len(got) != 0 {
		t.Fatalf("подписчик orders не должен получать chats: %v", got)
	}

	hub.Publish(domain.TopicOrders, map[string]int{"id": 2})
	got := drain(orders)
	if len(got) != 1 {
		t.Fatalf("ожидали 1 кадр, получили %d", len(got))
	}
	if got[0] != "event: orders\ndata: {\"id\":2}\n\n" {
		t.Fatalf("неожиданный кадр: %q", got[0])
	}
}

func TestHubCatchAllReceivesEverything(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	all := NewClient(8)
	hub.Subscribe(domain.TopicAll, all)

	hub.Publish(domain.TopicChats, 1)
	hub.Publish(domain.TopicOrders, 2)
	hub.Publish("custom", 3)

	got := drain(all)
	if len(got) != 3 {
		t.Fatalf("ожидали 3 кадра, получили %d", len(got))
	}
	for i, prefix := range []string{"event: chats", "event: orders", "event: custom"} {
		if !strings.HasPrefix(got[i], prefix) {
			t.Fatalf("кадр %d = %q", i, got[i])
		}
	}
}

func TestHubNoDedupAcrossTopicAndCatchAll(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := NewClient(8)
	hub.Subscribe(domain.TopicOrders, c)
	hub.Subscribe(domain.TopicAll, c)

	hub.Publish(domain.TopicOrders, 1)
	if got := drain(c); len(got) != 2 {
		t.Fatalf("ожидали 2 кадра, получили %d", len(got))
	}

	hub.Publish(domain.TopicAll, 1)
	if got := drain(c); len(got) != 1 {
		t.Fatalf("публикация в * должна доставляться один раз, получили %d", len(got))
	}
}

func TestHubUnsubscribeRemovesEmptyTopics(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := NewClient(8)
	b := NewClient(8)
	hub.Subscribe(domain.TopicOrders, a)
	hub.Subscribe(domain.TopicOrders, b)
	hub.Subscribe(domain.TopicChats, a)

	hub.Unsubscribe(domain.TopicOrders, a)
	if hub.SubscriberCount(domain.TopicOrders) != 1 {
		t.Fatalf("ожидали одного подписчика orders")
	}
	hub.Publish(domain.TopicOrders, 1)
	if got := drain(a); len(got) != 0 {
		t.Fatalf("после отписки кадры не должны приходить: %v", got)
	}

	hub.Unsubscribe(domain.TopicOrders, b)
	hub.Unsubscribe(domain.TopicChats, a)
	if hub.TopicCount() != 0 {
		t.Fatalf("пустые топики должны удаляться, осталось %d", hub.TopicCount())
	}
	hub.Unsubscribe("missing", a)
}

func TestHubSwallowsSlowAndClosedClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := NewClient(1)
	closed := NewClient(4)
	healthy := NewClient(4)
	closed.Close()
	for _, c := range []*Client{slow, closed, healthy} {
		hub.Subscribe(domain.TopicMessages, c)
	}

	hub.Publish(domain.TopicMessages, 1)
	hub.Publish(domain.TopicMessages, 2)

	if got := drain(healthy); len(got) != 2 {
		t.Fatalf("здоровый клиент должен получить 2 кадра, получил %d", len(got))
	}
	if got := drain(slow); len(got) != 1 {
		t.Fatalf("медленный клиент должен получить 1 кадр, получил %d", len(got))
	}
	if got := drain(closed); len(got) != 0 {
		t.Fatalf("закрытый клиент не должен получать кадры")
	}
}

func TestHubClosesOverflowingClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := NewClient(defaultClientBuffer)
	healthy := NewClient(defaultClientBuffer + 1)
	hub.Subscribe(domain.TopicOrders, slow)
	hub.Subscribe(domain.TopicOrders, healthy)

	for i := 0; i < defaultClientBuffer; i++ {
		hub.Publish(domain.TopicOrders, i)
	}
	select {
	case <-slow.Done():
		t.Fatal("клиент с заполненным, но не переполненным буфером не должен закрываться")
	default:
	}

	hub.Publish(domain.TopicOrders, defaultClientBuffer)
	select {
	case <-slow.Done():
	default:
		t.Fatal("переполненный клиент должен быть закрыт")
	}
	select {
	case <-healthy.Done():
		t.Fatal("клиент с запасом буфера закрываться не должен")
	default:
	}

	hub.Publish(domain.TopicOrders, "после закрытия")
	if got := drain(slow); len(got) != defaultClientBuffer {
		t.Fatalf("после закрытия кадры не добавляются, в буфере %d", len(got))
	}
	slow.Close()
}

func TestParseTopics(t *testing.T) {
	if got := ParseTopics(""); len(got) != 1 || got[0] != domain.TopicAll {
		t.Fatalf("ParseTopics(\"\") = %v", got)
	}
	got := ParseTopics(" Orders, chats,,orders ")
	if len(got) != 2 || got[0] != "chats" || got[1] != "orders" {
		t.Fatalf("ParseTopics = %v", got)
	}
}

func TestEncodeFrame(t *testing.T) {
	frame, err := EncodeFrame("ready", readyEvent{Topics: []string{"*"}})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if string(frame) != "event: ready\ndata: {\"topics\":[\"*\"]}\n\n" {
		t.Fatalf("frame = %q", frame)
	}
}
