package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/metrics"
)

const defaultClientBuffer = 64

var (
	errClientClosed = errors.New("sse: client closed")
	errClientBusy   = errors.New("sse: client buffer is full")
)

// Client представляет живое SSE-подключение. Кадры доставляются через буферизованный канал,
// чтобы публикация никогда не блокировалась на медленном клиенте.
// Клиент с переполненным буфером закрывается: поток обрывается, и браузер переподключается.
type Client struct {
	frames    chan []byte
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewClient создаёт клиента с буфером на buffer кадров.
func NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{frames: make(chan []byte, buffer), done: make(chan struct{})}
}

// Frames возвращает канал кадров для записи в поток.
func (c *Client) Frames() <-chan []byte {
	return c.frames
}

// Done закрывается вместе с клиентом.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close помечает клиента закрытым; дальнейшие кадры отбрасываются. Повторный вызов безопасен.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
}

func (c *Client) deliver(frame []byte) error {
	if c.closed.Load() {
		return errClientClosed
	}
	select {
	case c.frames <- frame:
		return nil
	default:
		c.Close()
		return errClientBusy
	}
}

// Hub хранит соответствие топик → подписчики и рассылает события.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
	log    zerolog.Logger
}

var _ domain.Publisher = (*Hub)(nil)

// NewHub создаёт пустой реестр подписок.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{topics: make(map[string]map[*Client]struct{}), log: log}
}

// Subscribe добавляет клиента в топик. Один клиент может быть подписан на несколько топиков.
func (h *Hub) Subscribe(topic string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.topics[topic] = set
	}
	set[c] = struct{}{}
}

// Unsubscribe удаляет клиента из топика; пустой топик удаляется целиком.
func (h *Hub) Unsubscribe(topic string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.topics, topic)
	}
}

// Publish отправляет событие подписчикам топика и подписчикам общего топика "*".
// Клиент, подписанный на оба, получит кадр дважды.
func (h *Hub) Publish(topic string, data any) {
	frame, err := EncodeFrame(topic, data)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("sse: не удалось сериализовать событие")
		return
	}
	metrics.SSEEventsPublished.WithLabelValues(topic).Inc()

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.topics[topic])+len(h.topics[domain.TopicAll]))
	for c := range h.topics[topic] {
		targets = append(targets, c)
	}
	if topic != domain.TopicAll {
		for c := range h.topics[domain.TopicAll] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		switch err := c.deliver(frame); {
		case errors.Is(err, errClientBusy):
			h.log.Warn().Str("topic", topic).Msg("sse: буфер клиента переполнен, отключаем")
		case err != nil:
			h.log.Debug().Err(err).Str("topic", topic).Msg("sse: кадр не доставлен")
		}
	}
}

// SubscriberCount возвращает число подписчиков топика.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// TopicCount возвращает число топиков с подписчиками.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}

// EncodeFrame собирает кадр text/event-stream: имя события и JSON в data.
func EncodeFrame(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal event data: %w", err)
	}
	frame := make([]byte, 0, len(event)+len(payload)+16)
	frame = append(frame, "event: "...)
	frame = append(frame, event...)
	frame = append(frame, "\ndata: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}

// ParseTopics разбирает список топиков через запятую; пустой список означает "*".
func ParseTopics(raw string) []string {
	seen := make(map[string]struct{})
	var topics []string
	for _, part := range strings.Split(raw, ",") {
		topic := strings.ToLower(strings.TrimSpace(part))
		if topic == "" {
			continue
		}
		if _, ok := seen[topic]; ok {
			continue
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	if len(topics) == 0 {
		return []string{domain.TopicAll}
	}
	sort.Strings(topics)
	return topics
}
