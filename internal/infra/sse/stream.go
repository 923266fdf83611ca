package sse

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/infra/metrics"
)

const defaultKeepAlive = 25 * time.Second

// StreamHandler обслуживает долгоживущий поток событий для панели.
type StreamHandler struct {
	hub       *Hub
	keepAlive time.Duration
	log       zerolog.Logger
}

// NewStreamHandler создаёт обработчик потока. keepAlive <= 0 означает 25 секунд.
func NewStreamHandler(hub *Hub, keepAlive time.Duration, log zerolog.Logger) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &StreamHandler{hub: hub, keepAlive: keepAlive, log: log}
}

type readyEvent struct {
	Topics []string `json:"topics"`
}

// ServeHTTP подписывает клиента на топики из query topics, отправляет ready,
// затем пинги и опубликованные события до отключения клиента.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	topics := ParseTopics(r.URL.Query().Get("topics"))

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")

	// поток живёт дольше WriteTimeout сервера
	_ = rc.SetWriteDeadline(time.Time{})

	client := NewClient(defaultClientBuffer)
	for _, topic := range topics {
		h.hub.Subscribe(topic, client)
	}
	metrics.SSEClients.Inc()
	defer func() {
		client.Close()
		for _, topic := range topics {
			h.hub.Unsubscribe(topic, client)
		}
		metrics.SSEClients.Dec()
		h.log.Debug().Strs("topics", topics).Msg("sse: клиент отключился")
	}()

	ready, err := EncodeFrame("ready", readyEvent{Topics: topics})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	if err := h.write(w, rc, ready); err != nil {
		return
	}
	h.log.Debug().Strs("topics", topics).Msg("sse: клиент подключился")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case frame := <-client.Frames():
			if err := h.write(w, rc, frame); err != nil {
				return
			}
		case now := <-ticker.C:
			ping, err := EncodeFrame("ping", now.UnixMilli())
			if err != nil {
				continue
			}
			if err := h.write(w, rc, ping); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) write(w http.ResponseWriter, rc *http.ResponseController, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return err
	}
	return rc.Flush()
}
