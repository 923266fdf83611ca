package webhook

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

// VKConfig содержит настройки Callback API сообщества.
type VKConfig struct {
	GroupID      int64
	Confirmation string
	Secret       string
}

type vkCallback struct {
	Type    string          `json:"type"`
	GroupID int64           `json:"group_id"`
	EventID string          `json:"event_id"`
	Secret  string          `json:"secret"`
	Object  json.RawMessage `json:"object"`
}

type vkMessageNew struct {
	Message struct {
		ID     int64  `json:"id"`
		Date   int64  `json:"date"`
		PeerID int64  `json:"peer_id"`
		FromID int64  `json:"from_id"`
		Text   string `json:"text"`
	} `json:"message"`
}

// VK принимает события Callback API.
type VK struct {
	recorder Recorder
	cache    domain.Cache
	cfg      VKConfig
	log      zerolog.Logger
}

// NewVK создаёт обработчик Callback API.
func NewVK(recorder Recorder, cache domain.Cache, cfg VKConfig, log zerolog.Logger) *VK {
	return &VK{recorder: recorder, cache: cache, cfg: cfg, log: log.With().Str("component", "webhook.vk").Logger()}
}

// ServeHTTP отвечает строкой подтверждения на confirmation и "ok" на остальные события.
// На ошибку сохранения отвечает 500, чтобы VK повторил доставку.
func (h *VK) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var cb vkCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if h.cfg.GroupID != 0 && cb.GroupID != h.cfg.GroupID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if cb.Type == "confirmation" {
		writePlain(w, h.cfg.Confirmation)
		return
	}

	if h.cfg.Secret != "" && subtle.ConstantTimeCompare([]byte(cb.Secret), []byte(h.cfg.Secret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if cb.Type == "message_new" {
		if err := h.handleMessage(r, cb); err != nil {
			h.log.Error().Err(err).Str("event_id", cb.EventID).Msg("не удалось сохранить входящее сообщение")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
	}
	writePlain(w, "ok")
}

func (h *VK) handleMessage(r *http.Request, cb vkCallback) error {
	var obj vkMessageNew
	if err := json.Unmarshal(cb.Object, &obj); err != nil {
		h.log.Warn().Err(err).Msg("неожиданный формат message_new")
		return nil
	}
	msg := obj.Message
	if msg.PeerID == 0 || strings.TrimSpace(msg.Text) == "" {
		return nil
	}
	in := domain.InboundMessage{
		Platform: domain.PlatformVK,
		PeerID:   msg.PeerID,
		Text:     msg.Text,
		SentAt:   time.Unix(msg.Date, 0).UTC(),
	}
	record := func() error {
		_, err := h.recorder.RecordInbound(r.Context(), in)
		return err
	}
	if h.cache == nil || cb.EventID == "" {
		return record()
	}
	return h.cache.Once("webhook:vk:"+cb.EventID, dedupTTL, record)
}

func writePlain(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
