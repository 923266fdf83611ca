package webhook

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

const (
	telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"
	dedupTTL             = 24 * time.Hour
)

// Recorder сохраняет входящие сообщения.
type Recorder interface {
	RecordInbound(ctx context.Context, in domain.InboundMessage) (domain.Message, error)
}

// Telegram принимает обновления Bot API.
type Telegram struct {
	recorder Recorder
	cache    domain.Cache
	secret   string
	log      zerolog.Logger
}

// NewTelegram создаёт обработчик вебхука Telegram. cache используется для защиты от повторной доставки и может быть nil.
func NewTelegram(recorder Recorder, cache domain.Cache, secret string, log zerolog.Logger) *Telegram {
	return &Telegram{recorder: recorder, cache: cache, secret: secret, log: log.With().Str("component", "webhook.telegram").Logger()}
}

func (h *Telegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(telegramSecretHeader)), []byte(h.secret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	in, ok := InboundFromUpdate(update)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	record := func() error {
		_, err := h.recorder.RecordInbound(r.Context(), in)
		return err
	}
	var err error
	if h.cache != nil {
		err = h.cache.Once("webhook:tg:"+strconv.Itoa(update.UpdateID), dedupTTL, record)
	} else {
		err = record()
	}
	if err != nil {
		h.log.Error().Err(err).Int("update_id", update.UpdateID).Msg("не удалось сохранить входящее сообщение")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// InboundFromUpdate извлекает входящее сообщение из апдейта. false, если в апдейте нет текста.
func InboundFromUpdate(update tgbotapi.Update) (domain.InboundMessage, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return domain.InboundMessage{}, false
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return domain.InboundMessage{}, false
	}

	title := msg.Chat.Title
	if title == "" {
		title = strings.TrimSpace(msg.Chat.FirstName + " " + msg.Chat.LastName)
	}
	return domain.InboundMessage{
		Platform: domain.PlatformTelegram,
		PeerID:   msg.Chat.ID,
		Title:    title,
		Username: msg.Chat.UserName,
		Text:     text,
		SentAt:   msg.Time(),
	}, true
}
