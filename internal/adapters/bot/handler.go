package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chatops-admin/internal/adapters/sender"
	"chatops-admin/internal/adapters/webhook"
	"chatops-admin/internal/infra/metrics"
)

const replyLimit = 4096

type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler получает апдейты бота через long polling и передаёт входящие сообщения в панель.
// Используется там, где вебхук недоступен.
type Handler struct {
	bot      botAPI
	recorder webhook.Recorder
	greeting string
	log      zerolog.Logger
}

// NewHandler создаёт обработчик. Пустой greeting отключает ответ на /start.
func NewHandler(bot botAPI, recorder webhook.Recorder, greeting string, log zerolog.Logger) *Handler {
	return &Handler{
		bot:      bot,
		recorder: recorder,
		greeting: greeting,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// Run читает апдейты до отмены ctx.
func (h *Handler) Run(ctx context.Context, pollTimeout int) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	cfg.AllowedUpdates = []string{"message"}
	updates := h.bot.GetUpdatesChan(cfg)
	defer h.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			if err := h.HandleUpdate(ctx, upd); err != nil {
				h.log.Error().Err(err).Int("update_id", upd.UpdateID).Msg("не удалось обработать апдейт")
			}
		}
	}
}

// HandleUpdate сохраняет входящее сообщение и отвечает приветствием на /start.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	in, ok := webhook.InboundFromUpdate(upd)
	if !ok {
		return nil
	}
	if _, err := h.recorder.RecordInbound(ctx, in); err != nil {
		return err
	}
	if h.greeting != "" && strings.HasPrefix(strings.TrimSpace(in.Text), "/start") {
		h.reply(in.PeerID, h.greeting)
	}
	return nil
}

func (h *Handler) reply(chatID int64, text string) {
	for _, part := range sender.SplitMessage(text, replyLimit) {
		start := time.Now()
		_, err := h.bot.Send(tgbotapi.NewMessage(chatID, part))
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить сообщение")
			return
		}
	}
}
