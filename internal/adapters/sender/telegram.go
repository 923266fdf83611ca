package sender

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/metrics"
)

const (
	telegramTextLimit    = 4096
	telegramCaptionLimit = 1024
)

// telegramAPI покрывает часть клиента Bot API, нужную для отправки.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender отправляет сообщения через Telegram Bot API.
type TelegramSender struct {
	bot telegramAPI
	log zerolog.Logger
}

// NewTelegram создаёт отправителя поверх готового клиента бота.
func NewTelegram(bot telegramAPI, log zerolog.Logger) *TelegramSender {
	return &TelegramSender{bot: bot, log: log.With().Str("component", "sender.telegram").Logger()}
}

// Send отправляет рассылку в чат. Картинка уходит фотографией с подписью,
// если подпись помещается в лимит Telegram, иначе фото и текст идут отдельно.
// Лимиты считаются по видимому тексту в единицах UTF-16, как их считает Telegram.
func (s *TelegramSender) Send(ctx context.Context, to domain.Recipient, payload domain.BroadcastPayload) (domain.SendAck, error) {
	if err := ctx.Err(); err != nil {
		return domain.SendAck{}, err
	}
	if to.PeerID == 0 {
		return domain.SendAck{}, fmt.Errorf("telegram: empty peer id for chat %d", to.ChatID)
	}

	parts := TelegramParts(payload, telegramTextLimit)
	image := strings.TrimSpace(payload.ImageURL)

	var ack domain.SendAck
	if image != "" {
		photo := tgbotapi.NewPhoto(to.PeerID, tgbotapi.FileURL(image))
		if TextWidth(payload.PlainText()) <= telegramCaptionLimit {
			photo.Caption = RenderTelegram(payload)
			photo.ParseMode = tgbotapi.ModeHTML
			parts = nil
		}
		msg, err := s.send(to.PeerID, "send_photo", photo)
		if err != nil {
			return domain.SendAck{}, err
		}
		ack.MessageID = strconv.Itoa(msg.MessageID)
	}

	for _, part := range parts {
		cfg := tgbotapi.NewMessage(to.PeerID, part)
		cfg.ParseMode = tgbotapi.ModeHTML
		cfg.DisableWebPagePreview = true
		msg, err := s.send(to.PeerID, "send_message", cfg)
		if err != nil {
			return ack, err
		}
		if ack.MessageID == "" {
			ack.MessageID = strconv.Itoa(msg.MessageID)
		}
	}
	return ack, nil
}

func (s *TelegramSender) send(peerID int64, op string, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	start := time.Now()
	msg, err := s.bot.Send(c)
	metrics.ObserveNetworkRequest("telegram_bot", op, strconv.FormatInt(peerID, 10), start, err)
	if err != nil {
		s.log.Warn().Err(err).Int64("peer", peerID).Str("op", op).Msg("не удалось отправить сообщение")
		return tgbotapi.Message{}, fmt.Errorf("telegram %s: %w", op, err)
	}
	return msg, nil
}
