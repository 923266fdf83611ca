package sender

import (
	"html"
	"strings"

	"chatops-admin/internal/domain"
)

// RenderTelegram готовит HTML для Telegram: жирный экранированный заголовок и экранированный текст.
func RenderTelegram(p domain.BroadcastPayload) string {
	parts := TelegramParts(p, 0)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// TelegramParts готовит HTML-сообщения для Telegram, видимая ширина каждого не больше limit.
// Текст режется до экранирования, поэтому сущности и теги не разрываются.
// limit <= 0 отключает разбиение.
func TelegramParts(p domain.BroadcastPayload, limit int) []string {
	title := strings.TrimSpace(p.Title)
	if title != "" && limit > 0 && TextWidth(title)+2 > limit {
		var parts []string
		for _, chunk := range SplitMessage(title, limit) {
			parts = append(parts, "<b>"+html.EscapeString(chunk)+"</b>")
		}
		for _, chunk := range SplitMessage(p.Text, limit) {
			parts = append(parts, html.EscapeString(chunk))
		}
		return parts
	}

	parts := SplitMessage(p.PlainText(), limit)
	for i, chunk := range parts {
		if i == 0 && title != "" && strings.HasPrefix(chunk, title) {
			parts[i] = "<b>" + html.EscapeString(title) + "</b>" + html.EscapeString(chunk[len(title):])
			continue
		}
		parts[i] = html.EscapeString(chunk)
	}
	return parts
}

// RenderVK готовит простой текст для VK: заголовок и текст без разметки, ссылка на картинку в конце.
func RenderVK(p domain.BroadcastPayload) string {
	body := p.PlainText()
	if image := strings.TrimSpace(p.ImageURL); image != "" {
		if body == "" {
			return image
		}
		body += "\n\n" + image
	}
	return body
}
