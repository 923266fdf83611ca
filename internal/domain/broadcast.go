package domain

import "strings"

// BroadcastMode определяет способ выбора получателей рассылки.
type BroadcastMode string

const (
	BroadcastModeAll      BroadcastMode = "all"
	BroadcastModeLimit    BroadcastMode = "limit"
	BroadcastModeSelected BroadcastMode = "selected"
)

// ParseBroadcastMode разбирает режим рассылки. Пустая строка означает all.
func ParseBroadcastMode(raw string) (BroadcastMode, bool) {
	switch BroadcastMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", BroadcastModeAll:
		return BroadcastModeAll, true
	case BroadcastModeLimit:
		return BroadcastModeLimit, true
	case BroadcastModeSelected:
		return BroadcastModeSelected, true
	}
	return "", false
}

// BroadcastFilters описывает фильтры справочника чатов.
type BroadcastFilters struct {
	// OnlyActiveDays оставляет чаты с сообщениями за последние N дней, 0 отключает фильтр.
	OnlyActiveDays int `json:"onlyActiveDays"`
	// MinOrders оставляет чаты, сделавшие не меньше N заказов, 0 отключает фильтр.
	MinOrders int    `json:"minOrders"`
	Platform  string `json:"platform"`
}

// BroadcastPayload содержит заголовок, текст и картинку рассылки.
type BroadcastPayload struct {
	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// PlainText возвращает текст без разметки, который сохраняется в историю сообщений.
func (p BroadcastPayload) PlainText() string {
	title := strings.TrimSpace(p.Title)
	text := strings.TrimSpace(p.Text)
	switch {
	case title == "":
		return text
	case text == "":
		return title
	}
	return title + "\n\n" + text
}

// BroadcastRequest описывает запрос на рассылку после разбора.
type BroadcastRequest struct {
	Payload      BroadcastPayload `json:"payload"`
	Mode         BroadcastMode    `json:"mode"`
	Platforms    []string         `json:"platforms"`
	Filters      BroadcastFilters `json:"filters"`
	TestMode     bool             `json:"testMode"`
	Limit        int              `json:"limit,omitempty"`
	RecipientIDs []int64          `json:"recipientIds,omitempty"`
}

// BroadcastItem содержит результат отправки одному получателю.
type BroadcastItem struct {
	ChatID   int64    `json:"chatId"`
	Platform Platform `json:"platform"`
	OK       bool     `json:"ok"`
	Detail   string   `json:"detail,omitempty"`
}

// BroadcastResult накапливает итоги рассылки.
type BroadcastResult struct {
	Total int `json:"total"`
	Sent  int `json:"sent"`
	// Failed считает только ошибки отправки.
	Failed int `json:"failed"`
	// LogFailed считает отправленные сообщения, которые не удалось записать в историю.
	LogFailed int             `json:"logFailed"`
	Items     []BroadcastItem `json:"items"`
	Error     string          `json:"error,omitempty"`
}

// RecipientQuery описывает выборку получателей из справочника чатов.
type RecipientQuery struct {
	Platforms      []Platform
	OnlyActiveDays int
	MinOrders      int
	// Limit <= 0 означает выборку без ограничения.
	Limit int
}
