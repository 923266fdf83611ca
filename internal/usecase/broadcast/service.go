package broadcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
	"chatops-admin/internal/infra/metrics"
)

var (
	ErrTextRequired       = errors.New("text is required")
	ErrLimitRequired      = errors.New("limit must be a positive number")
	ErrRecipientsRequired = errors.New("recipientIds must not be empty")
	ErrUnknownMode        = errors.New("unknown broadcast mode")
)

// ErrorNoPlatforms попадает в результат, когда ни одна платформа не распознана.
const ErrorNoPlatforms = "no platforms"

// DefaultPreviewLimit ограничивает предпросмотр, если лимит не передан.
const DefaultPreviewLimit = 200

// Selector выбирает получателей рассылки.
type Selector interface {
	Select(ctx context.Context, filters domain.BroadcastFilters, platforms []string, limit int) ([]domain.Recipient, error)
	SelectByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error)
}

// Service последовательно рассылает сообщения получателям.
type Service struct {
	selector  Selector
	sender    domain.Sender
	messages  domain.MessageRepo
	publisher domain.Publisher
	pacer     Pacer
	log       zerolog.Logger
	now       func() time.Time

	previewLimit int
}

// Option настраивает сервис рассылки.
type Option func(*Service)

// WithPacer задаёт ограничитель частоты отправок.
func WithPacer(p Pacer) Option {
	return func(s *Service) { s.pacer = p }
}

// WithPublisher включает публикацию записанных сообщений в топик messages.
func WithPublisher(p domain.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithPreviewLimit задаёт лимит предпросмотра по умолчанию.
func WithPreviewLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.previewLimit = limit
		}
	}
}

// NewService создаёт сервис рассылок.
func NewService(selector Selector, sender domain.Sender, messages domain.MessageRepo, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		selector:     selector,
		sender:       sender,
		messages:     messages,
		pacer:        NewRatePacer(350 * time.Millisecond),
		log:          log.With().Str("component", "broadcast").Logger(),
		now:          time.Now,
		previewLimit: DefaultPreviewLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate проверяет запрос до выбора получателей.
func Validate(req domain.BroadcastRequest) error {
	if req.Mode != domain.BroadcastModeSelected && strings.TrimSpace(req.Payload.Text) == "" {
		return ErrTextRequired
	}
	if req.Mode == domain.BroadcastModeLimit && req.Limit <= 0 {
		return ErrLimitRequired
	}
	if req.Mode == domain.BroadcastModeSelected && len(req.RecipientIDs) == 0 {
		return ErrRecipientsRequired
	}
	switch req.Mode {
	case domain.BroadcastModeAll, domain.BroadcastModeLimit, domain.BroadcastModeSelected, "":
		return nil
	}
	return ErrUnknownMode
}

// Run выполняет рассылку. Ошибки отдельных получателей попадают в результат,
// наружу возвращается только ошибка выбора получателей.
// Начатая живая рассылка доходит до конца, даже если ctx отменён.
// Пауза pacer выдерживается перед каждой отправкой, в том числе после неудачной;
// с NewRatePacer первая отправка уходит сразу.
func (s *Service) Run(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = domain.BroadcastModeAll
	}
	metrics.ObserveBroadcastRun(string(mode), req.TestMode)

	result := domain.BroadcastResult{Items: []domain.BroadcastItem{}}
	if len(domain.NormalizePlatforms(req.Platforms)) == 0 {
		result.Error = ErrorNoPlatforms
		return result, nil
	}

	var (
		recipients []domain.Recipient
		err        error
	)
	switch mode {
	case domain.BroadcastModeSelected:
		recipients, err = s.selector.SelectByIDs(ctx, req.RecipientIDs)
	case domain.BroadcastModeLimit:
		recipients, err = s.selector.Select(ctx, req.Filters, req.Platforms, req.Limit)
	default:
		recipients, err = s.selector.Select(ctx, req.Filters, req.Platforms, 0)
	}
	if err != nil {
		return domain.BroadcastResult{}, fmt.Errorf("получатели рассылки: %w", err)
	}

	result.Total = len(recipients)
	if req.TestMode || len(recipients) == 0 {
		return result, nil
	}

	runCtx := context.WithoutCancel(ctx)
	started := time.Now()
	s.log.Info().Str("mode", string(mode)).Int("total", result.Total).Msg("рассылка запущена")

	for _, to := range recipients {
		if err := s.pacer.Wait(runCtx); err != nil {
			s.log.Warn().Err(err).Msg("ожидание паузы между отправками прервано")
		}
		result.Items = append(result.Items, s.deliver(runCtx, to, req.Payload, &result))
	}

	metrics.BroadcastRunSeconds.Observe(time.Since(started).Seconds())
	s.log.Info().
		Str("mode", string(mode)).
		Int("total", result.Total).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Int("log_failed", result.LogFailed).
		Dur("took", time.Since(started)).
		Msg("рассылка завершена")
	return result, nil
}

func (s *Service) deliver(ctx context.Context, to domain.Recipient, payload domain.BroadcastPayload, result *domain.BroadcastResult) domain.BroadcastItem {
	item := domain.BroadcastItem{ChatID: to.ChatID, Platform: to.Platform}

	_, err := s.sender.Send(ctx, to, payload)
	metrics.ObserveBroadcastSend(string(to.Platform), err)
	if err != nil {
		result.Failed++
		item.Detail = err.Error()
		s.log.Warn().Err(err).Int64("chat_id", to.ChatID).Str("platform", string(to.Platform)).Msg("не удалось отправить сообщение рассылки")
		return item
	}

	result.Sent++
	item.OK = true

	saved, err := s.messages.SaveMessage(ctx, domain.Message{
		ChatID:       to.ChatID,
		FromOperator: true,
		Text:         payload.PlainText(),
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		result.LogFailed++
		item.Detail = "log: " + err.Error()
		s.log.Error().Err(err).Int64("chat_id", to.ChatID).Msg("сообщение отправлено, но не записано в историю")
		return item
	}
	if s.publisher != nil {
		s.publisher.Publish(domain.TopicMessages, saved)
	}
	return item
}

// PreviewItem описывает строку предпросмотра получателей.
type PreviewItem struct {
	ChatID   int64           `json:"chatId"`
	Platform domain.Platform `json:"platform"`
}

// PreviewResult содержит предпросмотр получателей.
type PreviewResult struct {
	Total int           `json:"total"`
	Items []PreviewItem `json:"items"`
}

// Preview показывает, кому уйдёт рассылка. Без платформ берутся все, без лимита используется лимит по умолчанию.
func (s *Service) Preview(ctx context.Context, platforms []string, filters domain.BroadcastFilters, limit int) (PreviewResult, error) {
	if len(platforms) == 0 {
		for _, p := range domain.AllPlatforms() {
			platforms = append(platforms, string(p))
		}
	}
	if limit <= 0 {
		limit = s.previewLimit
	}
	recipients, err := s.selector.Select(ctx, filters, platforms, limit)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("предпросмотр получателей: %w", err)
	}
	out := PreviewResult{Total: len(recipients), Items: make([]PreviewItem, 0, len(recipients))}
	for _, r := range recipients {
		out.Items = append(out.Items, PreviewItem{ChatID: r.ChatID, Platform: r.Platform})
	}
	return out, nil
}
