package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

// ErrQueueDisabled возвращается, когда фоновые рассылки не настроены.
var ErrQueueDisabled = errors.New("broadcast queue is not configured")

const jobKeyPrefix = "broadcast:job:"

// Jobs ставит рассылки в очередь и хранит их статусы в кеше.
type Jobs struct {
	queue     domain.BroadcastQueue
	cache     domain.Cache
	publisher domain.Publisher
	ttl       time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewJobs создаёт менеджер фоновых рассылок. queue может быть nil, тогда Submit недоступен.
func NewJobs(queue domain.BroadcastQueue, cache domain.Cache, publisher domain.Publisher, ttl time.Duration, log zerolog.Logger) *Jobs {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Jobs{
		queue:     queue,
		cache:     cache,
		publisher: publisher,
		ttl:       ttl,
		log:       log.With().Str("component", "broadcast.jobs").Logger(),
		now:       time.Now,
	}
}

// Enabled сообщает, можно ли ставить рассылки в очередь.
func (j *Jobs) Enabled() bool {
	return j != nil && j.queue != nil
}

// Submit проверяет запрос, сохраняет статус queued и ставит задачу в очередь.
func (j *Jobs) Submit(ctx context.Context, req domain.BroadcastRequest) (domain.BroadcastJobState, error) {
	if !j.Enabled() {
		return domain.BroadcastJobState{}, ErrQueueDisabled
	}
	if err := Validate(req); err != nil {
		return domain.BroadcastJobState{}, err
	}
	job := domain.BroadcastJob{
		ID:          uuid.NewString(),
		Request:     req,
		RequestedAt: j.now().UTC(),
	}
	state := domain.BroadcastJobState{ID: job.ID, Status: domain.BroadcastJobQueued, UpdatedAt: job.RequestedAt}
	if err := j.save(state); err != nil {
		return domain.BroadcastJobState{}, err
	}
	if err := j.queue.Enqueue(ctx, job); err != nil {
		return domain.BroadcastJobState{}, fmt.Errorf("постановка рассылки в очередь: %w", err)
	}
	j.log.Info().Str("job_id", job.ID).Str("mode", string(req.Mode)).Msg("рассылка поставлена в очередь")
	return state, nil
}

// Status возвращает сохранённый статус задачи.
func (j *Jobs) Status(id string) (domain.BroadcastJobState, error) {
	raw, err := j.cache.Get(jobKeyPrefix + id)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return domain.BroadcastJobState{}, domain.ErrNotFound
		}
		return domain.BroadcastJobState{}, fmt.Errorf("чтение статуса рассылки: %w", err)
	}
	var state domain.BroadcastJobState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.BroadcastJobState{}, fmt.Errorf("разбор статуса рассылки: %w", err)
	}
	return state, nil
}

// Process выполняет задачу из очереди. Повторно доставленная задача, которая уже
// запускалась, пропускается, чтобы получатели не получили рассылку дважды.
// Возвращает ошибку только если не удалось сохранить статус перед запуском.
func (j *Jobs) Process(ctx context.Context, runner *Service, job domain.BroadcastJob) error {
	logger := j.log.With().Str("job_id", job.ID).Logger()

	if prev, err := j.Status(job.ID); err == nil && prev.Status != domain.BroadcastJobQueued {
		logger.Info().Str("status", string(prev.Status)).Msg("задача уже обрабатывалась, пропускаем")
		return nil
	}

	if err := j.save(domain.BroadcastJobState{ID: job.ID, Status: domain.BroadcastJobRunning, UpdatedAt: j.now().UTC()}); err != nil {
		return err
	}

	state := domain.BroadcastJobState{ID: job.ID}
	result, err := runner.Run(ctx, job.Request)
	state.UpdatedAt = j.now().UTC()
	if err != nil {
		state.Status = domain.BroadcastJobFailed
		state.Error = err.Error()
		logger.Error().Err(err).Msg("фоновая рассылка завершилась ошибкой")
	} else {
		state.Status = domain.BroadcastJobDone
		state.Result = &result
	}
	if err := j.save(state); err != nil {
		logger.Error().Err(err).Msg("не удалось сохранить итог рассылки")
	}
	return nil
}

func (j *Jobs) save(state domain.BroadcastJobState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal job state: %w", err)
	}
	if err := j.cache.Set(jobKeyPrefix+state.ID, raw, j.ttl); err != nil {
		return fmt.Errorf("сохранение статуса рассылки: %w", err)
	}
	if j.publisher != nil {
		j.publisher.Publish(domain.TopicBroadcast, state)
	}
	return nil
}
