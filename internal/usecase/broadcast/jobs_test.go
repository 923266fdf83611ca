package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatops-admin/internal/domain"
)

type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (c *memoryCache) Once(string, time.Duration, func() error) error { return nil }

func (c *memoryCache) Set(key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memoryCache) Get(key string) ([]byte, error) {
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

type memoryQueue struct {
	jobs []domain.BroadcastJob
}

func (q *memoryQueue) Enqueue(_ context.Context, job domain.BroadcastJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memoryQueue) Receive(context.Context) (domain.BroadcastJob, domain.AckFunc, error) {
	return domain.BroadcastJob{}, nil, errors.New("not used")
}

func TestJobsSubmitAndProcess(t *testing.T) {
	cache := newMemoryCache()
	queue := &memoryQueue{}
	pub := &stubPublisher{}
	jobs := NewJobs(queue, cache, pub, time.Hour, zerolog.Nop())
	svc, _, _, _, tr := fixture()

	state, err := jobs.Submit(context.Background(), liveRequest())
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if state.Status != domain.BroadcastJobQueued || state.ID == "" {
		t.Fatalf("неожиданный статус: %+v", state)
	}
	if len(queue.jobs) != 1 || queue.jobs[0].ID != state.ID {
		t.Fatalf("задача не попала в очередь")
	}

	if err := jobs.Process(context.Background(), svc, queue.jobs[0]); err != nil {
		t.Fatalf("неожиданная ошибка обработки: %v", err)
	}
	final, err := jobs.Status(state.ID)
	if err != nil {
		t.Fatalf("неожиданная ошибка статуса: %v", err)
	}
	if final.Status != domain.BroadcastJobDone || final.Result == nil || final.Result.Sent != 3 {
		t.Fatalf("неожиданный итог: %+v", final)
	}
	if len(tr.events) != 6 {
		t.Fatalf("ожидали три отправки и три записи, получили %v", tr.events)
	}

	// Повторная доставка той же задачи не запускает рассылку ещё раз.
	if err := jobs.Process(context.Background(), svc, queue.jobs[0]); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(tr.events) != 6 {
		t.Fatalf("повторная доставка не должна отправлять сообщения: %v", tr.events)
	}

	want := []string{domain.TopicBroadcast, domain.TopicBroadcast, domain.TopicBroadcast}
	if len(pub.topics) != len(want) {
		t.Fatalf("ожидали события queued, running, done: %v", pub.topics)
	}
}

func TestJobsSubmitValidates(t *testing.T) {
	jobs := NewJobs(&memoryQueue{}, newMemoryCache(), nil, 0, zerolog.Nop())
	req := liveRequest()
	req.Payload.Text = ""
	if _, err := jobs.Submit(context.Background(), req); !errors.Is(err, ErrTextRequired) {
		t.Fatalf("ожидали ErrTextRequired, получили %v", err)
	}
}

func TestJobsDisabledWithoutQueue(t *testing.T) {
	jobs := NewJobs(nil, newMemoryCache(), nil, 0, zerolog.Nop())
	if jobs.Enabled() {
		t.Fatalf("без очереди фоновые рассылки недоступны")
	}
	if _, err := jobs.Submit(context.Background(), liveRequest()); !errors.Is(err, ErrQueueDisabled) {
		t.Fatalf("ожидали ErrQueueDisabled, получили %v", err)
	}
}

func TestJobsStatusNotFound(t *testing.T) {
	jobs := NewJobs(nil, newMemoryCache(), nil, 0, zerolog.Nop())
	if _, err := jobs.Status("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestJobsProcessRecordsFailure(t *testing.T) {
	cache := newMemoryCache()
	jobs := NewJobs(&memoryQueue{}, cache, nil, 0, zerolog.Nop())
	svc, sel, _, _, _ := fixture()
	sel.err = errors.New("db down")

	job := domain.BroadcastJob{ID: "job-1", Request: liveRequest()}
	if err := jobs.Process(context.Background(), svc, job); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	state, err := jobs.Status("job-1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if state.Status != domain.BroadcastJobFailed || state.Error == "" {
		t.Fatalf("ожидали статус failed: %+v", state)
	}
}
