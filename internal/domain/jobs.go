package domain

import (
	"context"
	"time"
)

// BroadcastJobStatus описывает состояние фоновой рассылки.
type BroadcastJobStatus string

const (
	BroadcastJobQueued  BroadcastJobStatus = "queued"
	BroadcastJobRunning BroadcastJobStatus = "running"
	BroadcastJobDone    BroadcastJobStatus = "done"
	BroadcastJobFailed  BroadcastJobStatus = "failed"
)

// BroadcastJob описывает задачу на рассылку, которую выполняет воркер.
type BroadcastJob struct {
	ID          string           `json:"job_id"`
	Request     BroadcastRequest `json:"request"`
	RequestedAt time.Time        `json:"requested_at"`
}

// BroadcastJobState хранит статус задачи для опроса из панели.
type BroadcastJobState struct {
	ID        string             `json:"jobId"`
	Status    BroadcastJobStatus `json:"status"`
	Result    *BroadcastResult   `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// BroadcastQueue описывает очередь задач рассылки.
type BroadcastQueue interface {
	Enqueue(ctx context.Context, job BroadcastJob) error
	Receive(ctx context.Context) (BroadcastJob, AckFunc, error)
}

// AckFunc подтверждает успешную обработку или запрашивает повторную доставку задачи.
type AckFunc func(success bool) error
