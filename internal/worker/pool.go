package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	QueueReceipts = "jobs:receipts"
	QueueNotify   = "jobs:notify"
)

// Job types carried in the envelope.
const (
	JobReceipt = "receipt"
	JobNotify  = "notify"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ReceiptJobPayload asks for the fiscal receipt of a newly closed transaction.
type ReceiptJobPayload struct {
	TransactionID string `json:"transaction_id"`
}

// NotifyJobPayload announces a certificate that reached a paid status.
// The sums are the ones the status was decided on.
type NotifyJobPayload struct {
	CertificateCode string          `json:"certificate_code"`
	CertificateNum  int             `json:"certificate_num"`
	TransactionID   string          `json:"transaction_id"`
	Status          string          `json:"status"`
	Billing         decimal.Decimal `json:"billing"`
	Closed          decimal.Decimal `json:"closed"`
	Identified      decimal.Decimal `json:"identified"`
	Prepayment      decimal.Decimal `json:"prepayment"`
}

// JobHandler processes one decoded job payload. A returned error moves the
// job to the dead letter queue; jobs are never retried automatically.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers routes job types to their handlers. A nil handler drops the job.
type WorkerHandlers struct {
	Receipt JobHandler
	Notify  JobHandler
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) EnqueueReceipt(ctx context.Context, payload ReceiptJobPayload) error {
	return d.enqueue(ctx, QueueReceipts, JobReceipt, payload)
}

func (d *Dispatcher) EnqueueNotification(ctx context.Context, payload NotifyJobPayload) error {
	return d.enqueue(ctx, QueueNotify, JobNotify, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers WorkerHandlers, id int) {
	queues := []string{QueueReceipts, QueueNotify}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	handler := handlers.route(job.Type)
	if handler == nil {
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type, dropping")
		return
	}
	if err := handler.Process(ctx, job.Payload); err != nil {
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, err.Error(), 1)
	}
}

func (h WorkerHandlers) route(jobType string) JobHandler {
	switch jobType {
	case JobReceipt:
		return h.Receipt
	case JobNotify:
		return h.Notify
	default:
		return nil
	}
}
