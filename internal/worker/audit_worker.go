package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/model"
)

const (
	AuditBatchSize    = 100
	AuditBatchTimeout = 2 * time.Second
	AuditPollTimeout  = 1 * time.Second
)

// EventSink persists audit events. Implemented by repository.SessionEventRepository.
type EventSink interface {
	InsertBatch(ctx context.Context, events []model.SessionEvent) error
	Insert(ctx context.Context, ev model.SessionEvent) error
}

// AuditWorker consumes the session event queue and appends it to the audit log.
type AuditWorker struct {
	queue Queue
	sink  EventSink
	log   zerolog.Logger
}

// NewAuditWorker creates a new AuditWorker.
func NewAuditWorker(queue Queue, sink EventSink, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		queue: queue,
		sink:  sink,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

// queued keeps the raw payload next to the decoded event for requeueing.
type queued struct {
	raw string
	ev  model.SessionEvent
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then flushes what it holds and drains
// the queue. Call in a goroutine.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	batch := make([]queued, 0, AuditBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			w.drain(context.Background())
			w.log.Info().Msg("AuditWorker stopped")
			return

		default:
			raw, err := w.queue.Pop(ctx, AuditPollTimeout)
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Queue pop error")
				}
				continue
			}

			if item, ok := w.decode(raw); ok {
				batch = append(batch, item)
			}
		}
	}
}

func (w *AuditWorker) decode(raw string) (queued, bool) {
	var ev model.SessionEvent
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload, dropping")
		return queued{}, false
	}
	return queued{raw: raw, ev: ev}, true
}

// ----------------------------------------------------------------
// Batch insert with per-event fallback
// ----------------------------------------------------------------

// flushSafe writes the batch; when the bulk insert fails every event is tried
// alone and the ones that still fail go back on the queue. It reports how many
// events were requeued.
func (w *AuditWorker) flushSafe(ctx context.Context, batch []queued) int {
	if len(batch) == 0 {
		return 0
	}

	events := make([]model.SessionEvent, len(batch))
	for i, item := range batch {
		events[i] = item.ev
	}

	err := w.sink.InsertBatch(ctx, events)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Audit batch persisted")
		return 0
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, using fallback")

	var failed []string
	for _, item := range batch {
		if err := w.sink.Insert(ctx, item.ev); err != nil {
			w.log.Error().Err(err).
				Str("event_id", item.ev.ID.String()).
				Str("type", string(item.ev.Kind)).
				Msg("Insert failed, requeueing")
			failed = append(failed, item.raw)
		}
	}
	if len(failed) > 0 {
		if err := w.queue.Push(ctx, failed...); err != nil {
			w.log.Error().Err(err).Int("count", len(failed)).Msg("Requeue failed, events lost")
		}
	}
	return len(failed)
}

// drain persists everything left in the queue before shutdown. It stops at
// the first batch that cannot be fully written so requeued events are not
// spun on.
func (w *AuditWorker) drain(ctx context.Context) {
	drained := 0
	for {
		batch := make([]queued, 0, AuditBatchSize)
		for len(batch) < AuditBatchSize {
			raw, err := w.queue.TryPop(ctx)
			if err != nil {
				break
			}
			if item, ok := w.decode(raw); ok {
				batch = append(batch, item)
			}
		}
		if len(batch) == 0 {
			break
		}

		requeued := w.flushSafe(ctx, batch)
		drained += len(batch) - requeued
		if requeued > 0 {
			break
		}
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining events")
	}
}
