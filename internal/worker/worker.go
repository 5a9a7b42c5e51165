package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jengahacks/backend/pkg/queue"
)

// Completer marks incomplete registrations as recovered.
type Completer interface {
	CompleteByContact(ctx context.Context, email, whatsapp string) (int64, error)
}

// CompletionProcessor consumes completion jobs: after a registration lands,
// it sweeps the incomplete log for the same contact so abandoned-form
// follow-ups skip people who already finished.
type CompletionProcessor struct {
	completer Completer
	queue     *queue.Queue
	logger    *zap.Logger
}

// NewCompletionProcessor creates a completion processor.
func NewCompletionProcessor(completer Completer, q *queue.Queue, logger *zap.Logger) *CompletionProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionProcessor{completer: completer, queue: q, logger: logger}
}

// Process executes one completion job.
func (p *CompletionProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeCompleteIncomplete {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.CompletionPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	n, err := p.completer.CompleteByContact(ctx, payload.Email, payload.WhatsappNumber)
	if err != nil {
		return fmt.Errorf("complete by contact: %w", err)
	}
	p.logger.Info("incomplete registrations completed",
		zap.String("registration_id", payload.RegistrationID.String()),
		zap.Int64("rows", n))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *CompletionProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("completion worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
