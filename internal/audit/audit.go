// Package audit consumes attendance events from the queue and writes them to
// the structured log.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"smarttrack/internal/attendance"
	"smarttrack/internal/queue"
)

// Consumer logs each event it receives and keeps per-type totals.
type Consumer struct {
	q      queue.Queue
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]int
}

func New(q queue.Queue, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{q: q, logger: logger, counts: map[string]int{}}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	messages, err := c.q.Consume(ctx)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "audit consumer started")
	for msg := range messages {
		c.handle(ctx, msg)
	}
	c.logger.InfoContext(ctx, "audit consumer stopped")
	return nil
}

func (c *Consumer) handle(ctx context.Context, msg queue.Message) {
	c.mu.Lock()
	c.counts[msg.Type]++
	c.mu.Unlock()

	switch msg.Type {
	case queue.TypeCheckIn:
		var evt attendance.CheckInEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			c.logger.WarnContext(ctx, "malformed event", "type", msg.Type, "error", err)
			return
		}
		c.logger.InfoContext(ctx, "check-in recorded",
			"record_id", evt.RecordID, "period_id", evt.PeriodID,
			"student_id", evt.StudentID, "subject", evt.Subject, "timestamp", evt.Timestamp)
	case queue.TypePeriodIssued:
		var evt attendance.PeriodIssuedEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			c.logger.WarnContext(ctx, "malformed event", "type", msg.Type, "error", err)
			return
		}
		c.logger.InfoContext(ctx, "period issued",
			"period_id", evt.PeriodID, "staff_id", evt.StaffID, "subject", evt.Subject,
			"expires_at", evt.ExpiresAt, "network_locked", evt.NetworkLocked)
	default:
		c.logger.WarnContext(ctx, "unknown event type", "type", msg.Type)
	}
}

// Count is the number of events of typ seen so far.
func (c *Consumer) Count(typ string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[typ]
}
