package audit

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smarttrack/internal/attendance"
	"smarttrack/internal/queue"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestConsumerLogsEvents(t *testing.T) {
	q := queue.NewInMemory(8)
	var out syncBuffer
	c := New(q, slog.New(slog.NewJSONHandler(&out, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.NoError(t, queue.PublishJSON(ctx, q, queue.TypeCheckIn, attendance.CheckInEvent{RecordID: "r1", PeriodID: "p1", StudentID: "s1"}))
	require.NoError(t, queue.PublishJSON(ctx, q, queue.TypePeriodIssued, attendance.PeriodIssuedEvent{PeriodID: "p1", StaffID: "t1"}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: queue.TypeCheckIn, Body: []byte("{")}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "mystery"}))

	assert.Eventually(t, func() bool { return c.Count("mystery") == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, 2, c.Count(queue.TypeCheckIn))
	assert.Equal(t, 1, c.Count(queue.TypePeriodIssued))
	logs := out.String()
	assert.Contains(t, logs, `"msg":"check-in recorded"`)
	assert.Contains(t, logs, `"record_id":"r1"`)
	assert.Contains(t, logs, `"msg":"period issued"`)
	assert.Contains(t, logs, `"msg":"malformed event"`)
	assert.Contains(t, logs, `"msg":"unknown event type"`)
}
