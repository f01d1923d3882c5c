package attendance

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"smarttrack/internal/model"
	"smarttrack/internal/queue"
	"smarttrack/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(ms int64) *fakeClock { return &fakeClock{now: time.UnixMilli(ms).UTC()} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) SetMillis(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(ms).UTC()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []queue.Message
}

func (p *recordingPublisher) Publish(_ context.Context, msg queue.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Type)
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	staffAlice = model.User{
		ID: "staff-alice", FullName: "Alice Smith", Email: "alice@uni.edu", Password: "pw",
		Role: model.RoleStaff, Staff: &model.StaffProfile{StaffID: "ST-01", Subject: "Mathematics"},
	}
	studentBob = model.User{
		ID: "student-bob", FullName: "Bob Jones", Email: "bob@uni.edu", Password: "pw",
		Role: model.RoleStudent, Student: &model.StudentProfile{AdmissionNumber: "ADM-001", Course: "CS"},
	}
	studentCara = model.User{
		ID: "student-cara", FullName: "Cara \"CJ\" Lee", Email: "cara@uni.edu", Password: "pw",
		Role: model.RoleStudent, Student: &model.StudentProfile{AdmissionNumber: "ADM-002", Course: "CS"},
	}
)

func seededStore(t *testing.T) *store.Collections {
	t.Helper()
	st := store.NewInMemory()
	require.NoError(t, st.SaveUsers(context.Background(), []model.User{staffAlice, studentBob, studentCara}))
	return st
}

// putPeriod stores a period directly, bypassing the issuer.
func putPeriod(t *testing.T, st store.Store, p model.Period) {
	t.Helper()
	ctx := context.Background()
	periods, err := st.Periods(ctx)
	require.NoError(t, err)
	require.NoError(t, st.SavePeriods(ctx, append([]model.Period{p}, periods...)))
}
