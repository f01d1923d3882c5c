//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"smarttrack/internal/model"
)

func exerciseBackend(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	users := []model.User{{
		ID: st.NewID(), FullName: "Ada Lovelace", Email: "ada@uni.edu", Role: model.RoleStudent,
		Student: &model.StudentProfile{AdmissionNumber: "ADM-1", Course: "CS"},
	}}
	require.NoError(t, st.SaveUsers(ctx, users))
	got, err := st.Users(ctx)
	require.NoError(t, err)
	require.Equal(t, users, got)

	periods := []model.Period{{ID: "p1", Subject: "Math", CreatedAt: 1, ExpiresAt: 2}}
	require.NoError(t, st.SavePeriods(ctx, periods))
	gotPeriods, err := st.Periods(ctx)
	require.NoError(t, err)
	require.Equal(t, periods, gotPeriods)

	marker := &model.ActiveSession{PeriodID: "p1", StaffID: "s1", State: model.SessionActive}
	require.NoError(t, st.SetCurrentSession(ctx, "s1", marker))
	gotMarker, err := st.CurrentSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, marker, gotMarker)
	require.NoError(t, st.SetCurrentSession(ctx, "s1", nil))
	gotMarker, err = st.CurrentSession(ctx, "s1")
	require.NoError(t, err)
	require.Nil(t, gotMarker)
}

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	r := NewRedis(endpoint)
	t.Cleanup(func() { _ = r.Close() })
	require.True(t, r.Healthy(ctx))

	exerciseBackend(t, New(r))
}

func TestPostgresBackend(t *testing.T) {
	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("smarttrack"),
		tcpostgres.WithUsername("smarttrack"),
		tcpostgres.WithPassword("smarttrack"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, closer, err := Open(ctx, BackendPostgres, dsn, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	exerciseBackend(t, st)
}
