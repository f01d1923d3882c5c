package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"smarttrack/internal/model"
	"smarttrack/internal/store"
)

func seeded(t *testing.T) *store.Collections {
	t.Helper()
	ctx := context.Background()
	st := store.NewInMemory()
	require.NoError(t, st.SaveUsers(ctx, []model.User{
		{ID: "staff-1", FullName: "Alice Smith", Email: "alice@uni.edu", Role: model.RoleStaff,
			Staff: &model.StaffProfile{StaffID: "T-9", Subject: "Networks"}},
		{ID: "stu-1", FullName: "Bob Jones", Email: "bob@uni.edu", Role: model.RoleStudent,
			DeviceFingerprint: "dev-1", Student: &model.StudentProfile{AdmissionNumber: "ADM-001", Course: "CS"}},
		{ID: "stu-2", FullName: "Cara Lee", Email: "cara@uni.edu", Role: model.RoleStudent,
			Student: &model.StudentProfile{AdmissionNumber: "ADM-002", Course: "CS"}},
	}))
	require.NoError(t, st.SavePeriods(ctx, []model.Period{{
		ID: "p1", StaffID: "staff-1", Date: "2024-03-04", Day: "Monday", Time: "09:00",
		Subject: "Networks", CreatedAt: 1709542800000, ExpiresAt: 1709542920000,
	}}))
	require.NoError(t, st.SaveAttendance(ctx, []model.Record{
		{ID: "r1", PeriodID: "p1", StudentID: "stu-1", Timestamp: 1709542830000, Subject: "Networks", Date: "2024-03-04"},
	}))
	return st
}

func run(t *testing.T, st store.Store, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (store.Store, io.Closer, error) {
		return st, io.NopCloser(nil), nil
	}
	cmd := rootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestQREncodeDecode(t *testing.T) {
	file := filepath.Join(t.TempDir(), "token.png")

	_, err := run(t, nil, "qr", "encode", "period-123", "-o", file, "--size", "256")
	require.NoError(t, err)

	out, err := run(t, nil, "qr", "decode", file)
	require.NoError(t, err)
	assert.Equal(t, "period-123\n", out)
}

func TestDeviceIDIsStable(t *testing.T) {
	dir := t.TempDir()

	first, err := run(t, nil, "device-id", "--dir", dir)
	require.NoError(t, err)
	second, err := run(t, nil, "device-id", "--dir", dir)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestNetworkFingerprint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7"}`))
	}))
	defer srv.Close()
	t.Setenv("NETWORK_PROBE_URL", srv.URL)

	out, err := run(t, nil, "network")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7\n", out)

	t.Setenv("NETWORK_PROBE_URL", "http://127.0.0.1:1/")
	t.Setenv("NETWORK_FALLBACK", "Lab-WiFi")
	out, err = run(t, nil, "network")
	require.NoError(t, err)
	assert.Equal(t, "Lab-WiFi\n", out)
}

func TestUsersList(t *testing.T) {
	st := seeded(t)

	out, err := run(t, st, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice Smith")
	assert.Contains(t, out, "T-9")
	assert.Contains(t, out, "ADM-001")
	assert.NotContains(t, out, "password")

	out, err = run(t, st, "users", "list", "--role", "student", "--binding", "unlinked")
	require.NoError(t, err)
	assert.Contains(t, out, "Cara Lee")
	assert.NotContains(t, out, "Bob Jones")
	assert.NotContains(t, out, "Alice Smith")

	_, err = run(t, st, "users", "list", "--binding", "sometimes")
	require.Error(t, err)
	_, err = run(t, st, "users", "list", "--role", "janitor")
	require.Error(t, err)
}

func TestUsersUnbindAndDelete(t *testing.T) {
	ctx := context.Background()
	st := seeded(t)

	out, err := run(t, st, "users", "unbind", "stu-1", "ghost")
	require.NoError(t, err)
	assert.Equal(t, "unbound 1 of 2\n", out)
	bob, err := store.FindUser(ctx, st, "stu-1")
	require.NoError(t, err)
	assert.False(t, bob.Bound())

	out, err = run(t, st, "users", "delete", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 of 1\n", out)
	users, err := st.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	records, err := st.Attendance(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestReportCSV(t *testing.T) {
	st := seeded(t)

	out, err := run(t, st, "report", "p1", "--tz", "UTC")
	require.NoError(t, err)
	assert.Equal(t,
		"Date,Student Name,Admission #,Check-in Time\n"+
			`"2024-03-04","Bob Jones","ADM-001","09:00:30"`+"\n", out)

	_, err = run(t, st, "report", "missing", "--tz", "UTC")
	require.Error(t, err)
	_, err = run(t, st, "report", "p1", "--format", "pdf")
	require.Error(t, err)
}

func TestReportXLSXToFile(t *testing.T) {
	st := seeded(t)
	file := filepath.Join(t.TempDir(), "report.xlsx")

	_, err := run(t, st, "report", "p1", "-f", "xlsx", "-o", file, "--tz", "UTC")
	require.NoError(t, err)

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-03-04", "Bob Jones", "ADM-001", "09:00:30"}, rows[1])
}
