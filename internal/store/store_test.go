package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"smarttrack/internal/model"
	"smarttrack/internal/sentinel"
)

type CollectionsSuite struct {
	suite.Suite
	ctx   context.Context
	kv    *Memory
	store *Collections
}

func TestCollectionsSuite(t *testing.T) {
	suite.Run(t, new(CollectionsSuite))
}

func (s *CollectionsSuite) SetupTest() {
	s.ctx = context.Background()
	s.kv = NewMemory()
	s.store = New(s.kv)
}

func (s *CollectionsSuite) TestEmptyCollections() {
	s.Run("missing keys read as empty collections", func() {
		users, err := s.store.Users(s.ctx)
		s.Require().NoError(err)
		s.Empty(users)

		periods, err := s.store.Periods(s.ctx)
		s.Require().NoError(err)
		s.Empty(periods)

		records, err := s.store.Attendance(s.ctx)
		s.Require().NoError(err)
		s.Empty(records)
	})

	s.Run("saving nil stores an empty JSON array", func() {
		s.Require().NoError(s.store.SaveUsers(s.ctx, nil))
		raw, err := s.kv.Get(s.ctx, KeyUsers)
		s.Require().NoError(err)
		s.Equal("[]", string(raw))
	})
}

func (s *CollectionsSuite) TestReplaceAll() {
	s.Run("save replaces the whole collection", func() {
		first := []model.Period{{ID: "p1", Subject: "Math"}, {ID: "p2", Subject: "Art"}}
		s.Require().NoError(s.store.SavePeriods(s.ctx, first))
		s.Require().NoError(s.store.SavePeriods(s.ctx, []model.Period{{ID: "p3"}}))

		got, err := s.store.Periods(s.ctx)
		s.Require().NoError(err)
		s.Equal([]model.Period{{ID: "p3"}}, got)
	})

	s.Run("order is preserved", func() {
		records := []model.Record{{ID: "r2"}, {ID: "r1"}, {ID: "r3"}}
		s.Require().NoError(s.store.SaveAttendance(s.ctx, records))
		got, err := s.store.Attendance(s.ctx)
		s.Require().NoError(err)
		s.Equal(records, got)
	})

	s.Run("returned slices do not alias stored data", func() {
		s.Require().NoError(s.store.SaveUsers(s.ctx, []model.User{{ID: "u1", FullName: "Ada"}}))
		got, err := s.store.Users(s.ctx)
		s.Require().NoError(err)
		got[0].FullName = "changed"

		again, err := s.store.Users(s.ctx)
		s.Require().NoError(err)
		s.Equal("Ada", again[0].FullName)
	})
}

func (s *CollectionsSuite) TestCurrentSession() {
	s.Run("absent marker is nil", func() {
		got, err := s.store.CurrentSession(s.ctx, "staff-1")
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("markers are kept per staff member", func() {
		a := &model.ActiveSession{PeriodID: "p1", StaffID: "staff-1", State: model.SessionActive}
		b := &model.ActiveSession{PeriodID: "p2", StaffID: "staff-2", State: model.SessionActive}
		s.Require().NoError(s.store.SetCurrentSession(s.ctx, "staff-1", a))
		s.Require().NoError(s.store.SetCurrentSession(s.ctx, "staff-2", b))

		got, err := s.store.CurrentSession(s.ctx, "staff-1")
		s.Require().NoError(err)
		s.Equal(a, got)
	})

	s.Run("nil clears the marker", func() {
		s.Require().NoError(s.store.SetCurrentSession(s.ctx, "staff-1", nil))
		got, err := s.store.CurrentSession(s.ctx, "staff-1")
		s.Require().NoError(err)
		s.Nil(got)
	})
}

func (s *CollectionsSuite) TestIDs() {
	a, b := s.store.NewID(), s.store.NewID()
	s.NotEmpty(a)
	s.NotEqual(a, b)
	s.NotEqual(s.store.NewDeviceID(), s.store.NewDeviceID())
}

func (s *CollectionsSuite) TestLookups() {
	s.Require().NoError(s.store.SaveUsers(s.ctx, []model.User{{ID: "u1", FullName: "Ada"}}))
	s.Require().NoError(s.store.SavePeriods(s.ctx, []model.Period{{ID: "p1"}}))

	s.Run("found", func() {
		u, err := FindUser(s.ctx, s.store, "u1")
		s.Require().NoError(err)
		s.Equal("Ada", u.FullName)

		p, err := FindPeriod(s.ctx, s.store, "p1")
		s.Require().NoError(err)
		s.Equal("p1", p.ID)
	})

	s.Run("missing ids are NotFound", func() {
		_, err := FindUser(s.ctx, s.store, "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = FindPeriod(s.ctx, s.store, "nope")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *CollectionsSuite) TestCorruptDocument() {
	s.Require().NoError(s.kv.Set(s.ctx, KeyPeriods, []byte("{not json")))
	_, err := s.store.Periods(s.ctx)
	s.Error(err)
	s.Contains(err.Error(), "decode "+KeyPeriods)
}

func TestOpenMemoryAndUnknown(t *testing.T) {
	st, closer, err := Open(context.Background(), BackendMemory, "", "")
	if err != nil || st == nil || closer == nil {
		t.Fatalf("memory backend: %v", err)
	}
	if _, _, err := Open(context.Background(), "mongo", "", ""); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestSQLiteBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "smarttrack.db")

	st, closer, err := Open(ctx, BackendSQLite, path, "")
	require.NoError(t, err)
	users := []model.User{{
		ID: "u1", FullName: "Ada Lovelace", Email: "ada@uni.edu", Role: model.RoleStudent,
		Student: &model.StudentProfile{AdmissionNumber: "ADM-1", Course: "CS"},
	}}
	require.NoError(t, st.SaveUsers(ctx, users))
	require.NoError(t, st.SetCurrentSession(ctx, "s1", &model.ActiveSession{PeriodID: "p1", StaffID: "s1", State: model.SessionActive}))
	require.NoError(t, closer.Close())

	// reopen and read back from disk
	st, closer, err = Open(ctx, BackendSQLite, path, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	got, err := st.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, got)
	marker, err := st.CurrentSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, marker)
	assert.Equal(t, "p1", marker.PeriodID)

	require.NoError(t, st.SetCurrentSession(ctx, "s1", nil))
	marker, err = st.CurrentSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, marker)
}
