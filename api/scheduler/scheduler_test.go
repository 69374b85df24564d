package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/grievance-api/api/scheduler"
	"github.com/linesmerrill/grievance-api/databases"
	"github.com/linesmerrill/grievance-api/models"
)

type MockLock struct {
	mock.Mock
}

func (m *MockLock) TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	ret := m.Called(ctx, name, owner, ttl)
	return ret.Bool(0), ret.Error(1)
}

func (m *MockLock) ReleaseLock(ctx context.Context, name, owner string) error {
	return m.Called(ctx, name, owner).Error(0)
}

type directory struct {
	officers, admins []models.User
}

func (d directory) Officers(ctx context.Context) ([]models.User, error)       { return d.officers, nil }
func (d directory) Administrators(ctx context.Context) ([]models.User, error) { return d.admins, nil }

type sink struct {
	got [][]models.OfficerWorkload
}

func (s *sink) SendDigest(loads []models.OfficerWorkload) error {
	s.got = append(s.got, loads)
	return nil
}

type mailer struct {
	admins []models.User
	err    error
}

func (m *mailer) SendDigest(admins []models.User, loads []models.OfficerWorkload) error {
	m.admins = admins
	return m.err
}

func seed(t *testing.T) *databases.MemoryReportStore {
	t.Helper()
	store := databases.NewMemoryReportStore()
	ctx := context.Background()
	for _, r := range []models.Report{
		{ID: "r1", Status: models.StatusAssigned, Assignee: "o1"},
		{ID: "r2", Status: models.StatusInProgress, Assignee: "o1"},
		{ID: "r3", Status: models.StatusResolved, Assignee: "o2"},
		{ID: "r4", Status: models.StatusPending},
	} {
		_, err := store.Create(ctx, r)
		require.NoError(t, err)
	}
	return store
}

var dir = directory{
	officers: []models.User{{ID: "o1"}, {ID: "o2"}},
	admins:   []models.User{{ID: "a1", Details: models.UserDetails{Email: "a1@city.example"}}},
}

func TestScheduler_RunDigest(t *testing.T) {
	lock := &MockLock{}
	lock.On("TryAcquireLock", mock.Anything, "workload_digest_job", mock.Anything, 10*time.Minute).Return(true, nil)
	lock.On("ReleaseLock", mock.Anything, "workload_digest_job", mock.Anything).Return(nil)
	sessions := &sink{}
	mail := &mailer{}

	s := scheduler.NewScheduler("0 8 * * *", seed(t), dir, sessions, mail, lock)
	ran, err := s.RunDigest(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)

	require.Len(t, sessions.got, 1)
	assert.Equal(t, []models.OfficerWorkload{
		{Officer: "o1", OpenReports: 2},
		{Officer: "o2", OpenReports: 0},
	}, sessions.got[0])
	assert.Equal(t, dir.admins, mail.admins)
	lock.AssertExpectations(t)
}

func TestScheduler_RunDigestSkipsWhenLocked(t *testing.T) {
	lock := &MockLock{}
	lock.On("TryAcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	sessions := &sink{}

	s := scheduler.NewScheduler("0 8 * * *", seed(t), dir, sessions, nil, lock)
	ran, err := s.RunDigest(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, sessions.got)
	lock.AssertNotCalled(t, "ReleaseLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_RunDigestErrors(t *testing.T) {
	lock := &MockLock{}
	lock.On("TryAcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("mocked-error")).Once()
	s := scheduler.NewScheduler("0 8 * * *", seed(t), dir, &sink{}, nil, lock)
	_, err := s.RunDigest(context.Background())
	assert.Error(t, err)

	lock = &MockLock{}
	lock.On("TryAcquireLock", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	lock.On("ReleaseLock", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s = scheduler.NewScheduler("0 8 * * *", seed(t), dir, &sink{}, &mailer{err: errors.New("sendgrid down")}, lock)
	ran, err := s.RunDigest(context.Background())
	assert.True(t, ran)
	assert.EqualError(t, err, "sendgrid down")
	lock.AssertCalled(t, "ReleaseLock", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	s := scheduler.NewScheduler("not a schedule", seed(t), dir, &sink{}, nil, &MockLock{})
	assert.Error(t, s.Start())

	s = scheduler.NewScheduler("@every 1h", seed(t), dir, &sink{}, nil, &MockLock{})
	require.NoError(t, s.Start())
	s.Stop()
}
