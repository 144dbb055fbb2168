package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type executorFunc func(ctx context.Context, job *Job) error

func (f executorFunc) Execute(ctx context.Context, job *Job) error { return f(ctx, job) }

type mockRepairer struct {
	mock.Mock
}

func (m *mockRepairer) RepairPackageWeights(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

// idleScheduler accepts submissions but has no workers draining the queue
func idleScheduler(queueSize int) *Scheduler {
	s := NewScheduler(Config{QueueSize: queueSize, RetryAttempts: 2}, nil, nil)
	s.isRunning = true
	return s
}

func TestJob_Lifecycle(t *testing.T) {
	job := NewJob(JobKindPackageWeightRepair, 1)
	assert.Equal(t, JobStatusPending, job.Status)

	job.Start()
	assert.Equal(t, JobStatusRunning, job.Status)
	require.NotNil(t, job.StartedAt)

	job.Fail("database unavailable")
	assert.Equal(t, "database unavailable", job.Error)
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Minute)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Empty(t, job.Error)
	require.NotNil(t, job.NextRetryAt)

	job.Start()
	job.Fail("still unavailable")
	assert.False(t, job.ShouldRetry(), "retry budget exhausted")
}

func TestScheduler_SubmitWhenStopped(t *testing.T) {
	s := NewScheduler(DefaultConfig(), nil, nil)

	_, err := s.Submit(JobKindPackageWeightRepair)

	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestScheduler_QueueFull(t *testing.T) {
	s := idleScheduler(1)

	_, err := s.Submit(JobKindPackageWeightRepair)
	require.NoError(t, err)
	_, err = s.Submit(JobKindPackageWeightRepair)

	assert.ErrorIs(t, err, ErrJobQueueFull)
}

func TestScheduler_RunsAndRetriesJobs(t *testing.T) {
	calls := make(chan int, 4)
	attempts := 0
	exec := executorFunc(func(_ context.Context, job *Job) error {
		attempts++
		calls <- attempts
		if attempts == 1 {
			return errors.New("transient")
		}
		return nil
	})
	s := NewScheduler(Config{Workers: 1, RetryAttempts: 2, RetryDelay: 10 * time.Millisecond}, exec, nil)
	require.NoError(t, s.Start(context.Background()))

	job, err := s.Submit(JobKindPackageWeightRepair)
	require.NoError(t, err)

	for want := 1; want <= 2; want++ {
		select {
		case got := <-calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("attempt %d never ran", want)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	assert.Equal(t, JobStatusSuccess, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.False(t, s.IsRunning())
}

func TestParseCronSchedule(t *testing.T) {
	tests := []struct {
		name       string
		expr       string
		wantHour   int
		wantMinute int
		wantErr    bool
	}{
		{name: "default 2am", expr: "0 2 * * *", wantHour: 2, wantMinute: 0},
		{name: "half past three", expr: "30 3 * * *", wantHour: 3, wantMinute: 30},
		{name: "midnight", expr: "0 0 * * *", wantHour: 0, wantMinute: 0},
		{name: "empty keeps default", expr: "", wantHour: 2, wantMinute: 0},
		{name: "extra whitespace", expr: "  15   4   *   *   *  ", wantHour: 4, wantMinute: 15},
		{name: "wildcard minute", expr: "* 5 * * *", wantHour: 5, wantMinute: 0},
		{name: "hour out of range", expr: "0 24 * * *", wantErr: true},
		{name: "not a number", expr: "x 2 * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseCronSchedule(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHour, hour)
			assert.Equal(t, tt.wantMinute, minute)
		})
	}
}

func TestCronTrigger_FiresOncePerDay(t *testing.T) {
	s := idleScheduler(4)
	trigger := NewCronTrigger(CronTriggerConfig{Hour: 2, Minute: 30}, s, nil)
	clock := time.Date(2026, time.October, 16, 2, 30, 0, 0, time.UTC)
	trigger.now = func() time.Time { return clock }

	assert.True(t, trigger.checkAndTrigger())
	assert.False(t, trigger.checkAndTrigger(), "same day")
	require.Len(t, s.jobs, 1)
	job := <-s.jobs
	assert.Equal(t, JobKindPackageWeightRepair, job.Kind)

	clock = clock.Add(time.Minute)
	assert.False(t, trigger.checkAndTrigger(), "wrong minute")

	clock = time.Date(2026, time.October, 17, 2, 30, 0, 0, time.UTC)
	assert.True(t, trigger.checkAndTrigger(), "next day")
}

func TestCronTrigger_NextRunAt(t *testing.T) {
	trigger := NewCronTrigger(CronTriggerConfig{Hour: 2, Minute: 0}, idleScheduler(1), nil)

	trigger.now = func() time.Time { return time.Date(2026, time.October, 16, 1, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2026, time.October, 16, 2, 0, 0, 0, time.UTC), trigger.NextRunAt())

	trigger.now = func() time.Time { return time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2026, time.October, 17, 2, 0, 0, 0, time.UTC), trigger.NextRunAt())
}

func TestMaintenanceExecutor(t *testing.T) {
	t.Run("package weight repair", func(t *testing.T) {
		repairer := new(mockRepairer)
		repairer.On("RepairPackageWeights", mock.Anything).Return([]uuid.UUID{uuid.New()}, nil)

		err := NewMaintenanceExecutor(repairer, nil).Execute(context.Background(), NewJob(JobKindPackageWeightRepair, 0))

		assert.NoError(t, err)
		repairer.AssertExpectations(t)
	})

	t.Run("repair failure is wrapped", func(t *testing.T) {
		repairer := new(mockRepairer)
		boom := errors.New("connection reset")
		repairer.On("RepairPackageWeights", mock.Anything).Return(nil, boom)

		err := NewMaintenanceExecutor(repairer, nil).Execute(context.Background(), NewJob(JobKindPackageWeightRepair, 0))

		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown kind", func(t *testing.T) {
		err := NewMaintenanceExecutor(new(mockRepairer), nil).Execute(context.Background(), NewJob("VACUUM", 0))

		assert.ErrorIs(t, err, ErrUnknownJobKind)
	})
}
