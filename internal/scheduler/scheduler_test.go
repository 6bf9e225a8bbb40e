package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  int32
	err   error
}

func (j *countingJob) Name() string { return j.name }
func (j *countingJob) Run() error {
	atomic.AddInt32(&j.runs, 1)
	return j.err
}

func TestScheduler_AddJob_RejectsInvalidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("not a valid cron expression", &countingJob{name: "bad"})
	assert.Error(t, err)
}

func TestScheduler_AddJob_AcceptsValidSchedule(t *testing.T) {
	s := New(zerolog.Nop())
	err := s.AddJob("@every 1h", &countingJob{name: "good"})
	assert.NoError(t, err)
}

func TestScheduler_RunNow_ExecutesImmediately(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "now"}

	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs))
}

func TestScheduler_RunNow_PropagatesJobError(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{name: "failing", err: errors.New("boom")}

	assert.Error(t, s.RunNow(job))
}

func TestScheduler_StartStop_DoesNotPanic(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "idle"}))

	assert.NotPanics(t, func() {
		s.Start()
		s.Stop()
	})
}
