package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "20:00", want: "0 0 20 * * *"},
		{in: "07:05", want: "0 5 7 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := buildDailySpec(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduler_RegisterDefaultJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC)
	digest := NewDigestService(nil, nil, nil, nil, nil)
	auth := NewAuthService(nil, "secret", time.Hour, nil)

	require.NoError(t, s.RegisterDefaultJobs(digest, auth, "20:00"))
	assert.Equal(t, 2, s.Entries())

	assert.Error(t, NewSchedulerService(time.UTC).RegisterDefaultJobs(digest, nil, "8pm"))

	_, err := s.ScheduleInterval("never", 0, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestScheduler_JobGetsDeadline(t *testing.T) {
	var hadDeadline bool
	wrapJob("probe", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return errors.New("logged, not returned")
	})()
	assert.True(t, hadDeadline)
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewSchedulerService(nil)
	_, err := s.ScheduleInterval("tick", time.Hour, func(context.Context) error { return nil })
	require.NoError(t, err)
	s.Start()
	s.Stop()
}
