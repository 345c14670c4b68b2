package schedsvc

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/darasa/testutil"
)

type fakeRefresher struct {
	calls    int32
	n        int
	err      error
	deadline bool
}

func (r *fakeRefresher) Refresh(ctx context.Context) (int, error) {
	atomic.AddInt32(&r.calls, 1)
	_, r.deadline = ctx.Deadline()
	return r.n, r.err
}

func TestRefreshJob_Run(t *testing.T) {
	tests := []struct {
		name      string
		refresher *fakeRefresher
		want      []string
	}{
		{name: "nothing to refresh", refresher: &fakeRefresher{}, want: nil},
		{name: "refreshed", refresher: &fakeRefresher{n: 3}, want: []string{"INFO: refreshed 3 reports"}},
		{
			name:      "failed",
			refresher: &fakeRefresher{err: errors.New("db is down")},
			want:      []string{"ERROR: refreshing reports: db is down"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := testutil.NewLogger()
			job := &refreshJob{refresher: tt.refresher, timeout: time.Second, logger: logger}
			job.Run()

			assert.EqualValues(t, 1, tt.refresher.calls)
			assert.True(t, tt.refresher.deadline)
			assert.Equal(t, tt.want, logger.Entries())
		})
	}
}

func TestNewRefreshScheduler(t *testing.T) {
	logger := testutil.NewLogger()

	_, err := NewRefreshScheduler("every now and then", 0, &fakeRefresher{}, logger)
	assert.Error(t, err)

	sched, err := NewRefreshScheduler("@every 1h", 0, &fakeRefresher{}, logger)
	require.NoError(t, err)
	sched.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sched.Stop(ctx))
}
