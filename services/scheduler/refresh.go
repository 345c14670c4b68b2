package schedsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/darasa/core"
)

const DefaultRefreshTimeout = 30 * time.Second

// Refresher recomputes the reports invalidated since the last run.
type Refresher interface {
	Refresh(ctx context.Context) (int, error)
}

// Scheduler runs the report refresh on a cron schedule; a run still in progress makes the next one skip.
type Scheduler struct {
	cron *cron.Cron
}

func NewRefreshScheduler(spec string, timeout time.Duration, refresher Refresher, logger core.Logger) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddJob(spec, &refreshJob{refresher: refresher, timeout: timeout, logger: logger}); err != nil {
		return nil, errors.Wrapf(err, "scheduling report refresh %q", spec)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running refresh to finish, or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for report refresh")
	}
}

type refreshJob struct {
	refresher Refresher
	timeout   time.Duration
	logger    core.Logger
}

func (j *refreshJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.refresher.Refresh(ctx)
	if err != nil {
		j.logger.Error(fmt.Sprintf("refreshing reports: %v", err), err)
		return
	}
	if n > 0 {
		j.logger.Info(fmt.Sprintf("refreshed %d reports", n))
	}
}

// cronLogger sends cron's own logs to the app logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(fmt.Sprintf("cron: %s: %v", msg, err), append([]interface{}{err}, keysAndValues...)...)
}
