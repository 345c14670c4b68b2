package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/trezcool/darasa/core"
)

var NowFunc = time.Now // mockable

const (
	kindAssessment = "assessment"
	kindCourse     = "course"

	// versionAll is bumped by InvalidateAll; every report key carries it.
	versionAll = "version:all"

	invalidateTimeout = 5 * time.Second
)

// Cache stores computed reports (JSON encoded) along with the version counters stamped into their keys.
// Counters must outlive the reports: a counter going back to a previous value would revive stale entries.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Incr bumps each counter by one.
	Incr(ctx context.Context, keys ...string) error
	// Counters returns the value of each counter, 0 for a counter never bumped.
	Counters(ctx context.Context, keys ...string) ([]int64, error)
}

type reportKey struct {
	kind string
	id   int
}

func (k reportKey) String() string {
	return fmt.Sprintf("report:%s:%d", k.kind, k.id)
}

func (k reportKey) versionKey() string {
	return fmt.Sprintf("version:%s:%d", k.kind, k.id)
}

// stamp is the state of the data a report was computed from.
type stamp struct {
	own int64 // version of the report's subject
	all int64 // versionAll
}

// entry is the cache key of the report computed at st.
func (k reportKey) entry(st stamp) string {
	return fmt.Sprintf("%s@%d.%d", k, st.own, st.all)
}

type Options struct {
	Policy  Policy
	TTL     time.Duration // 0 means no expiration
	Logger  core.Logger
	Metrics *Metrics
}

// Engine serves assessment and course reports from its cache, computing them on demand.
//
// Report entries are keyed by the versions of the data they were computed from, and the versions live in the
// cache next to them. Every invalidation bumps the versions of the affected reports, so once it returns no reader,
// on this instance or any other sharing the cache, looks up an entry computed before it.
// Invalidated reports are kept as dirty until Refresh recomputes them.
type Engine struct {
	feed    Feed
	cache   Cache
	policy  Policy
	ttl     time.Duration
	logger  core.Logger
	metrics *Metrics
	group   singleflight.Group

	// local bookkeeping for Refresh
	mu    sync.Mutex
	epoch uint64 // bumped by InvalidateAll
	gens  map[reportKey]uint64
	dirty map[reportKey]struct{}
	known map[reportKey]struct{} // reports computed at least once
}

var _ core.ReportInvalidator = (*Engine)(nil) // interface compliance check

func NewEngine(feed Feed, cache Cache, opts Options) *Engine {
	if opts.Policy == "" {
		opts.Policy = PolicySkip
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Engine{
		feed:    feed,
		cache:   cache,
		policy:  opts.Policy,
		ttl:     opts.TTL,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		gens:    make(map[reportKey]uint64),
		dirty:   make(map[reportKey]struct{}),
		known:   make(map[reportKey]struct{}),
	}
}

func (e *Engine) Policy() Policy { return e.policy }

// AssessmentReport returns the report of the given assessment.
func (e *Engine) AssessmentReport(ctx context.Context, assessmentID int) (AssessmentReport, error) {
	var rep AssessmentReport
	err := e.load(ctx, reportKey{kind: kindAssessment, id: assessmentID}, &rep)
	return rep, err
}

// CourseReport returns the report of the given course.
func (e *Engine) CourseReport(ctx context.Context, courseID int) (CourseReport, error) {
	var rep CourseReport
	err := e.load(ctx, reportKey{kind: kindCourse, id: courseID}, &rep)
	return rep, err
}

func (e *Engine) stamp(ctx context.Context, key reportKey) (stamp, error) {
	counters, err := e.cache.Counters(ctx, key.versionKey(), versionAll)
	if err != nil {
		return stamp{}, errors.Wrap(err, "reading report versions")
	}
	if len(counters) != 2 {
		return stamp{}, errors.Errorf("reading report versions: got %d counters, want 2", len(counters))
	}
	return stamp{own: counters[0], all: counters[1]}, nil
}

func (e *Engine) load(ctx context.Context, key reportKey, dst interface{}) error {
	st, err := e.stamp(ctx, key)
	if err != nil {
		// nothing cached can be trusted without the versions
		e.warn(fmt.Sprintf("report cache (%s): %v", key, err), err)
		e.metrics.cacheMiss(key.kind)
		data, err := e.build(ctx, key, nil, 0)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, dst)
	}

	data, found, err := e.cache.Get(ctx, key.entry(st))
	if err != nil {
		e.warn(fmt.Sprintf("report cache get(%s): %v", key, err), err)
	} else if found {
		if err = json.Unmarshal(data, dst); err == nil {
			e.metrics.cacheHit(key.kind)
			return nil
		}
		e.warn(fmt.Sprintf("report cache decode(%s): %v", key, err), err)
	}
	e.metrics.cacheMiss(key.kind)

	data, err = e.compute(ctx, key, st)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// compute shares one computation between concurrent callers asking for the same report version.
func (e *Engine) compute(ctx context.Context, key reportKey, st stamp) ([]byte, error) {
	gen := e.generation(key)
	v, err, _ := e.group.Do(fmt.Sprintf("%s#%d", key.entry(st), gen), func() (interface{}, error) {
		// the computation is shared, one caller giving up must not fail the others
		return e.build(context.WithoutCancel(ctx), key, &st, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// build computes the report and, when st is given, caches it under st.
func (e *Engine) build(ctx context.Context, key reportKey, st *stamp, gen uint64) (_ []byte, err error) {
	start := time.Now()
	defer func() { e.metrics.observeCompute(key.kind, start, err) }()

	var rep interface{}
	switch key.kind {
	case kindAssessment:
		sheet, err := e.feed.AssessmentSheet(ctx, key.id)
		if err != nil {
			return nil, errors.Wrap(err, "loading assessment sheet")
		}
		rep = AggregateAssessment(sheet, e.policy, NowFunc().UTC())
	case kindCourse:
		cs, err := e.feed.CourseSheet(ctx, key.id)
		if err != nil {
			return nil, errors.Wrap(err, "loading course sheet")
		}
		rep = AggregateCourse(cs, e.policy, NowFunc().UTC())
	default:
		return nil, errors.Errorf("unknown report kind %q", key.kind)
	}

	data, err := json.Marshal(rep)
	if err != nil {
		return nil, errors.Wrap(err, "encoding report")
	}
	if st != nil {
		e.store(ctx, key, *st, gen, data)
	}
	return data, nil
}

// store caches data under st. The report stays dirty if it was invalidated since gen was read.
func (e *Engine) store(ctx context.Context, key reportKey, st stamp, gen uint64, data []byte) {
	if e.generation(key) != gen {
		// invalidated meanwhile, nobody will look this entry up
		e.metrics.discard(key.kind)
		return
	}
	if err := e.cache.Set(ctx, key.entry(st), data, e.ttl); err != nil {
		e.warn(fmt.Sprintf("report cache set(%s): %v", key, err), err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.known[key] = struct{}{}
	if e.generationLocked(key) == gen {
		delete(e.dirty, key)
	}
	e.metrics.setDirty(len(e.dirty))
}

func (e *Engine) generation(key reportKey) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generationLocked(key)
}

func (e *Engine) generationLocked(key reportKey) uint64 {
	return e.epoch + e.gens[key]
}

// invalidate bumps the versions of keys, here and in the cache.
func (e *Engine) invalidate(ctx context.Context, keys ...reportKey) {
	e.mu.Lock()
	for _, key := range keys {
		e.gens[key]++
		e.dirty[key] = struct{}{}
		e.metrics.invalidated(key.kind)
	}
	e.metrics.setDirty(len(e.dirty))
	e.mu.Unlock()

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.versionKey())
	}
	if err := e.cache.Incr(ctx, names...); err != nil {
		e.logError(fmt.Sprintf("bumping report versions %v: %v", names, err), err)
	}
}

// InvalidateAssessment drops the assessment report.
// Callers changing an assessment that belongs to a course invalidate the course as well.
func (e *Engine) InvalidateAssessment(assessmentID int) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	e.invalidate(ctx, reportKey{kind: kindAssessment, id: assessmentID})
}

// InvalidateCourse drops the course report and the reports of every assessment of the course,
// since they all share the course roster.
func (e *Engine) InvalidateCourse(courseID int) {
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	ids, err := e.feed.CourseAssessments(ctx, courseID)
	if err != nil {
		if isNotFound(err) {
			e.invalidate(ctx, reportKey{kind: kindCourse, id: courseID})
			return
		}
		e.warn(fmt.Sprintf("listing assessments of course %d: %v", courseID, err), err)
		e.InvalidateAll()
		return
	}

	keys := make([]reportKey, 0, len(ids)+1)
	keys = append(keys, reportKey{kind: kindCourse, id: courseID})
	for _, id := range ids {
		keys = append(keys, reportKey{kind: kindAssessment, id: id})
	}
	e.invalidate(ctx, keys...)
}

// InvalidateAll drops every report.
func (e *Engine) InvalidateAll() {
	e.mu.Lock()
	e.epoch++
	for key := range e.known {
		e.dirty[key] = struct{}{}
		e.metrics.invalidated(key.kind)
	}
	e.metrics.setDirty(len(e.dirty))
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := e.cache.Incr(ctx, versionAll); err != nil {
		e.logError(fmt.Sprintf("bumping report versions [%s]: %v", versionAll, err), err)
	}
}

// Dirty returns the number of reports waiting for a refresh.
func (e *Engine) Dirty() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.dirty)
}

// Refresh recomputes the dirty reports, warming the cache. Reports whose subject no longer exists are forgotten.
// Returns the number of reports recomputed.
func (e *Engine) Refresh(ctx context.Context) (int, error) {
	e.mu.Lock()
	keys := make([]reportKey, 0, len(e.dirty))
	for key := range e.dirty {
		keys = append(keys, key)
	}
	e.mu.Unlock()

	var (
		refreshed int
		firstErr  error
	)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		st, err := e.stamp(ctx, key)
		if err == nil {
			_, err = e.compute(ctx, key, st)
		}
		if err != nil {
			if isNotFound(err) {
				e.forget(key)
				continue
			}
			e.warn(fmt.Sprintf("refreshing %s: %v", key, err), err)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "refreshing %s", key)
			}
			continue
		}
		refreshed++
	}
	return refreshed, firstErr
}

func (e *Engine) forget(key reportKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.dirty, key)
	delete(e.known, key)
	e.metrics.setDirty(len(e.dirty))
}

func (e *Engine) warn(msg string, err error) {
	if e.logger != nil {
		e.logger.Warn(msg, err)
	}
}

func (e *Engine) logError(msg string, err error) {
	if e.logger != nil {
		e.logger.Error(msg, err)
	}
}

func isNotFound(err error) bool {
	appErr, ok := errors.Cause(err).(*core.AppError)
	return ok && appErr.StatusCode == http.StatusNotFound
}
