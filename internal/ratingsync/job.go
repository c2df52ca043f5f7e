// Package ratingsync keeps stored ratings in line with the live values from
// Codeforces. A cron schedule wakes the job (hourly by default) and every
// student whose sync settings fall due at that hour is refreshed.
package ratingsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aanand-mishra/students-dashboard/internal/codeforces"
	"github.com/aanand-mishra/students-dashboard/internal/config"
	"github.com/aanand-mishra/students-dashboard/internal/storage"
	"github.com/aanand-mishra/students-dashboard/internal/types"
)

var (
	// ErrNoHandle is returned by SyncStudent for a student without a handle.
	ErrNoHandle = errors.New("student has no codeforces handle")

	// ErrLookup wraps every failure of the live rating lookup.
	ErrLookup = errors.New("rating lookup failed")
)

// minInterval stops a student being synced twice inside one scheduled hour,
// e.g. after a restart.
const minInterval = 55 * time.Minute

// Job runs scheduled and on-demand rating syncs.
type Job struct {
	store  storage.Storage
	lookup codeforces.Lookup
	cfg    config.Sync
	cron   *cron.Cron
	log    *zap.Logger
	now    func() time.Time
}

// Result summarises one RunDue pass.
type Result struct {
	Due    int
	Synced int
	Failed int
}

// New returns a job that is not yet scheduled; call Start.
func New(store storage.Storage, lookup codeforces.Lookup, cfg config.Sync, log *zap.Logger) *Job {
	cl := cronLogger{log.Sugar()}
	return &Job{
		store:  store,
		lookup: lookup,
		cfg:    cfg,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
		now: time.Now,
	}
}

// Start registers the schedule and starts the scheduler goroutine.
func (j *Job) Start() error {
	if !j.cfg.Enabled {
		j.log.Info("rating sync disabled, skipping scheduler")
		return nil
	}

	_, err := j.cron.AddFunc(j.cfg.Schedule, func() {
		res, err := j.RunDue(context.Background(), j.now())
		if err != nil {
			j.log.Error("rating sync run failed", zap.Error(err))
			return
		}
		j.log.Info("rating sync run finished",
			zap.Int("due", res.Due), zap.Int("synced", res.Synced), zap.Int("failed", res.Failed))
	})
	if err != nil {
		return fmt.Errorf("ratingsync.Start: schedule %q: %w", j.cfg.Schedule, err)
	}

	j.cron.Start()
	j.log.Info("rating sync started", zap.String("schedule", j.cfg.Schedule))
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish or for
// ctx to end, whichever comes first.
func (j *Job) Stop(ctx context.Context) {
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.log.Warn("rating sync still running at shutdown")
	}
}

// Due reports whether s should be synced in the hour containing now (UTC).
func Due(s types.Student, now time.Time) bool {
	now = now.UTC()
	if s.CodeforcesHandle == "" || s.SyncSettings.SyncHour() != now.Hour() {
		return false
	}
	if s.LastSyncedAt != nil && now.Sub(*s.LastSyncedAt) < minInterval {
		return false
	}

	switch s.SyncSettings.SyncFrequency {
	case types.FrequencyDaily:
		return true
	case types.FrequencyWeekly:
		return now.Weekday() == time.Sunday
	case types.FrequencyMonthly:
		return now.Day() == 1
	default:
		return false
	}
}

// RunDue syncs every student that is Due at now. A failed student is
// logged and counted; only a failure to list students aborts the pass.
func (j *Job) RunDue(ctx context.Context, now time.Time) (Result, error) {
	var res Result

	students, err := j.store.GetStudents(ctx)
	if err != nil {
		return res, fmt.Errorf("RunDue: list students: %w", err)
	}

	for _, s := range students {
		if !Due(s, now) {
			continue
		}
		res.Due++

		if _, err := j.SyncStudent(ctx, s.ID); err != nil {
			res.Failed++
			j.log.Warn("rating sync failed",
				zap.String("id", s.ID), zap.String("handle", s.CodeforcesHandle), zap.Error(err))
			continue
		}
		res.Synced++
	}
	return res, nil
}

// SyncStudent refreshes one student's ratings from the lookup and stores
// them. MaxRating never goes down.
func (j *Job) SyncStudent(ctx context.Context, id string) (types.Student, error) {
	s, err := j.store.GetStudentByID(ctx, id)
	if err != nil {
		return types.Student{}, err
	}
	if s.CodeforcesHandle == "" {
		return types.Student{}, ErrNoHandle
	}

	info, err := j.liveInfo(ctx, s.CodeforcesHandle)
	if err != nil {
		return types.Student{}, fmt.Errorf("SyncStudent: %w for %q: %w", ErrLookup, s.CodeforcesHandle, err)
	}

	synced := j.now().UTC().Truncate(time.Millisecond)
	s.CurrentRating = info.Rating
	s.MaxRating = max(s.MaxRating, info.MaxRating, info.Rating)
	s.LastSyncedAt = &synced

	updated, err := j.store.UpdateStudentByID(ctx, id, s)
	if err != nil {
		return types.Student{}, fmt.Errorf("SyncStudent: store: %w", err)
	}
	return updated, nil
}

// liveInfo bypasses the lookup cache when the lookup supports it.
func (j *Job) liveInfo(ctx context.Context, handle string) (codeforces.UserInfo, error) {
	if r, ok := j.lookup.(codeforces.Refresher); ok {
		return r.Refresh(ctx, handle)
	}
	return j.lookup.UserInfo(ctx, handle)
}

// cronLogger routes cron's own messages into zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
