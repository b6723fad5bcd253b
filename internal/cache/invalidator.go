package cache

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"socialgraph/internal/notifications"
	"socialgraph/internal/observability"
)

// FeedView is the path of the global feed.
const FeedView = "/"

// ViewTTL bounds how long a cached view may outlive a lost invalidation.
const ViewTTL = 2 * time.Minute

// ViewKey returns the cache key holding the data of a view path at the given
// generation.
func ViewKey(path string, gen int64) string {
	return fmt.Sprintf("view:%s@%d", path, gen)
}

func generationKey(path string) string {
	return "view:" + path + ":gen"
}

// ViewInvalidator retires cached views after a committed mutation and
// broadcasts the invalidated paths. Its failures are only logged.
type ViewInvalidator struct {
	store       *Store
	events      notifications.Publisher
	bumpTimeout time.Duration
	timeout     time.Duration
	wg          sync.WaitGroup
}

// NewViewInvalidator creates a ViewInvalidator. events may be nil.
func NewViewInvalidator(store *Store, events notifications.Publisher) *ViewInvalidator {
	return &ViewInvalidator{
		store:       store,
		events:      events,
		bumpTimeout: 500 * time.Millisecond,
		timeout:     2 * time.Second,
	}
}

// Invalidate signals that the given view paths are stale. The generation of
// each path moves before Invalidate returns, so the caller's next read
// misses the old data. Dropping the old entries and the broadcast happen in
// the background.
func (v *ViewInvalidator) Invalidate(paths ...string) {
	paths = dedupe(paths)
	if len(paths) == 0 {
		return
	}

	bumpCtx, cancelBump := context.WithTimeout(context.Background(), v.bumpTimeout)
	gens, err := v.store.BumpGenerations(bumpCtx, paths...)
	cancelBump()
	if err != nil {
		observability.InvalidationErrors.Inc()
		observability.Logger.Warn("view generation bump failed",
			slog.Any("paths", paths), slog.String("error", err.Error()))
	}

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				observability.Logger.Error("panic in view invalidation",
					slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			}
		}()

		// Detached from the request: the mutation has already committed.
		ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
		defer cancel()

		// The previous generation is unreachable now; free it early.
		keys := make([]string, 0, len(gens))
		for i, gen := range gens {
			keys = append(keys, ViewKey(paths[i], gen-1))
		}
		if err := v.store.Delete(ctx, keys...); err != nil {
			observability.InvalidationErrors.Inc()
			observability.Logger.WarnContext(ctx, "view invalidation failed",
				slog.Any("paths", paths), slog.String("error", err.Error()))
		}
		if v.events != nil {
			ev := notifications.NewEvent(notifications.EventViewInvalidated, map[string]interface{}{"paths": paths})
			if err := v.events.PublishBroadcast(ctx, ev); err != nil {
				observability.Logger.WarnContext(ctx, "view invalidation broadcast failed", slog.String("error", err.Error()))
			}
		}
	}()
}

// Wait blocks until in-flight invalidations finish. Used on shutdown.
func (v *ViewInvalidator) Wait() {
	v.wg.Wait()
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
