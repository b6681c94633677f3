// Package workers holds the background loops that run beside the
// notification flow.
package workers

import (
	"context"
	"sync"
	"time"

	"forum-xp-backend/internal/common/logger"
	"forum-xp-backend/internal/features/audit"
	"forum-xp-backend/internal/platform/chat"
)

// MaintenanceWorker sweeps the monitored forum on an interval, closing
// and locking threads that have aged past the configured thresholds.
// It shares only the platform adapter with the XP flow.
type MaintenanceWorker struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	adapter   chat.Adapter
	audit     *audit.Notifier
	channelID string

	// Zero durations disable the corresponding action.
	closeAfter time.Duration
	lockAfter  time.Duration
	exclude    map[string]struct{}
	interval   time.Duration

	now func() time.Time
}

type MaintenanceOptions struct {
	ChannelID        string
	CloseAfter       time.Duration
	LockAfter        time.Duration
	ExcludeThreadIDs []string
	Interval         time.Duration
}

func NewMaintenanceWorker(adapter chat.Adapter, notifier *audit.Notifier, opts MaintenanceOptions) *MaintenanceWorker {
	ctx, cancel := context.WithCancel(context.Background())
	exclude := make(map[string]struct{}, len(opts.ExcludeThreadIDs))
	for _, id := range opts.ExcludeThreadIDs {
		exclude[id] = struct{}{}
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MaintenanceWorker{
		ctx:        ctx,
		cancel:     cancel,
		adapter:    adapter,
		audit:      notifier,
		channelID:  opts.ChannelID,
		closeAfter: opts.CloseAfter,
		lockAfter:  opts.LockAfter,
		exclude:    exclude,
		interval:   interval,
		now:        time.Now,
	}
}

// Enabled reports whether any threshold is configured.
func (w *MaintenanceWorker) Enabled() bool {
	return w.closeAfter > 0 || w.lockAfter > 0
}

// Start runs one sweep immediately, then on every tick until Stop.
func (w *MaintenanceWorker) Start() {
	logger.Info().
		Dur("close_after", w.closeAfter).
		Dur("lock_after", w.lockAfter).
		Dur("interval", w.interval).
		Msg("Starting thread maintenance worker")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		w.Sweep(w.ctx)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.Sweep(w.ctx)
			case <-w.ctx.Done():
				return
			}
		}
	}()
}

func (w *MaintenanceWorker) Stop() {
	w.cancel()
	w.wg.Wait()
	logger.Info().Msg("Thread maintenance worker stopped")
}

// Sweep inspects every active thread once. Per-thread failures are
// logged and the sweep moves on.
func (w *MaintenanceWorker) Sweep(ctx context.Context) {
	threads, err := w.adapter.FetchActiveThreads(ctx, w.channelID)
	if err != nil {
		logger.Error().Err(err).Str("channel_id", w.channelID).Msg("Failed to fetch active threads")
		return
	}

	now := w.now()
	for _, thread := range threads {
		if _, skip := w.exclude[thread.ID]; skip {
			continue
		}
		w.sweepThread(ctx, thread, now.Sub(thread.CreatedAt))
	}
}

// sweepThread applies the age policy to one thread. Locking takes
// precedence over closing when both thresholds are met; a locked
// thread is archived as well.
func (w *MaintenanceWorker) sweepThread(ctx context.Context, thread *chat.Thread, age time.Duration) {
	ageHours := int(age.Hours())

	if w.lockAfter > 0 && age >= w.lockAfter && !thread.Locked {
		if err := w.adapter.SetThreadLocked(ctx, thread.ID, true); err != nil {
			logger.Error().Err(err).Str("thread_id", thread.ID).Str("thread", thread.Name).Msg("Failed to lock thread")
			return
		}
		logger.Info().Str("thread", thread.Name).Int("age_hours", ageHours).Msg("Locked thread")
		w.audit.Sendf(ctx, "🔒 **Locked thread** %q (age: %dh)", thread.Name, ageHours)

		if !thread.Archived {
			if err := w.adapter.SetThreadArchived(ctx, thread.ID, true); err != nil {
				logger.Error().Err(err).Str("thread_id", thread.ID).Str("thread", thread.Name).Msg("Failed to archive locked thread")
				return
			}
			logger.Info().Str("thread", thread.Name).Msg("Closed thread")
			w.audit.Sendf(ctx, "📁 **Closed thread** %q", thread.Name)
		}
		return
	}

	if w.closeAfter > 0 && age >= w.closeAfter && !thread.Archived {
		if err := w.adapter.SetThreadArchived(ctx, thread.ID, true); err != nil {
			logger.Error().Err(err).Str("thread_id", thread.ID).Str("thread", thread.Name).Msg("Failed to archive thread")
			return
		}
		logger.Info().Str("thread", thread.Name).Int("age_hours", ageHours).Msg("Closed thread")
		w.audit.Sendf(ctx, "📁 **Closed thread** %q (age: %dh)", thread.Name, ageHours)
	}
}
