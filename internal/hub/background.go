package hub

import (
	"context"
	"strconv"
	"time"

	"github.com/adhocore/gronx"
	"golang.org/x/sync/errgroup"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
	"github.com/exg1o/telegram-bots-hub/internal/flow"
	"github.com/exg1o/telegram-bots-hub/internal/scratch"
)

// backgroundSchedule gates the sweep to the top of every hour.
const backgroundSchedule = "0 * * * *"

// lastRunsField holds the per-task last-run timestamps in the bot's
// scratch scope.
const lastRunsField = "background_tasks"

// runBackgroundTasks sweeps the bot's background tasks once an hour.
// A sweep failure is logged and the next hour retries.
func (b *Bot) runBackgroundTasks(ctx context.Context) {
	gron := gronx.New()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		due, err := gron.IsDue(backgroundSchedule)
		if err != nil || !due {
			continue
		}
		if err := b.sweepBackgroundTasks(ctx); err != nil {
			b.log.Error("background task sweep failed", "error", err)
		}
	}
}

// sweepBackgroundTasks runs every task whose interval has elapsed since
// its recorded last run. A task seen for the first time is stamped with
// the current time and waits out one full interval.
func (b *Bot) sweepBackgroundTasks(ctx context.Context) error {
	tasks, err := b.api.BackgroundTasks(ctx)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	store := scratch.ForBot(b.kv, b.me.ID)
	lastRuns, err := loadLastRuns(ctx, store)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var (
		serviceBot *designer.Bot
		users      []designer.User
	)

	for _, task := range tasks {
		key := strconv.FormatInt(task.ID, 10)

		last, seen := lastRuns[key]
		if !seen {
			lastRuns[key] = now.Format(time.RFC3339)
			continue
		}
		lastRun, err := time.Parse(time.RFC3339, last)
		if err != nil {
			lastRuns[key] = now.Format(time.RFC3339)
			continue
		}
		interval := time.Duration(task.Interval) * 24 * time.Hour
		if lastRun.Add(interval).After(now) {
			continue
		}

		if serviceBot == nil {
			if serviceBot, err = b.api.Bot(ctx); err != nil {
				return err
			}
			if users, err = b.api.Users(ctx); err != nil {
				return err
			}
		}

		b.runTask(ctx, task, serviceBot, users)
		lastRuns[key] = now.Format(time.RFC3339)
	}

	return store.Set(ctx, lastRunsField, lastRuns)
}

// runTask walks the task's connections once per eligible user, all
// users concurrently. Per-user failures surface through the walker's
// own logging.
func (b *Bot) runTask(ctx context.Context, task designer.BackgroundTask, serviceBot *designer.Bot, users []designer.User) {
	var g errgroup.Group
	for _, user := range users {
		g.Go(func() error {
			if !flow.ValidUser(serviceBot, &user) {
				return nil
			}
			u := flow.Synthetic(user.TelegramID, user.FullName)
			es := scratch.NewEventStorage(b.kv, b.me.ID, user.TelegramID, user.TelegramID)
			vars := flow.NewVariables(b.api, b.me, u)
			b.walker.HandleMany(ctx, u, task.SourceConnections, es, vars)
			return nil
		})
	}
	g.Wait()
	b.log.Info("background task done", "task_id", task.ID, "task_name", task.Name)
}

func loadLastRuns(ctx context.Context, store *scratch.Store) (map[string]string, error) {
	raw, err := store.Get(ctx, lastRunsField)
	if err != nil {
		return nil, err
	}
	lastRuns := make(map[string]string)
	if m, ok := raw.(map[string]any); ok {
		for key, value := range m {
			if s, ok := value.(string); ok {
				lastRuns[key] = s
			}
		}
	}
	return lastRuns, nil
}
