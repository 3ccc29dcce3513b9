package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/krushilnaik/constructum-mk2/internal/client"
	"github.com/krushilnaik/constructum-mk2/internal/events"
	"github.com/krushilnaik/constructum-mk2/internal/model"
)

// watchSettle is how long a burst of events must go quiet before the task
// list is fetched again. A single move can cascade into many events.
const watchSettle = 200 * time.Millisecond

// taskWatcher prints a project's tasks whenever they change.
type taskWatcher struct {
	projectID string
	seen      map[string]time.Time
}

func newTaskWatcher(projectID string) *taskWatcher {
	return &taskWatcher{projectID: projectID, seen: make(map[string]time.Time)}
}

// refresh fetches the task list and prints what changed. A cancelled
// context is not an error.
func (w *taskWatcher) refresh(ctx context.Context) error {
	resp, err := apiClient.ListTasks(ctx, &client.ListTasksRequest{ProjectID: w.projectID})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("list tasks: %w", err)
	}
	changed := diffTasks(resp.Tasks, w.seen)
	switch {
	case len(changed) == 0:
	case jsonOutput:
		printJSON(changed)
	default:
		printTaskListTable(changed, resp.Total)
	}
	return nil
}

// followNATS refreshes once events for the project settle, and right after
// a reconnect since events may have been missed.
func (w *taskWatcher) followNATS(ctx context.Context, url string) error {
	reconnected := make(chan struct{}, 1)
	sub, err := events.NewNATSSubscriber(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			slog.Info("nats reconnected")
			select {
			case reconnected <- struct{}{}:
			default:
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer sub.Close()

	msgs, cancel, err := sub.Subscribe(events.TopicAll)
	if err != nil {
		return err
	}
	defer cancel()

	settle := time.NewTimer(time.Hour)
	settle.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if affectsProject(msg, w.projectID) {
				settle.Reset(watchSettle)
			}
		case <-reconnected:
			settle.Reset(0)
		case <-settle.C:
			if err := w.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *taskWatcher) poll(ctx context.Context, every time.Duration) error {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := w.refresh(ctx); err != nil {
				return err
			}
		}
	}
}

// affectsProject reports whether msg can touch the project's tasks. Events
// without a project header always can.
func affectsProject(msg events.Message, projectID string) bool {
	return msg.ProjectID == "" || msg.ProjectID == projectID
}

// diffTasks returns tasks whose UpdatedAt differs from seen, including
// tasks not seen before, and records the new timestamps.
func diffTasks(tasks []*model.Task, seen map[string]time.Time) []*model.Task {
	var changed []*model.Task
	for _, t := range tasks {
		if prev, ok := seen[t.ID]; !ok || !prev.Equal(t.UpdatedAt) {
			changed = append(changed, t)
		}
		seen[t.ID] = t.UpdatedAt
	}
	return changed
}

var watchCmd = &cobra.Command{
	Use:     "watch <project-id>",
	Short:   "Print a project's tasks as they change",
	GroupID: "views",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		every, _ := cmd.Flags().GetDuration("interval")
		once, _ := cmd.Flags().GetBool("once")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		w := newTaskWatcher(args[0])
		if err := w.refresh(ctx); err != nil || once {
			return err
		}
		if url := firstSet(env("CONSTRUCTUM_NATS_URL"), func() string { return activeRemote().NATSURL }); url != "" {
			return w.followNATS(ctx, url)
		}
		return w.poll(ctx, every)
	},
}

func init() {
	watchCmd.Flags().Duration("interval", 5*time.Second, "how often to poll when no NATS URL is configured")
	watchCmd.Flags().Bool("once", false, "print the current tasks and exit")
}
