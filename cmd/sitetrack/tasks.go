package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sitetrack/internal/grouping"
	"sitetrack/internal/model"
	"sitetrack/internal/screen"
	"sitetrack/internal/session"
	"sitetrack/internal/validate"
)

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Manage a project's tasks",
	}
	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksWatchCmd())
	cmd.AddCommand(tasksAddCmd())
	cmd.AddCommand(tasksEditCmd())
	cmd.AddCommand(tasksDeleteCmd())
	return cmd
}

var statusMark = map[model.Status]string{
	model.StatusNotStarted: "[ ]",
	model.StatusInProgress: "[~]",
	model.StatusCompleted:  "[x]",
}

func tasksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's tasks grouped by work category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			board := screen.NewTaskBoard(a.client, w.sink)
			board.Mount(args[0])
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			renderBoard(board.View())
			return nil
		},
	}
}

func renderBoard(view grouping.View) {
	if view.Len() == 0 {
		fmt.Println("no tasks yet")
		return
	}
	for _, bucket := range view.Buckets() {
		fmt.Printf("%s\n", bucket.CategoryName)
		for _, t := range bucket.Tasks {
			due := ""
			if t.DueDate != nil {
				due = "  due " + *t.DueDate
			}
			fmt.Printf("  %s %s  %s%s\n", statusMark[t.Status], t.ID, t.Title, due)
		}
	}
}

// sessionRefreshInterval keeps long-running commands signed in well
// within the backend's one-hour access token lifetime.
const sessionRefreshInterval = 10 * time.Minute

func tasksWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <project-id>",
		Short: "Render a project's tasks and keep refreshing until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			interval, _ := cmd.Flags().GetDuration("interval")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := newWaitSink()
			board := screen.NewTaskBoard(a.client, w.sink)
			board.Mount(args[0])
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			renderBoard(board.View())

			sched := session.NewScheduler(time.Local)
			if err := a.guard.AutoRefresh(sched, sessionRefreshInterval); err != nil {
				return err
			}
			if _, err := sched.ScheduleInterval(interval, board.Refresh); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			for {
				select {
				case <-ctx.Done():
					board.Unmount()
					return nil
				case ev := <-w.ch:
					switch ev.Kind {
					case screen.EventReady:
						renderBoard(board.View())
					case screen.EventRequireSignIn:
						return fmt.Errorf("session expired, sign in again")
					case screen.EventLoadFailed:
						fmt.Fprintf(os.Stderr, "refresh failed: %v\n", ev.Err)
					}
				}
			}
		},
	}
	cmd.Flags().Duration("interval", 30*time.Second, "board refresh interval")
	return cmd
}

func taskFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "task title")
	cmd.Flags().String("description", "", "description")
	cmd.Flags().String("category", "", "work category name or id")
	cmd.Flags().String("status", "", "not_started, in_progress or completed")
	cmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
}

func applyTaskFlags(cmd *cobra.Command, f *validate.TaskForm, categories []model.WorkCategory) error {
	if cmd.Flags().Changed("title") {
		f.Title, _ = cmd.Flags().GetString("title")
	}
	if cmd.Flags().Changed("description") {
		f.Description, _ = cmd.Flags().GetString("description")
	}
	if cmd.Flags().Changed("status") {
		f.Status, _ = cmd.Flags().GetString("status")
	}
	if cmd.Flags().Changed("due") {
		f.DueDate, _ = cmd.Flags().GetString("due")
	}
	if cmd.Flags().Changed("category") {
		raw, _ := cmd.Flags().GetString("category")
		id, err := resolveCategory(raw, categories)
		if err != nil {
			return err
		}
		f.CategoryID = id
	}
	return nil
}

// resolveCategory accepts a category id or a (case-insensitive) name.
func resolveCategory(raw string, categories []model.WorkCategory) (string, error) {
	for _, c := range categories {
		if c.ID == raw || strings.EqualFold(c.Name, raw) {
			return c.ID, nil
		}
	}
	return "", fmt.Errorf("unknown work category %q (try `sitetrack categories`)", raw)
}

func tasksAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <project-id>",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			form := screen.NewTaskForm(a.client, w.sink)
			form.Mount(args[0], "")
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			f := form.Form()
			if err := applyTaskFlags(cmd, &f, form.Categories()); err != nil {
				return err
			}
			form.Submit(f)
			if _, err := w.wait(screen.EventSaved); err != nil {
				return err
			}
			fmt.Println("task created")
			return nil
		},
	}
	taskFormFlags(cmd)
	return cmd
}

func tasksEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <project-id> <task-id>",
		Short: "Edit a task; only the given flags change",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			form := screen.NewTaskForm(a.client, w.sink)
			form.Mount(args[0], args[1])
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			f := form.Form()
			if err := applyTaskFlags(cmd, &f, form.Categories()); err != nil {
				return err
			}
			form.Submit(f)
			if _, err := w.wait(screen.EventSaved); err != nil {
				return err
			}
			fmt.Println("task updated")
			return nil
		},
	}
	taskFormFlags(cmd)
	return cmd
}

func tasksDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <project-id> <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := signedInApp(cmd)
			if err != nil {
				return err
			}
			w := newWaitSink()
			form := screen.NewTaskForm(a.client, w.sink)
			form.Mount(args[0], args[1])
			if _, err := w.wait(screen.EventReady); err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes && !confirm(fmt.Sprintf("delete task %q?", form.Form().Title)) {
				fmt.Println("aborted")
				return nil
			}
			form.Delete()
			if _, err := w.wait(screen.EventNavigateBack); err != nil {
				return err
			}
			fmt.Println("task deleted")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	return cmd
}
