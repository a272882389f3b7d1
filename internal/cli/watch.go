package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/canvas-todo/internal/app"
	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/source"
	"github.com/nhle/canvas-todo/internal/sync"
	"github.com/nhle/canvas-todo/internal/theme"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run on a schedule until interrupted",
	Long: `Run once immediately, then again on every tick of the cron schedule and
whenever the settings file changes. A run that would overlap a run still in
progress is skipped.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("schedule", "@every 1h", "Cron schedule (five fields or a descriptor such as @hourly)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	spec, _ := cmd.Flags().GetString("schedule")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, logger := newRunner(cmd.ErrOrStderr(), true)
	path := settingsPath()

	var sched *sync.Scheduler
	sched, err := sync.New(spec, func(ctx context.Context) error {
		summary, err := runner.Run(ctx, app.Options{ConfigPath: path}, source.Discard)
		if err != nil {
			return fmt.Errorf("exit %d: %w", app.ExitCode(err), err)
		}
		logger.Printf("%d open assignments across %d courses; next run %s",
			len(summary.Visible), len(summary.Courses), humanize.Time(sched.Next()))
		return nil
	}, logger)
	if err != nil {
		return &app.ExitError{
			Code: app.ExitInvalidSettings,
			Err:  fmt.Errorf("parsing schedule %q: %w", spec, err),
		}
	}

	model.WatchSettings(path, func(name string) {
		logger.Printf("%s changed; running now", name)
		sched.Trigger()
	})

	sched.Start(ctx)
	sched.Trigger()
	fmt.Fprintln(cmd.OutOrStdout(), theme.HelpStyle.Render(
		fmt.Sprintf("Watching on %q; press Ctrl+C to stop.", spec)))

	<-ctx.Done()
	sched.Stop()

	status := sched.Status()
	logger.Printf("stopped after %d runs (%d skipped)", status.Runs, status.Skipped)
	return nil
}
