package cli

import (
	"bytes"
	"context"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nhle/canvas-todo/internal/app"
	"github.com/nhle/canvas-todo/internal/source"
	"github.com/nhle/canvas-todo/internal/ui/fetchview"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch assignments and rewrite the todo file once",
	Long: `Fetch open assignments from Canvas and rewrite the todo file.

Exit codes: 0 ok, 1 invalid output path, 2 Canvas API failure, 3 header not
found, 4 write failure, 5 unknown time zone, 6 missing API key, 7 missing
output path, 8 settings file missing (a template is written), 9 invalid
settings.`,
	RunE: runSync,
}

func init() {
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("dry-run", false, "Print the new todo file instead of writing it")
	cmd.Flags().Bool("no-tui", false, "Print plain progress lines instead of the progress view")
}

func runSync(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noTUI, _ := cmd.Flags().GetBool("no-tui")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interactive := !noTUI && !dryRun && isatty.IsTerminal(os.Stderr.Fd())

	// Log lines would tear the progress view, so hold them until it closes.
	var held bytes.Buffer
	logOut := cmd.ErrOrStderr()
	if interactive {
		logOut = &held
	}
	runner, _ := newRunner(logOut, false)
	opts := app.Options{
		ConfigPath: settingsPath(),
		DryRun:     dryRun,
		Stdout:     cmd.OutOrStdout(),
	}

	var summary *app.Summary
	work := func(sink source.ProgressSink) error {
		var err error
		summary, err = runner.Run(ctx, opts, sink)
		return err
	}

	var err error
	switch {
	case interactive:
		err = fetchview.Run("Fetching assignments", os.Stderr, cancel, work)
		_, _ = held.WriteTo(cmd.ErrOrStderr())
	case dryRun:
		err = work(source.Discard)
	default:
		err = work(fetchview.Plain(cmd.ErrOrStderr()))
	}
	if err != nil {
		return err
	}

	if !dryRun {
		app.WriteSummary(cmd.OutOrStdout(), summary)
	}
	return nil
}
