package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"github.com/nhle/canvas-todo/internal/app"
	"github.com/nhle/canvas-todo/internal/credential"
	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/source/canvas"
	"github.com/nhle/canvas-todo/internal/theme"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Canvas API key stored in the system keyring",
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the Canvas API key in the keyring",
	RunE:  runAuthSet,
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the Canvas API key from the keyring",
	RunE:  runAuthClear,
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured API key by listing your courses",
	RunE:  runAuthCheck,
}

func init() {
	authSetCmd.Flags().String("token", "", "API key to store (prompted for when omitted)")
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authClearCmd)
	authCmd.AddCommand(authCheckCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")

	if strings.TrimSpace(token) == "" {
		err := huh.NewInput().
			Title("Canvas API Key").
			EchoMode(huh.EchoModePassword).
			Value(&token).
			Run()
		if errors.Is(err, huh.ErrUserAborted) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading API key: %w", err)
		}
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("API key is required")
	}
	if err := credential.SetAPIKey(token); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("✓ Stored API key in the keyring"))
	return nil
}

func runAuthClear(cmd *cobra.Command, args []string) error {
	if err := credential.DeleteAPIKey(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("✓ Removed API key from the keyring"))
	return nil
}

func runAuthCheck(cmd *cobra.Command, args []string) error {
	runner, _ := newRunner(cmd.ErrOrStderr(), false)
	settings, err := runner.LoadSettings(settingsPath())
	if err != nil {
		return err
	}

	fetcher := canvas.NewFetcher(
		canvas.NewClient(settings.WebBaseURL(), settings.APIKey),
		settings.WebBaseURL(),
	)
	title := "Checking API key against " + settings.WebBaseURL() + "..."

	n, err := checkAPIKey(cmd.Context(), title, fetcher)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render(
		fmt.Sprintf("✓ API key works; %d courses visible", n)))
	return nil
}

// courseLister is the part of canvas.Fetcher used by auth check.
type courseLister interface {
	ListCourses(ctx context.Context) ([]model.Course, error)
}

// withSpinner shows a spinner titled title until action returns or ctx
// is done. Tests replace it.
var withSpinner = func(ctx context.Context, title string, action func()) error {
	return spinner.New().Title(title).Context(ctx).Action(action).Run()
}

type listResult struct {
	courses []model.Course
	err     error
}

// checkAPIKey lists courses behind a spinner and returns how many are
// visible. When the spinner stops early the listing is cancelled and its
// result is never read.
func checkAPIKey(ctx context.Context, title string, lister courseLister) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan listResult, 1)
	err := withSpinner(ctx, title, func() {
		courses, err := lister.ListCourses(ctx)
		done <- listResult{courses: courses, err: err}
	})
	if err != nil {
		return 0, fmt.Errorf("checking API key: %w", err)
	}

	res := <-done
	if res.err != nil {
		return 0, &app.ExitError{Code: app.ExitAPIFailure, Err: res.err}
	}
	return len(res.courses), nil
}
