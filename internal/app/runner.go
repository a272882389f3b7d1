package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/nhle/canvas-todo/internal/calendar"
	"github.com/nhle/canvas-todo/internal/credential"
	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/source"
	"github.com/nhle/canvas-todo/internal/source/canvas"
	"github.com/nhle/canvas-todo/internal/store"
	"github.com/nhle/canvas-todo/internal/todo"
)

// Options control a single run.
type Options struct {
	// ConfigPath is the settings file to load.
	ConfigPath string

	// DryRun renders to Stdout instead of writing the todo and state files.
	DryRun bool

	// Stdout receives dry-run output.
	Stdout io.Writer
}

// Summary describes what a successful run did.
type Summary struct {
	OutputPath   string
	CalendarPath string
	Courses      []model.Course
	Open         []*model.Assignment
	Visible      []*model.Assignment
	Recovered    []string
	Pruned       []model.CompletedAssignment
	WeeklyReset  bool
	Location     *time.Location
	FinishedAt   time.Time
}

// Runner executes the fetch, reconcile, render and write pipeline.
type Runner struct {
	fs     afero.Fs
	logger *log.Logger

	// Warnings receives problems the user should see even when the run
	// log is discarded, such as a corrupt state file.
	Warnings *log.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time

	// NewCaller builds the Canvas API caller from the base URL and token.
	NewCaller func(baseURL, token string) canvas.Caller

	// LookupAPIKey supplies the token when the settings have none.
	LookupAPIKey func() (string, error)
}

// NewRunner returns a Runner using fs for all file access.
func NewRunner(fs afero.Fs, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		fs:       fs,
		logger:   logger,
		Warnings: logger,
		Now:      time.Now,
		NewCaller: func(baseURL, token string) canvas.Caller {
			return canvas.NewClient(baseURL, token)
		},
		LookupAPIKey: credential.GetAPIKey,
	}
}

// LoadSettings reads and validates the settings, falling back to the
// keyring for the API key. Failures are returned as *ExitError.
func (r *Runner) LoadSettings(path string) (*model.Settings, error) {
	settings, err := model.LoadSettings(r.fs, path)
	if err != nil {
		if errors.Is(err, model.ErrSettingsNotFound) {
			if tmplErr := model.WriteTemplate(r.fs, path); tmplErr != nil {
				r.Warnings.Printf("could not write settings template: %v", tmplErr)
			} else {
				r.Warnings.Printf("wrote settings template to %s; fill it in and run again", path)
			}
			return nil, &ExitError{Code: ExitMissingSettings, Err: err}
		}
		return nil, &ExitError{Code: ExitInvalidSettings, Err: err}
	}

	if strings.TrimSpace(settings.APIKey) == "" && r.LookupAPIKey != nil {
		key, err := r.LookupAPIKey()
		switch {
		case err == nil:
			settings.APIKey = key
		case !errors.Is(err, credential.ErrNoAPIKey):
			r.Warnings.Printf("keyring unavailable: %v", err)
		}
	}

	if err := settings.Validate(); err != nil {
		switch {
		case errors.Is(err, model.ErrMissingAPIKey):
			return nil, &ExitError{Code: ExitMissingAPIKey, Err: err}
		case errors.Is(err, model.ErrMissingOutputPath):
			return nil, &ExitError{Code: ExitMissingOutputPath, Err: err}
		default:
			return nil, &ExitError{Code: ExitInvalidSettings, Err: err}
		}
	}

	return settings, nil
}

// Run performs one complete pass. Configuration problems are reported
// before any network activity. The new todo content is built in memory
// and written in one step.
func (r *Runner) Run(
	ctx context.Context,
	opts Options,
	sink source.ProgressSink,
) (*Summary, error) {
	settings, err := r.LoadSettings(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	loc, err := settings.Location()
	if err != nil {
		return nil, &ExitError{Code: ExitTimeZone, Err: err}
	}
	resetDay, _ := settings.ResetWeekday()

	if err := r.checkOutputPath(settings.OutputPath); err != nil {
		return nil, &ExitError{Code: ExitInvalidPath, Err: err}
	}

	fetcher := canvas.NewFetcher(
		r.NewCaller(settings.WebBaseURL(), settings.APIKey),
		settings.WebBaseURL(),
	)
	courses, err := fetcher.CoursesForTerms(ctx, settings.TermIDs, sink)
	if err != nil {
		return nil, &ExitError{Code: ExitAPIFailure, Err: err}
	}
	r.logger.Printf("fetched %d courses", len(courses))

	previous, err := r.readDocument(settings.OutputPath, settings.Header)
	if err != nil {
		return nil, &ExitError{Code: ExitInvalidPath, Err: err}
	}

	statePath := settings.StatePath
	if statePath == "" {
		statePath = model.DefaultStatePath()
	}
	st := store.NewJSONStore(r.fs, statePath, r.Warnings)
	completed := st.LoadCompleted()

	now := r.Now()
	today := now.In(loc).Format("2006-01-02")
	resetDue := settings.Weekly != "" &&
		now.In(loc).Weekday() == resetDay &&
		completed.WeeklyResetOn != today

	result, err := todo.Reconcile(todo.Input{
		Courses:           courses,
		Previous:          previous,
		Completed:         completed,
		Header:            settings.Header,
		WeeklyHeader:      settings.Weekly,
		WeeklyResetActive: resetDue,
		Now:               now,
	})
	if err != nil {
		if errors.Is(err, todo.ErrHeaderNotFound) {
			return nil, &ExitError{
				Code: ExitMissingHeader,
				Err:  fmt.Errorf("%s: %w", settings.OutputPath, err),
			}
		}
		return nil, &ExitError{Code: ExitInvalidSettings, Err: err}
	}

	for _, url := range result.Recovered {
		r.logger.Printf("recorded manual completion %s", url)
	}
	for _, rec := range result.Pruned {
		r.logger.Printf("dropped stale completion %s", rec.URL)
	}

	rendered := todo.Render(todo.RenderInput{
		Previous: previous,
		Result:   result,
		Courses:  courses,
		Location: loc,
		Now:      now,
	})

	summary := &Summary{
		OutputPath:  settings.OutputPath,
		Courses:     courses,
		Open:        result.Open,
		Visible:     result.Visible,
		Recovered:   result.Recovered,
		Pruned:      result.Pruned,
		WeeklyReset: result.WeeklyReset,
		Location:    loc,
		FinishedAt:  now,
	}

	if opts.DryRun {
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		if _, err := io.WriteString(out, rendered.String()); err != nil {
			return nil, &ExitError{Code: ExitWriteFailure, Err: err}
		}
		return summary, nil
	}

	if err := st.SaveCompleted(completed); err != nil {
		return nil, &ExitError{Code: ExitWriteFailure, Err: err}
	}

	if err := store.WriteFileAtomic(r.fs, settings.OutputPath, []byte(rendered.String()), 0o644); err != nil {
		return nil, &ExitError{
			Code: ExitWriteFailure,
			Err:  fmt.Errorf("writing todo file: %w", err),
		}
	}
	r.logger.Printf("wrote %d open assignments to %s", len(result.Visible), settings.OutputPath)

	if settings.CalendarPath != "" {
		if err := r.writeCalendar(settings.CalendarPath, courses, result.Visible, now); err != nil {
			return nil, &ExitError{Code: ExitWriteFailure, Err: err}
		}
		summary.CalendarPath = settings.CalendarPath
	}

	if result.WeeklyReset {
		completed.WeeklyResetOn = today
		if err := st.SaveCompleted(completed); err != nil {
			r.Warnings.Printf("recording weekly reset: %v", err)
		}
	}

	return summary, nil
}

// checkOutputPath requires the output's directory to exist and the path
// itself to not be a directory.
func (r *Runner) checkOutputPath(path string) error {
	dir := filepath.Dir(path)
	isDir, err := afero.IsDir(r.fs, dir)
	if err != nil || !isDir {
		return fmt.Errorf("%w: directory %s does not exist", ErrInvalidOutputPath, dir)
	}

	isDir, err = afero.IsDir(r.fs, path)
	if err == nil && isDir {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidOutputPath, path)
	}
	return nil
}

// writeCalendar exports the visible dated assignments as iCalendar.
func (r *Runner) writeCalendar(path string, courses []model.Course, visible []*model.Assignment, now time.Time) error {
	var buf bytes.Buffer
	if err := calendar.Write(&buf, courses, visible, now); err != nil {
		return fmt.Errorf("building calendar: %w", err)
	}
	if err := store.WriteFileAtomic(r.fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing calendar: %w", err)
	}
	r.logger.Printf("wrote calendar to %s", path)
	return nil
}

// readDocument loads the previous render, or seeds one from the header
// when the file does not exist yet.
func (r *Runner) readDocument(path, header string) (todo.Document, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Printf("%s does not exist yet; starting a new file", path)
			return todo.SeedDocument(header), nil
		}
		return todo.Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return todo.ParseDocument(string(data)), nil
}
