package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/canvas-todo/internal/credential"
	"github.com/nhle/canvas-todo/internal/source"
	"github.com/nhle/canvas-todo/internal/source/canvas"
	"github.com/nhle/canvas-todo/tests/testutil"
)

const (
	configPath = "/cfg/config.yaml"
	outputPath = "/notes/todo.md"
	statePath  = "/state/completed.json"
	webBase    = "https://canvas.example.edu"
)

// monday is a weekly reset day in UTC.
var monday = time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

type fixture struct {
	fs     afero.Fs
	fake   *testutil.FakeCanvas
	runner *Runner
	logs   *bytes.Buffer
}

func newFixture(t *testing.T, settings string) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/notes", 0o755))
	if settings != "" {
		require.NoError(t, afero.WriteFile(fs, configPath, []byte(settings), 0o600))
	}

	fake := testutil.NewFakeCanvas(t).
		Set(testutil.CoursesPath(), []interface{}{testutil.Course(1, 5, "CS101")}).
		Set(testutil.AssignmentsPath(1), []interface{}{
			testutil.Assignment(10, "HW1", testutil.Due(t, "2025-01-10T00:00:00Z"), false, webBase+"/courses/1/assignments/10"),
			testutil.Assignment(11, "Reading", nil, false, webBase+"/courses/1/assignments/11"),
		}).
		Set(testutil.ModulesPath(1), []interface{}{})

	var logs bytes.Buffer
	r := NewRunner(fs, log.New(&logs, "", 0))
	r.Now = func() time.Time { return monday }
	r.NewCaller = func(baseURL, token string) canvas.Caller {
		assert.Equal(t, webBase, baseURL)
		return fake
	}
	r.LookupAPIKey = func() (string, error) { return "", credential.ErrNoAPIKey }

	return &fixture{fs: fs, fake: fake, runner: r, logs: &logs}
}

const baseSettings = `
api_key: token
output_path: /notes/todo.md
header: "## Assignments"
time_zone: UTC
base_url: https://canvas.example.edu
state_path: /state/completed.json
`

func (f *fixture) run(t *testing.T) (*Summary, error) {
	t.Helper()
	return f.runner.Run(context.Background(), Options{ConfigPath: configPath}, source.Discard)
}

func (f *fixture) output(t *testing.T) string {
	t.Helper()
	data, err := afero.ReadFile(f.fs, outputPath)
	require.NoError(t, err)
	return string(data)
}

func TestRunWritesNewTodoFile(t *testing.T) {
	f := newFixture(t, baseSettings)

	summary, err := f.run(t)
	require.NoError(t, err)

	out := f.output(t)
	assert.True(t, strings.HasPrefix(out, "## Assignments\n<!-- canvas-todo updated 2025-01-06 15:00 UTC -->\n"))
	assert.Contains(t, out, "- [ ] CS101: [HW1]("+webBase+"/courses/1/assignments/10) [due::2025-01-10T00:00]")
	assert.Contains(t, out, "- [ ] [Reading]("+webBase+"/courses/1/assignments/11) NO DUE DATE")

	assert.Len(t, summary.Courses, 1)
	assert.Len(t, summary.Visible, 2)
	assert.Equal(t, outputPath, summary.OutputPath)

	exists, err := afero.Exists(f.fs, statePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunPreservesLinesAboveHeader(t *testing.T) {
	f := newFixture(t, baseSettings)
	require.NoError(t, afero.WriteFile(f.fs, outputPath, []byte("# My notes\n- [x] call mom\n## Assignments\n- [ ] junk\n"), 0o644))

	_, err := f.run(t)
	require.NoError(t, err)

	out := f.output(t)
	assert.True(t, strings.HasPrefix(out, "# My notes\n- [x] call mom\n## Assignments\n"))
	assert.NotContains(t, out, "junk")
}

func TestRunRemembersManualCompletion(t *testing.T) {
	f := newFixture(t, baseSettings)
	_, err := f.run(t)
	require.NoError(t, err)

	checked := strings.Replace(f.output(t), "- [ ] [Reading]", "- [x] [Reading]", 1)
	require.NoError(t, afero.WriteFile(f.fs, outputPath, []byte(checked), 0o644))

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, []string{webBase + "/courses/1/assignments/11"}, summary.Recovered)
	assert.NotContains(t, f.output(t), "Reading")

	state, err := afero.ReadFile(f.fs, statePath)
	require.NoError(t, err)
	assert.Contains(t, string(state), webBase+"/courses/1/assignments/11")

	summary, err = f.run(t)
	require.NoError(t, err)
	assert.Empty(t, summary.Recovered)
	assert.NotContains(t, f.output(t), "Reading", "stays hidden on later runs")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	f := newFixture(t, baseSettings)
	var stdout bytes.Buffer

	_, err := f.runner.Run(context.Background(), Options{ConfigPath: configPath, DryRun: true, Stdout: &stdout}, nil)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "[HW1]")
	for _, path := range []string{outputPath, statePath} {
		exists, err := afero.Exists(f.fs, path)
		require.NoError(t, err)
		assert.False(t, exists, path)
	}
}

func TestRunWeeklyResetOncePerDay(t *testing.T) {
	f := newFixture(t, baseSettings+"weekly: \"## Weekly\"\n")
	require.NoError(t, afero.WriteFile(f.fs, outputPath, []byte("## Weekly\n- [x] Laundry\n## Assignments\n"), 0o644))

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.True(t, summary.WeeklyReset)
	assert.True(t, strings.HasPrefix(f.output(t), "## Weekly\n- [ ] Laundry\n## Assignments\n"))

	state, err := afero.ReadFile(f.fs, statePath)
	require.NoError(t, err)
	assert.Contains(t, string(state), `"weekly_reset_on": "2025-01-06"`)

	// Checked again later the same Monday: not cleared a second time.
	again := strings.Replace(f.output(t), "- [ ] Laundry", "- [x] Laundry", 1)
	require.NoError(t, afero.WriteFile(f.fs, outputPath, []byte(again), 0o644))

	summary, err = f.run(t)
	require.NoError(t, err)
	assert.False(t, summary.WeeklyReset)
	assert.Contains(t, f.output(t), "- [x] Laundry")
}

func TestRunNoResetOnOtherDays(t *testing.T) {
	f := newFixture(t, baseSettings+"weekly: \"## Weekly\"\n")
	f.runner.Now = func() time.Time { return monday.AddDate(0, 0, 1) }
	require.NoError(t, afero.WriteFile(f.fs, outputPath, []byte("## Weekly\n- [x] Laundry\n## Assignments\n"), 0o644))

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.False(t, summary.WeeklyReset)
	assert.Contains(t, f.output(t), "- [x] Laundry")
}

func TestRunKeyringFallback(t *testing.T) {
	f := newFixture(t, strings.Replace(baseSettings, "api_key: token", "api_key: \"\"", 1))
	f.runner.LookupAPIKey = func() (string, error) { return "from-keyring", nil }

	_, err := f.run(t)
	assert.NoError(t, err)
}

// quiet discards the run log and returns the buffer collecting warnings.
func (f *fixture) quiet() *bytes.Buffer {
	var warnings bytes.Buffer
	f.runner.logger = log.New(io.Discard, "", 0)
	f.runner.Warnings = log.New(&warnings, "", 0)
	return &warnings
}

func TestRunWarnsAboutCorruptStateWithQuietLog(t *testing.T) {
	f := newFixture(t, baseSettings)
	warnings := f.quiet()
	require.NoError(t, afero.WriteFile(f.fs, statePath, []byte("{not json"), 0o600))

	_, err := f.run(t)
	require.NoError(t, err)
	assert.Contains(t, warnings.String(), "is corrupt")
}

func TestRunKeyringErrors(t *testing.T) {
	settings := strings.Replace(baseSettings, "api_key: token", "api_key: \"\"", 1)

	t.Run("broken backend is reported", func(t *testing.T) {
		f := newFixture(t, settings)
		warnings := f.quiet()
		f.runner.LookupAPIKey = func() (string, error) { return "", errors.New("secret service not running") }

		_, err := f.run(t)
		assert.Equal(t, ExitMissingAPIKey, ExitCode(err))
		assert.Contains(t, warnings.String(), "keyring unavailable: secret service not running")
	})

	t.Run("empty keyring is silent", func(t *testing.T) {
		f := newFixture(t, settings)
		warnings := f.quiet()

		_, err := f.run(t)
		assert.Equal(t, ExitMissingAPIKey, ExitCode(err))
		assert.Empty(t, warnings.String())
	})
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		settings string
		setup    func(t *testing.T, f *fixture)
		want     int
	}{
		{
			name: "missing settings",
			want: ExitMissingSettings,
		},
		{
			name:     "missing api key",
			settings: strings.Replace(baseSettings, "api_key: token", "", 1),
			want:     ExitMissingAPIKey,
		},
		{
			name:     "missing output path",
			settings: strings.Replace(baseSettings, "output_path: /notes/todo.md", "", 1),
			want:     ExitMissingOutputPath,
		},
		{
			name:     "bad time zone",
			settings: strings.Replace(baseSettings, "time_zone: UTC", "time_zone: Nowhere/Special", 1),
			want:     ExitTimeZone,
		},
		{
			name:     "output directory missing",
			settings: strings.Replace(baseSettings, "/notes/todo.md", "/missing/todo.md", 1),
			want:     ExitInvalidPath,
		},
		{
			name:     "output is a directory",
			settings: strings.Replace(baseSettings, "/notes/todo.md", "/notes", 1),
			want:     ExitInvalidPath,
		},
		{
			name:     "api failure",
			settings: baseSettings,
			setup: func(t *testing.T, f *fixture) {
				f.fake.Fail(testutil.CoursesPath(), &source.APIError{StatusCode: 401, Messages: []string{"Invalid access token."}})
			},
			want: ExitAPIFailure,
		},
		{
			name:     "header missing from existing file",
			settings: baseSettings,
			setup: func(t *testing.T, f *fixture) {
				require.NoError(t, afero.WriteFile(f.fs, outputPath, []byte("# edited by hand\n"), 0o644))
			},
			want: ExitMissingHeader,
		},
		{
			name:     "invalid reset day",
			settings: baseSettings + "weekly_reset_day: Caturday\n",
			want:     ExitInvalidSettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.settings)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			_, err := f.run(t)
			require.Error(t, err)
			assert.Equal(t, tt.want, ExitCode(err))
		})
	}
}

func TestRunMissingSettingsWritesTemplate(t *testing.T) {
	f := newFixture(t, "")
	warnings := f.quiet()

	_, err := f.run(t)
	assert.Equal(t, ExitMissingSettings, ExitCode(err))
	assert.Contains(t, warnings.String(), "wrote settings template to "+configPath)

	exists, err := afero.Exists(f.fs, configPath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunChecksSettingsBeforeNetwork(t *testing.T) {
	f := newFixture(t, strings.Replace(baseSettings, "time_zone: UTC", "time_zone: Nowhere/Special", 1))

	_, err := f.run(t)
	require.Error(t, err)
	assert.Empty(t, f.fake.Calls())
}

func TestRunWriteFailure(t *testing.T) {
	f := newFixture(t, baseSettings)
	f.runner.fs = afero.NewReadOnlyFs(f.fs)

	_, err := f.run(t)
	require.Error(t, err)
	assert.Equal(t, ExitWriteFailure, ExitCode(err))
}

func TestRunWritesCalendar(t *testing.T) {
	f := newFixture(t, baseSettings+"calendar_path: /notes/canvas.ics\n")

	summary, err := f.run(t)
	require.NoError(t, err)
	assert.Equal(t, "/notes/canvas.ics", summary.CalendarPath)

	data, err := afero.ReadFile(f.fs, "/notes/canvas.ics")
	require.NoError(t, err)
	assert.Contains(t, string(data), "SUMMARY:CS101: HW1")
	assert.NotContains(t, string(data), "Reading")
}
