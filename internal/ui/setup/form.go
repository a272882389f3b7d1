package setup

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/canvas-todo/internal/model"
)

// Answers holds the values collected by the setup form.
type Answers struct {
	BaseURL        string
	APIKey         string
	UseKeyring     bool
	OutputPath     string
	Header         string
	Weekly         string
	WeeklyResetDay string
	TimeZone       string
	TermIDs        string
}

// DefaultAnswers pre-fills the form, starting from existing settings when
// there are any.
func DefaultAnswers(existing *model.Settings) *Answers {
	a := &Answers{
		BaseURL:        model.DefaultBaseURL,
		UseKeyring:     true,
		Header:         "## Assignments",
		WeeklyResetDay: model.DefaultWeeklyResetDay,
	}
	if existing == nil {
		return a
	}

	a.BaseURL = existing.WebBaseURL()
	a.APIKey = existing.APIKey
	a.OutputPath = existing.OutputPath
	a.Header = existing.Header
	a.Weekly = existing.Weekly
	if existing.WeeklyResetDay != "" {
		a.WeeklyResetDay = existing.WeeklyResetDay
	}
	a.TimeZone = existing.TimeZone

	ids := make([]string, len(existing.TermIDs))
	for i, id := range existing.TermIDs {
		ids[i] = fmt.Sprint(id)
	}
	a.TermIDs = strings.Join(ids, ",")
	return a
}

// NewForm builds the interactive setup form bound to a.
func NewForm(a *Answers) *huh.Form {
	days := make([]huh.Option[string], 0, 7)
	for d := time.Monday; d <= time.Saturday; d++ {
		days = append(days, huh.NewOption(d.String(), d.String()))
	}
	days = append(days, huh.NewOption(time.Sunday.String(), time.Sunday.String()))

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Canvas URL").
				Description("Your school's Canvas address").
				Placeholder(model.DefaultBaseURL).
				Value(&a.BaseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API Key").
				Description("Account > Settings > New Access Token").
				EchoMode(huh.EchoModePassword).
				Value(&a.APIKey).
				Validate(validateRequired("API Key")),
			huh.NewConfirm().
				Title("Store the key in the system keyring?").
				Description("Otherwise it is written to the settings file").
				Value(&a.UseKeyring),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Output Path").
				Description("The markdown file to keep up to date").
				Placeholder("~/notes/todo.md").
				Value(&a.OutputPath).
				Validate(validateOutputPath),
			huh.NewInput().
				Title("Header").
				Description("Assignments are inserted below this line; empty means the top of the file").
				Value(&a.Header),
			huh.NewInput().
				Title("Weekly Header").
				Description("Optional recurring section above the header that is unchecked once a week").
				Value(&a.Weekly),
			huh.NewSelect[string]().
				Title("Weekly Reset Day").
				Options(days...).
				Value(&a.WeeklyResetDay),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Time Zone").
				Description("IANA name such as America/Chicago; empty uses this machine's zone").
				Value(&a.TimeZone).
				Validate(validateTimeZone),
			huh.NewInput().
				Title("Term IDs").
				Description("Comma-separated enrollment term ids; empty uses the latest term").
				Value(&a.TermIDs).
				Validate(validateTermIDs),
		),
	)
}

// Settings converts the answers into settings ready to save.
func (a *Answers) Settings() (*model.Settings, error) {
	terms, err := model.ParseTermIDs(a.TermIDs)
	if err != nil {
		return nil, err
	}
	return &model.Settings{
		APIKey:         strings.TrimSpace(a.APIKey),
		OutputPath:     expandHome(strings.TrimSpace(a.OutputPath)),
		Header:         a.Header,
		Weekly:         a.Weekly,
		WeeklyResetDay: a.WeeklyResetDay,
		TimeZone:       strings.TrimSpace(a.TimeZone),
		TermIDs:        terms,
		BaseURL:        strings.TrimRight(strings.TrimSpace(a.BaseURL), "/"),
	}, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://school.instructure.com)")
	}
	return nil
}

func validateOutputPath(s string) error {
	path := expandHome(strings.TrimSpace(s))
	if path == "" {
		return fmt.Errorf("Output Path is required")
	}
	info, err := os.Stat(filepath.Dir(path))
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory %s does not exist", filepath.Dir(path))
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func validateTimeZone(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown time zone %q", s)
	}
	return nil
}

func validateTermIDs(s string) error {
	_, err := model.ParseTermIDs(s)
	return err
}
