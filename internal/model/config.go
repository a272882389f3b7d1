package model

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Setting keys as they appear in the YAML settings file.
const (
	KeyAPIKey         = "api_key"
	KeyOutputPath     = "output_path"
	KeyHeader         = "header"
	KeyWeekly         = "weekly"
	KeyWeeklyResetDay = "weekly_reset_day"
	KeyTimeZone       = "time_zone"
	KeyTermIDs        = "term_ids"
	KeyBaseURL        = "base_url"
	KeyStatePath      = "state_path"
	KeyCalendarPath   = "calendar_path"
)

// DefaultBaseURL is used when no Canvas instance is configured.
const DefaultBaseURL = "https://canvas.instructure.com"

// DefaultWeeklyResetDay is the weekday the weekly section is reset on
// when none is configured.
const DefaultWeeklyResetDay = "Monday"

// envPrefix namespaces environment overrides (CANVASTODO_API_KEY, ...).
const envPrefix = "CANVASTODO"

var settingKeys = []string{
	KeyAPIKey, KeyOutputPath, KeyHeader, KeyWeekly, KeyWeeklyResetDay,
	KeyTimeZone, KeyTermIDs, KeyBaseURL, KeyStatePath, KeyCalendarPath,
}

// legacyKeys maps the labels of the plain-text settings.txt format to
// setting keys.
var legacyKeys = map[string]string{
	"API Key":          KeyAPIKey,
	"Output Path":      KeyOutputPath,
	"Header":           KeyHeader,
	"Weekly":           KeyWeekly,
	"Weekly Reset Day": KeyWeeklyResetDay,
	"Time Zone":        KeyTimeZone,
	"TermIDs":          KeyTermIDs,
	"Base URL":         KeyBaseURL,
	"State Path":       KeyStatePath,
	"Calendar Path":    KeyCalendarPath,
}

var (
	// ErrSettingsNotFound is returned when the settings file does not exist.
	ErrSettingsNotFound = errors.New("settings file not found")

	// ErrMissingAPIKey is returned when no Canvas token is configured.
	ErrMissingAPIKey = errors.New("no Canvas API key configured")

	// ErrMissingOutputPath is returned when no output file is configured.
	ErrMissingOutputPath = errors.New("no output path configured")

	// ErrInvalidSetting is returned for settings that cannot be interpreted.
	ErrInvalidSetting = errors.New("invalid setting")
)

// TimeZoneError reports a time zone name that could not be resolved.
type TimeZoneError struct {
	Name string
	Err  error
}

func (e *TimeZoneError) Error() string {
	return fmt.Sprintf("loading time zone %q: %v", e.Name, e.Err)
}

func (e *TimeZoneError) Unwrap() error {
	return e.Err
}

// Settings is the run configuration. It is built once at startup and
// passed to each component.
type Settings struct {
	// APIKey is the Canvas bearer token.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// OutputPath is the todo file rewritten on every run.
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`

	// Header is the line after which assignments are inserted.
	// Empty means the start of the file.
	Header string `mapstructure:"header" yaml:"header"`

	// Weekly is the header of a recurring task section above Header
	// whose checkboxes are cleared once a week.
	Weekly string `mapstructure:"weekly" yaml:"weekly"`

	// WeeklyResetDay is the weekday name on which Weekly is reset.
	WeeklyResetDay string `mapstructure:"weekly_reset_day" yaml:"weekly_reset_day"`

	// TimeZone is an IANA zone name used to display due dates.
	// Empty means the host's local zone.
	TimeZone string `mapstructure:"time_zone" yaml:"time_zone"`

	// TermIDs restricts fetching to these enrollment terms. Empty means
	// the most recent term.
	TermIDs []int `mapstructure:"-" yaml:"term_ids"`

	// BaseURL is the root URL of the Canvas instance.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// StatePath is the side-car file holding manually completed
	// assignments.
	StatePath string `mapstructure:"state_path" yaml:"state_path"`

	// CalendarPath, when set, receives an iCalendar file of the open
	// dated assignments on every run.
	CalendarPath string `mapstructure:"calendar_path" yaml:"calendar_path"`
}

// DefaultConfigDir returns ~/.config/canvastodo.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "canvastodo")
}

// DefaultConfigPath returns the default settings file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultStatePath returns the default side-car state location.
func DefaultStatePath() string {
	return filepath.Join(DefaultConfigDir(), "completed.json")
}

// newViper returns a viper instance with defaults and environment
// bindings for every setting key.
func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range settingKeys {
		_ = v.BindEnv(key)
	}

	v.SetDefault(KeyBaseURL, DefaultBaseURL)
	v.SetDefault(KeyWeeklyResetDay, DefaultWeeklyResetDay)
	v.SetDefault(KeyStatePath, DefaultStatePath())
	return v
}

// LoadSettings reads settings from path. Files ending in .txt use the
// "Label: value" settings.txt format; anything else is read as YAML.
// Environment variables prefixed with CANVASTODO_ override file values.
func LoadSettings(fs afero.Fs, path string) (*Settings, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("checking settings %s: %w", path, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSettingsNotFound, path)
	}

	v := newViper(fs)

	if isLegacyPath(path) {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("reading settings %s: %w", path, err)
		}
		if err := v.MergeConfigMap(parseLegacy(string(data))); err != nil {
			return nil, fmt.Errorf("parsing settings %s: %w", path, err)
		}
	} else {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading settings %s: %w", path, err)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	// Unedited template values count as unset.
	for _, field := range []*string{&s.APIKey, &s.OutputPath} {
		if isPlaceholder(*field) {
			*field = ""
		}
	}

	terms, err := ParseTermIDs(v.Get(KeyTermIDs))
	if err != nil {
		return nil, err
	}
	s.TermIDs = terms

	return s, nil
}

// Validate checks the settings that a run cannot proceed without.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(s.OutputPath) == "" {
		return ErrMissingOutputPath
	}
	if _, err := s.ResetWeekday(); err != nil {
		return err
	}
	return nil
}

// Location resolves the display time zone.
func (s *Settings) Location() (*time.Location, error) {
	if s.TimeZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, &TimeZoneError{Name: s.TimeZone, Err: err}
	}
	return loc, nil
}

// ResetWeekday parses WeeklyResetDay. Full and three-letter English names
// are accepted, case-insensitively.
func (s *Settings) ResetWeekday() (time.Weekday, error) {
	name := strings.TrimSpace(s.WeeklyResetDay)
	if name == "" {
		name = DefaultWeeklyResetDay
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		full := d.String()
		if strings.EqualFold(name, full) || strings.EqualFold(name, full[:3]) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf(
		"%w: weekly_reset_day %q is not a weekday", ErrInvalidSetting, name,
	)
}

// WebBaseURL returns BaseURL without a trailing slash.
func (s *Settings) WebBaseURL() string {
	base := s.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// SaveSettings writes settings to path as YAML, creating parent
// directories if needed. The API key is only written when includeKey is
// true; otherwise it is expected to live in the keyring.
func SaveSettings(fs afero.Fs, path string, s *Settings, includeKey bool) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")

	if includeKey {
		v.Set(KeyAPIKey, s.APIKey)
	}
	v.Set(KeyOutputPath, s.OutputPath)
	v.Set(KeyHeader, s.Header)
	v.Set(KeyWeekly, s.Weekly)
	v.Set(KeyWeeklyResetDay, s.WeeklyResetDay)
	v.Set(KeyTimeZone, s.TimeZone)
	v.Set(KeyTermIDs, s.TermIDs)
	v.Set(KeyBaseURL, s.BaseURL)
	if s.StatePath != "" {
		v.Set(KeyStatePath, s.StatePath)
	}
	if s.CalendarPath != "" {
		v.Set(KeyCalendarPath, s.CalendarPath)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	return nil
}

const yamlTemplate = `# canvas-todo settings
# api_key may be left empty when the token is stored with "canvastodo auth set".
api_key: ""
output_path: ""
header: "## Assignments"
weekly: ""
weekly_reset_day: Monday
time_zone: ""
term_ids: ""
base_url: ` + DefaultBaseURL + `
calendar_path: ""
`

const legacyTemplate = `API Key: <Paste your Canvas API key here>
Output Path: <Path to the text file to output to>
Header: <The line of text to add the assignments after>
`

// WriteTemplate writes a settings skeleton for the user to fill in.
func WriteTemplate(fs afero.Fs, path string) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory %s: %w", dir, err)
	}

	tmpl := yamlTemplate
	if isLegacyPath(path) {
		tmpl = legacyTemplate
	}
	if err := afero.WriteFile(fs, path, []byte(tmpl), 0o600); err != nil {
		return fmt.Errorf("writing settings template %s: %w", path, err)
	}
	return nil
}

// WatchSettings calls onChange whenever the settings file at path is
// modified. It watches the OS filesystem, not an afero.Fs.
func WatchSettings(path string, onChange func(name string)) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	// Legacy files may not parse as YAML; only the change events matter.
	_ = v.ReadInConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
			onChange(e.Name)
		}
	})
	v.WatchConfig()
}

func isPlaceholder(value string) bool {
	value = strings.TrimSpace(value)
	return len(value) > 2 && strings.HasPrefix(value, "<") && strings.HasSuffix(value, ">")
}

func isLegacyPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

// parseLegacy reads "Label: value" lines. Values may themselves contain
// colons; unknown labels are ignored.
func parseLegacy(content string) map[string]interface{} {
	out := make(map[string]interface{})
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		label, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		key, known := legacyKeys[strings.TrimSpace(label)]
		if !known {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}

// ParseTermIDs accepts a comma-separated string, a list, or a single
// number. Repeated ids are dropped, keeping the first occurrence.
func ParseTermIDs(raw interface{}) ([]int, error) {
	var parts []interface{}
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	case []interface{}:
		parts = val
	case []int:
		return uniqueIDs(val), nil
	default:
		parts = []interface{}{val}
	}

	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		id, err := cast.ToIntE(p)
		if err != nil {
			return nil, fmt.Errorf("%w: term id %v: %v", ErrInvalidSetting, p, err)
		}
		ids = append(ids, id)
	}
	return uniqueIDs(ids), nil
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
