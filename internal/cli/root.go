package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nhle/canvas-todo/internal/app"
	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/theme"
)

var (
	configPath string
	verbose    bool
	rootCmd    *cobra.Command
)

// appFs is the filesystem every command works against.
var appFs afero.Fs = afero.NewOsFs()

func init() {
	rootCmd = &cobra.Command{
		Use:   "canvastodo",
		Short: "Keep a markdown todo list in sync with Canvas assignments",
		Long: `canvastodo fetches your open Canvas assignments and rewrites a section of a
markdown file with them, grouped by due date and by course. Assignments you
check off by hand stay hidden on later runs.`,
		RunE:              runSync, // Default action is run
		PersistentPreRunE: loadEnv,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Settings file (default ~/.config/canvastodo/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	addRunFlags(rootCmd)
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, theme.ErrorStyle.Render("Error:"), err)
		return err
	}
	return nil
}

// loadEnv reads .env from the working directory and the config directory.
// Variables already set in the environment win.
func loadEnv(cmd *cobra.Command, args []string) error {
	for _, path := range []string{".env", filepath.Join(model.DefaultConfigDir(), ".env")} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

// settingsPath resolves --config, falling back to CANVASTODO_CONFIG and
// then the default location.
func settingsPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("CANVASTODO_CONFIG"); env != "" {
		return env
	}
	return model.DefaultConfigPath()
}

// newRunner builds a Runner tagged with a short run id. The run log is
// discarded unless --verbose is set or always is true; warnings always
// reach out.
func newRunner(out io.Writer, always bool) (*app.Runner, *log.Logger) {
	prefix := "canvastodo[" + uuid.NewString()[:8] + "] "

	logOut := out
	if !verbose && !always {
		logOut = io.Discard
	}
	logger := log.New(logOut, prefix, log.LstdFlags)

	runner := app.NewRunner(appFs, logger)
	runner.Warnings = log.New(out, prefix, log.LstdFlags)
	return runner, logger
}
