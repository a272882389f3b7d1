package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/canvas-todo/internal/credential"
	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/theme"
	"github.com/nhle/canvas-todo/internal/ui/setup"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or update the settings file interactively",
	Long: `Walk through the settings and write them to the settings file.

With --template, write a settings template to fill in by hand instead.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("template", false, "Write a template without prompting")
	initCmd.Flags().Bool("force", false, "Overwrite an existing settings file when writing a template")
}

func runInit(cmd *cobra.Command, args []string) error {
	template, _ := cmd.Flags().GetBool("template")
	force, _ := cmd.Flags().GetBool("force")
	path := settingsPath()

	if template {
		return writeTemplate(cmd, path, force)
	}

	var existing *model.Settings
	if s, err := model.LoadSettings(appFs, path); err == nil {
		existing = s
	}

	answers := setup.DefaultAnswers(existing)
	if err := setup.NewForm(answers).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(cmd.ErrOrStderr(), theme.HelpStyle.Render("Setup cancelled; nothing was written."))
			return nil
		}
		return fmt.Errorf("running setup form: %w", err)
	}

	settings, err := answers.Settings()
	if err != nil {
		return err
	}
	if existing != nil {
		settings.StatePath = existing.StatePath
	}

	includeKey := !answers.UseKeyring
	if answers.UseKeyring {
		if err := credential.SetAPIKey(settings.APIKey); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %v; writing the key to the settings file instead\n",
				theme.ErrorStyle.Render("Keyring unavailable:"), err)
			includeKey = true
		}
	}

	if err := model.SaveSettings(appFs, path, settings, includeKey); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("✓ Saved settings to "+path))
	return nil
}

func writeTemplate(cmd *cobra.Command, path string, force bool) error {
	if !force {
		if _, err := appFs.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	if err := model.WriteTemplate(appFs, path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), theme.SuccessStyle.Render("✓ Wrote settings template to "+path))
	return nil
}
