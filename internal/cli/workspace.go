package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// workspaceCmd is the parent command for workspace management.
var workspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Choose the workspace bundlever operates on",
	Long: `Choose the workspace bundlever operates on.

Resolution order: --workspace flag, 'workspace use', config.yaml workspace,
git root of the current directory, the current directory.`,
}

var workspaceUseCmd = &cobra.Command{
	Use:   "use <path>",
	Short: "Remember a workspace for later commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newConfiguredApp()
		if err != nil {
			return err
		}

		abs, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve path: %w", err)
		}
		info, err := a.fs.Stat(abs)
		if err != nil {
			return fmt.Errorf("failed to use workspace: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("failed to use workspace: %s is not a directory", abs)
		}

		prefs, err := a.sessions.LoadPreferences()
		if err != nil {
			return err
		}
		prefs.LastWorkspace = abs
		prefs.UpdatedAt = a.clock.Now()
		if err := a.sessions.SavePreferences(prefs); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Workspace set to: %s", abs))
		return nil
	},
}

var workspaceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the workspace in effect and where it came from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newConfiguredApp()
		if err != nil {
			return err
		}

		ws, source, err := a.resolveWorkspace()
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(map[string]string{"workspace": ws, "source": source})
		}
		PrintLabelValue("Workspace", ws)
		PrintLabelValue("Source", source)
		return nil
	},
}

func init() {
	workspaceCmd.AddCommand(workspaceUseCmd)
	workspaceCmd.AddCommand(workspaceShowCmd)
}
