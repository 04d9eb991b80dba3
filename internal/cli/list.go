package cli

import (
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins and their versions",
	Long: `Scan the workspace and display every plugin with its manifest version.

Plugins with a staged edit show the version that apply would write.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.load(ctx); err != nil {
			return err
		}

		views, err := a.ctrl.Plugins(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(toPluginJSON(views))
		}

		if len(views) == 0 {
			PrintEmptyState("No plugins found in " + a.workspace)
			return nil
		}

		rows := make([][]string, 0, len(views))
		for _, v := range views {
			staged := ""
			if v.Modified {
				staged = pendingColor.Sprint(v.Version.String())
			}
			rows = append(rows, []string{v.Name, v.Persisted.String(), staged, a.relPath(v.Manifest)})
		}
		PrintTable([]string{"Plugin", "Version", "Staged", "Manifest"}, rows)
		return nil
	},
}
