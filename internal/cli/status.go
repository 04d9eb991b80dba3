package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type statusJSON struct {
	Workspace string       `json:"workspace"`
	Source    string       `json:"source"`
	State     string       `json:"state"`
	Plugins   int          `json:"plugins"`
	Corrupt   []string     `json:"corrupt"`
	Pending   []pluginJSON `json:"pending"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show workspace status",
	Long:  `Display the workspace, the number of plugins found and every staged edit.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		outcome, err := a.load(ctx)
		if err != nil {
			return err
		}

		views, err := a.ctrl.Plugins(ctx)
		if err != nil {
			return err
		}

		status := statusJSON{
			Workspace: a.workspace,
			Source:    a.source,
			State:     a.ctrl.State().String(),
			Plugins:   len(views),
			Corrupt:   []string{},
			Pending:   []pluginJSON{},
		}
		for _, bad := range outcome.Corrupt {
			status.Corrupt = append(status.Corrupt, bad.Ref)
		}
		for _, p := range toPluginJSON(views) {
			if p.Modified {
				status.Pending = append(status.Pending, p)
			}
		}

		if jsonOutput {
			return outputJSON(status)
		}

		PrintSection("Workspace")
		PrintLabelValue("Path", status.Workspace)
		PrintLabelValue("Source", status.Source)
		PrintLabelValue("State", status.State)
		PrintLabelValue("Plugins", fmt.Sprintf("%d", status.Plugins))
		if len(status.Corrupt) > 0 {
			PrintLabelValueWithColor("Corrupt manifests", fmt.Sprintf("%d", len(status.Corrupt)), warningColor)
		}

		PrintSection("Staged Edits")
		if len(status.Pending) == 0 {
			PrintEmptyState("Nothing staged")
			return nil
		}
		rows := make([][]string, 0, len(status.Pending))
		for _, p := range status.Pending {
			rows = append(rows, []string{p.Name, p.Persisted, p.Version})
		}
		PrintTable([]string{"Plugin", "From", "To"}, rows)
		return nil
	},
}
