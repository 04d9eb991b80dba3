package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type reloadJSON struct {
	Workspace string            `json:"workspace"`
	Plugins   int               `json:"plugins"`
	Corrupt   map[string]string `json:"corrupt"`
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rescan the workspace and report corrupt manifests",
	Long: `Rescan the workspace. Every manifest that cannot be parsed is reported and
left out; the remaining plugins are still found. Staged edits whose manifest
changed on disk are dropped.`,
	Args: cobra.NoArgs,
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
		// persist any staged edits dropped while restaging
		if err := a.saveSession(ctx); err != nil {
			return err
		}

		if jsonOutput {
			out := reloadJSON{
				Workspace: outcome.Changed.Workspace,
				Plugins:   len(outcome.Changed.Plugins),
				Corrupt:   map[string]string{},
			}
			for _, bad := range outcome.Corrupt {
				out.Corrupt[bad.Ref] = bad.Err.Error()
			}
			return outputJSON(out)
		}

		PrintSuccess(fmt.Sprintf("Found %s in %s",
			PrintCount(len(outcome.Changed.Plugins), "plugin", "plugins"), outcome.Changed.Workspace))
		if n := len(outcome.Corrupt); n > 0 {
			PrintWarning(fmt.Sprintf("%s skipped", PrintCount(n, "corrupt manifest", "corrupt manifests")))
		}
		return nil
	},
}
