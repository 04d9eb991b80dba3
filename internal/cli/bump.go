package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bundlever/internal/version"
)

var bumpAll bool

var bumpCmd = &cobra.Command{
	Use:   "bump <major|minor|micro> [plugin...]",
	Short: "Stage a version increment",
	Long: `Increment one version field of the named plugins (or every plugin with --all).

Lower fields are kept as they are: bumping minor on 1.2.3 gives 1.3.3.
The edit is staged until 'apply' or 'revert'.`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: []string{"major", "minor", "micro"},
	RunE: func(cmd *cobra.Command, args []string) error {
		part, err := version.ParsePart(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.load(ctx); err != nil {
			return err
		}

		selection, err := a.selection(ctx, args[1:], bumpAll)
		if err != nil {
			return err
		}

		n, err := a.ctrl.Increment(ctx, part, selection)
		if err != nil {
			return err
		}
		if err := a.saveSession(ctx); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Staged %s bump for %s", part, PrintCount(n, "plugin", "plugins")))
		return nil
	},
}

func init() {
	bumpCmd.Flags().BoolVarP(&bumpAll, "all", "a", false, "Bump every plugin in the workspace")
}
