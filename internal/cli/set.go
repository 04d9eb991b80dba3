package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	setAll     bool
	setDefault bool
)

var setCmd = &cobra.Command{
	Use:   "set <version> [plugin...]",
	Short: "Stage an explicit version",
	Long: `Set the version of the named plugins (or every plugin with --all).

The version must be major.minor.micro with an optional qualifier, for example
3.0.0 or 3.0.0.RC1. With --default the configured defaultVersion is used and
every argument is a plugin name.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		text := a.cfg.DefaultVersion
		if !setDefault {
			if len(args) == 0 {
				return fmt.Errorf("missing version argument")
			}
			text, args = args[0], args[1:]
		}

		if _, err := a.load(ctx); err != nil {
			return err
		}

		selection, err := a.selection(ctx, args, setAll)
		if err != nil {
			return err
		}

		n, err := a.ctrl.SetVersion(ctx, selection, text)
		if err != nil {
			return err
		}
		if err := a.saveSession(ctx); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Staged version %s for %s", text, PrintCount(n, "plugin", "plugins")))
		return nil
	},
}

func init() {
	setCmd.Flags().BoolVarP(&setAll, "all", "a", false, "Set the version of every plugin in the workspace")
	setCmd.Flags().BoolVar(&setDefault, "default", false, "Use the configured defaultVersion")
}
