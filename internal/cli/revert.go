package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Discard all staged edits",
	Long:  `Drop every staged edit. Manifests on disk are not touched.`,
	Args:  cobra.NoArgs,
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

		pending, err := a.ctrl.HasPendingChanges(ctx)
		if err != nil {
			return err
		}
		if !pending {
			PrintInfo("Nothing to revert")
			return nil
		}

		discarded := len(a.session.Pending)
		if err := a.ctrl.Revert(ctx); err != nil {
			return err
		}
		if err := a.saveSession(ctx); err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Discarded %s", PrintCount(discarded, "staged edit", "staged edits")))
		return nil
	},
}
