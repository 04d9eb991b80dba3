package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bundlever/internal/planner"
)

var (
	applyForce  bool
	applyDryRun bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Write staged versions to the manifests",
	Long: `Write every staged edit to its plugin's META-INF/MANIFEST.MF.

A manifest changed on disk since it was scanned is a conflict and stops the
apply; use --force to overwrite it. Plugins whose write fails stay staged and
the command exits non-zero, so apply can simply be run again.`,
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

		plan, err := a.ctrl.Plan(ctx, applyForce)
		if err != nil {
			return err
		}

		if plan.HasConflicts() && !applyForce {
			PrintSection("Conflicts Detected")
			for _, conflict := range plan.Conflicts {
				PrintError(fmt.Sprintf("%s: %s (expected %s, found %s)",
					conflict.Plugin, conflict.Reason, conflict.Expected, conflict.OnDisk))
			}
			_, _ = fmt.Fprintln(stdout)
			PrintWarning("Use --force to override conflicts.")
			return fmt.Errorf("%w: %s", planner.ErrConflict, PrintCount(len(plan.Conflicts), "conflict", "conflicts"))
		}

		if applyDryRun {
			PrintSection("Dry Run")
			PrintInfo(fmt.Sprintf("Would write %s", PrintCount(len(plan.Operations), "manifest", "manifests")))
			if !plan.IsEmpty() {
				rows := make([][]string, 0, len(plan.Operations))
				for _, op := range plan.Operations {
					rows = append(rows, []string{op.Plugin, op.From.String(), op.To.String(), a.relPath(op.Manifest)})
				}
				PrintTable([]string{"Plugin", "From", "To", "Manifest"}, rows)
			}
			return nil
		}

		result, err := a.ctrl.Apply(ctx)
		if err != nil {
			return err
		}
		if err := a.saveSession(ctx); err != nil {
			return err
		}

		if result.NoChanges() {
			PrintInfo("Nothing to apply")
			return nil
		}

		if result.Succeeded > 0 {
			PrintSuccess(fmt.Sprintf("Wrote %s", PrintCount(result.Succeeded, "manifest", "manifests")))
		}
		for _, name := range result.Failed {
			PrintError(fmt.Sprintf("%s: %v", name, result.Errors[name]))
		}
		if len(result.Skipped) > 0 {
			PrintWarning(fmt.Sprintf("Interrupted, %s still staged", PrintCount(len(result.Skipped), "plugin", "plugins")))
		}
		return result.Err()
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "Overwrite manifests changed since the scan")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show what would be written without writing")
}
