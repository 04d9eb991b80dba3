package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/bundlever/internal/loggerx"
	"github.com/danieljhkim/bundlever/internal/tui"
)

var tuiWatch bool

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and edit plugin versions interactively",
	Long: `Open an interactive view of the workspace.

Keys: space select, a select all, 1/2/3 bump major/minor/micro, s set version,
enter apply, u revert, r reload, q quit. Bumps and set version act on the
selected plugins only. Edits left unapplied on quit stay
staged for later commands. Logs go to the bundlever.log file in the data root.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newConfiguredApp()
		if err != nil {
			return err
		}

		logFile, err := os.OpenFile(a.paths.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = logFile.Close() }()
		a.log = loggerx.NewWithOutput(a.cfg.Log, logFile)

		a.start(ctx)
		defer a.close()

		if _, err := a.load(ctx); err != nil {
			return err
		}
		views, err := a.ctrl.Plugins(ctx)
		if err != nil {
			return err
		}

		err = tui.Run(ctx, tui.Options{
			Controller:     a.ctrl,
			Events:         a.events,
			Workspace:      a.workspace,
			Plugins:        views,
			DefaultVersion: a.cfg.DefaultVersion,
			Watch:          tuiWatch,
			MaxDepth:       a.cfg.Scan.MaxDepth,
			Exclude:        a.cfg.Scan.Exclude,
			Log:            a.log,
		})
		if err != nil {
			return err
		}

		// keep unapplied edits for the next invocation
		return a.saveSession(ctx)
	},
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiWatch, "watch", false, "Reload when manifests change on disk")
}
