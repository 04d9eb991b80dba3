// Package tui is the interactive terminal view of a workspace.
//
// The view holds no workflow state of its own: it renders the plugin views
// carried by controller events and turns key presses into controller calls,
// each run as a tea.Cmd so disk I/O never blocks rendering.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/danieljhkim/bundlever/internal/controller"
	"github.com/danieljhkim/bundlever/internal/plugin"
)

// Options configures Run.
type Options struct {
	Controller     Controller
	Events         <-chan controller.Event
	Workspace      string
	Plugins        []plugin.View
	DefaultVersion string

	// Watch enables reloading when manifests change on disk.
	Watch    bool
	MaxDepth int
	Exclude  []string
	Debounce time.Duration

	Log logrus.FieldLogger
}

// Run starts the interactive view and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(ctx, opts.Controller, opts.Events, opts.Workspace, opts.Plugins, opts.DefaultVersion)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if opts.Watch {
		debounce := opts.Debounce
		if debounce <= 0 {
			debounce = DefaultDebounce
		}
		w, err := NewWatcher(opts.Workspace, opts.MaxDepth, opts.Exclude, debounce, func() {
			program.Send(manifestsChangedMsg{})
		}, opts.Log)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		go w.Run(ctx)
		opts.Log.WithField("workspace", opts.Workspace).Info("Watching manifests")
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}
