package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/danieljhkim/bundlever/internal/clock"
	"github.com/danieljhkim/bundlever/internal/config"
	"github.com/danieljhkim/bundlever/internal/controller"
	"github.com/danieljhkim/bundlever/internal/engine"
	"github.com/danieljhkim/bundlever/internal/fsops"
	"github.com/danieljhkim/bundlever/internal/gitx"
	"github.com/danieljhkim/bundlever/internal/hash"
	"github.com/danieljhkim/bundlever/internal/loggerx"
	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/scanner"
	"github.com/danieljhkim/bundlever/internal/state"
)

// app wires real implementations of every dependency for one command.
type app struct {
	paths    *config.Paths
	cfg      *config.Config
	log      logrus.FieldLogger
	fs       fsops.FS
	hasher   hash.Hasher
	clock    clock.Clock
	git      gitx.GitRepo
	sessions state.SessionStore

	ctrl   *controller.Controller
	events <-chan controller.Event
	stop   func()

	workspace string
	source    string
	session   *state.Session
}

// workspace sources, reported by `workspace show`
const (
	sourceFlag       = "flag"
	sourcePreference = "workspace use"
	sourceConfig     = "config"
	sourceGit        = "git root"
	sourceCwd        = "current directory"
)

// newConfiguredApp loads paths, config and logger without starting a controller.
func newConfiguredApp() (*app, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	fs := fsops.NewRealFS()
	if err := paths.EnsureDirectories(fs); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	return &app{
		paths:    paths,
		cfg:      cfg,
		log:      loggerx.NewWithOutput(cfg.Log, stderr),
		fs:       fs,
		hasher:   hash.NewSHA256Hasher(fs),
		clock:    &clock.RealClock{},
		git:      gitx.NewRealGitRepo(),
		sessions: state.NewFileSessionStore(fs, paths.Sessions),
	}, nil
}

// newApp creates a fully wired app with a running controller. Callers must
// call close.
func newApp(ctx context.Context) (*app, error) {
	a, err := newConfiguredApp()
	if err != nil {
		return nil, err
	}
	a.start(ctx)
	return a, nil
}

// start launches the controller owner loop and subscribes to its events.
func (a *app) start(ctx context.Context) {
	sc := scanner.New(a.fs, scanner.OptionsFromConfig(a.cfg.Scan), a.log)
	eng := engine.New(a.clock, a.log)
	a.ctrl = controller.New(sc, eng, a.fs, a.log)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.ctrl.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.WithError(err).Error("Controller stopped")
		}
	}()

	events, unsubscribe := a.ctrl.Subscribe(256)
	a.events = events
	a.stop = func() {
		unsubscribe()
		cancel()
		<-done
	}
}

func (a *app) close() {
	if a.stop != nil {
		a.stop()
	}
}

// resolveWorkspace applies the precedence: --workspace flag, the workspace
// chosen with `workspace use`, config, git root of the current directory,
// then the current directory itself.
func (a *app) resolveWorkspace() (string, string, error) {
	if workspaceFlag != "" {
		abs, err := filepath.Abs(workspaceFlag)
		return abs, sourceFlag, err
	}

	prefs, err := a.sessions.LoadPreferences()
	if err != nil {
		return "", "", err
	}
	if prefs.LastWorkspace != "" {
		return prefs.LastWorkspace, sourcePreference, nil
	}

	if a.cfg.Workspace != "" {
		abs, err := filepath.Abs(os.ExpandEnv(a.cfg.Workspace))
		return abs, sourceConfig, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("failed to get current directory: %w", err)
	}
	if root, err := a.git.Discover(cwd); err == nil {
		return root, sourceGit, nil
	}
	return cwd, sourceCwd, nil
}

// load scans the workspace, reports corrupt manifests and restages edits
// saved by earlier invocations.
func (a *app) load(ctx context.Context) (*controller.ScanOutcome, error) {
	ws, source, err := a.resolveWorkspace()
	if err != nil {
		return nil, err
	}
	a.workspace, a.source = ws, source

	gen, err := a.ctrl.SetWorkspace(ctx, ws)
	if err != nil {
		return nil, err
	}

	outcome, err := controller.AwaitScan(ctx, a.events, gen)
	if err != nil {
		return nil, err
	}

	for _, bad := range outcome.Corrupt {
		PrintWarning(fmt.Sprintf("Skipping corrupt manifest %s: %v", a.relPath(bad.Ref), bad.Err))
	}

	if err := a.restage(ctx); err != nil {
		return nil, err
	}
	return outcome, nil
}

func (a *app) restage(ctx context.Context) error {
	id := state.ComputeSessionID(a.workspace)
	session, err := a.sessions.LoadSession(id)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		session = state.NewSession(a.workspace)
	}
	a.session = session

	if session.IsEmpty() {
		return nil
	}

	pending, stale := session.Resolve(a.hasher)
	for _, name := range stale {
		PrintWarning(fmt.Sprintf("Dropping staged edit for %s: manifest changed since it was staged", name))
	}
	session.Drop(stale...)

	missing, err := a.ctrl.Restage(ctx, pending)
	if err != nil {
		return err
	}
	for _, name := range missing {
		PrintWarning(fmt.Sprintf("Dropping staged edit for %s: plugin no longer in workspace", name))
	}
	session.Drop(missing...)

	a.log.WithField("workspace", a.workspace).Debugf("Restaged %d edits", len(pending)-len(missing))
	return nil
}

// saveSession records the current pending edits, or removes the session
// file when nothing is pending.
func (a *app) saveSession(ctx context.Context) error {
	views, err := a.ctrl.Plugins(ctx)
	if err != nil {
		return err
	}

	if a.session == nil {
		a.session = state.NewSession(a.workspace)
	}
	if err := a.session.Stage(views, a.hasher, a.clock.Now()); err != nil {
		return fmt.Errorf("failed to stage edits: %w", err)
	}

	id := state.ComputeSessionID(a.workspace)
	if a.session.IsEmpty() {
		return a.sessions.DeleteSession(id)
	}
	return a.sessions.SaveSession(id, a.session)
}

// selection returns the plugin names a mutation applies to.
func (a *app) selection(ctx context.Context, args []string, all bool) ([]string, error) {
	if all {
		if len(args) > 0 {
			return nil, fmt.Errorf("--all cannot be combined with plugin names")
		}
		views, err := a.ctrl.Plugins(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(views))
		for _, v := range views {
			names = append(names, v.Name)
		}
		return names, nil
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("no plugins selected: name plugins or pass --all")
	}

	views, err := a.ctrl.Plugins(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(views))
	for _, v := range views {
		known[v.Name] = true
	}
	for _, name := range args {
		if !known[name] {
			PrintWarning(fmt.Sprintf("Unknown plugin %s, skipping", name))
		}
	}
	return args, nil
}

// relPath renders a manifest path relative to the workspace when possible.
func (a *app) relPath(path string) string {
	if rel, err := a.git.RelPath(a.workspace, path); err == nil {
		return rel
	}
	return path
}

// pluginJSON is the --json shape of a plugin.
type pluginJSON struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Persisted string `json:"persisted"`
	Modified  bool   `json:"modified"`
	Manifest  string `json:"manifest"`
}

func toPluginJSON(views []plugin.View) []pluginJSON {
	out := make([]pluginJSON, 0, len(views))
	for _, v := range views {
		out = append(out, pluginJSON{
			Name:      v.Name,
			Version:   v.Version.String(),
			Persisted: v.Persisted.String(),
			Modified:  v.Modified,
			Manifest:  v.Manifest,
		})
	}
	return out
}

// formatError formats an error for display.
func formatError(err error) string {
	return errorColor.Sprintf("Error: %v", err)
}

// outputJSON outputs a value as JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
