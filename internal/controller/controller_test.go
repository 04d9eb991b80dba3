package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/bundlever/internal/fsops"
	"github.com/danieljhkim/bundlever/internal/loggerx"
	"github.com/danieljhkim/bundlever/internal/manifest"
	"github.com/danieljhkim/bundlever/internal/scanner"
	"github.com/danieljhkim/bundlever/internal/version"
)

func TestController_BeforeFirstScan(t *testing.T) {
	c, _ := startController(t, newFakeScanner())
	ctx := context.Background()

	assert.Equal(t, Unloaded, c.State())
	assert.Empty(t, c.Workspace())

	_, err := c.Reload(ctx)
	assert.ErrorIs(t, err, ErrNoWorkspace)

	_, err = c.Increment(ctx, version.Major, []string{"A"})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = c.SetVersion(ctx, []string{"A"}, "1.0.0")
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = c.Apply(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, c.Revert(ctx), ErrNotLoaded)
	_, err = c.Plugins(ctx)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestController_SetWorkspaceValidation(t *testing.T) {
	c, _ := startController(t, newFakeScanner())
	ctx := context.Background()

	_, err := c.SetWorkspace(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, ErrInvalidWorkspace)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = c.SetWorkspace(ctx, file)
	assert.ErrorIs(t, err, ErrInvalidWorkspace)

	assert.Equal(t, Unloaded, c.State(), "state unchanged after a rejected path")
	assert.Empty(t, c.Workspace())
}

// TestController_CorruptManifestExcluded uses the real scanner: P manifests,
// one corrupt, yields P-1 plugins and exactly one ManifestCorrupt.
func TestController_CorruptManifestExcluded(t *testing.T) {
	root := workspaceDir(t, "ws")
	writeBundle(t, root, "com.acme.a", "1.0.0")
	writeBundle(t, root, "com.acme.b", "2.1.0")
	bad := writeBundle(t, root, "com.acme.c", "not.a.version")

	sc := scanner.New(fsops.NewRealFS(), scanner.Options{MaxDepth: 2, Concurrency: 2}, loggerx.NewDiscard())
	c, events := startController(t, sc)

	out := load(t, c, events, root)

	require.Len(t, out.Corrupt, 1)
	assert.Equal(t, bad, out.Corrupt[0].Ref)
	assert.True(t, errors.Is(out.Corrupt[0].Err, manifest.ErrParse))
	assert.Equal(t, []string{"com.acme.a", "com.acme.b"}, names(out.Changed.Plugins))
	assert.Equal(t, root, out.Changed.Workspace)
	assert.Equal(t, Loaded, c.State())
	assert.Equal(t, root, c.Workspace())
}

func TestController_StaleScanDiscarded(t *testing.T) {
	sc := newFakeScanner()
	slow := workspaceDir(t, "slow")
	fast := workspaceDir(t, "fast")
	sc.set(slow, "Old", "1.0.0")
	sc.set(fast, "New", "2.0.0")
	gate := sc.gate(slow)

	c, events := startController(t, sc)
	ctx := context.Background()

	gen1, err := c.SetWorkspace(ctx, slow)
	require.NoError(t, err)
	assert.Equal(t, Loading, c.State())

	gen2, err := c.SetWorkspace(ctx, fast)
	require.NoError(t, err)
	assert.Greater(t, gen2, gen1)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = AwaitScan(waitCtx, events, gen1)
	assert.ErrorIs(t, err, ErrSuperseded)

	// let the stale scan finish late
	close(gate)

	assert.Never(t, func() bool {
		views, err := c.Plugins(ctx)
		return err != nil || versions(views)["Old"] != ""
	}, 200*time.Millisecond, 10*time.Millisecond)

	for {
		select {
		case ev := <-events:
			if wc, ok := ev.(WorkspaceChanged); ok {
				assert.NotEqual(t, gen1, wc.Generation, "stale scan must not publish")
			}
			continue
		default:
		}
		break
	}
	assert.Equal(t, fast, c.Workspace())
}

func TestController_ScanFailure(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")

	c, events := startController(t, sc)
	load(t, c, events, root)

	boom := errors.New("walk failed")
	sc.fail(root, boom)
	gen, err := c.Reload(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = AwaitScan(ctx, events, gen)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, Loaded, c.State(), "previous registry survives a failed rescan")
	views, err := c.Plugins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, names(views))
}

func TestController_MutateApplyRevert(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	res := sc.set(root, "A", "1.0.0", "B", "2.1.0")

	c, events := startController(t, sc)
	load(t, c, events, root)
	ctx := context.Background()

	n, err := c.Increment(ctx, version.Minor, []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	updated := waitFor[PluginsUpdated](t, events)
	assert.True(t, updated.Pending)
	assert.Equal(t, "1.1.0", versions(updated.Plugins)["A"])

	pending, err := c.HasPendingChanges(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	result, err := c.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	done := waitFor[ApplyCompleted](t, events)
	assert.Equal(t, 1, done.Succeeded)
	assert.Empty(t, done.Failed)
	assert.Equal(t, []string{"A"}, done.Saved)
	assert.Equal(t, "1.1.0", res["A"].stored.String())

	// edits after the save are discarded by revert, the save is not
	_, err = c.SetVersion(ctx, []string{"A", "B"}, "3.0.0.RC1")
	require.NoError(t, err)
	require.NoError(t, c.Revert(ctx))

	views, err := c.Plugins(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1.1.0", "B": "2.1.0"}, versions(views))
	for _, v := range views {
		assert.False(t, v.Modified)
	}
}

func TestController_InvalidSetVersion(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")

	c, events := startController(t, sc)
	load(t, c, events, root)

	n, err := c.SetVersion(context.Background(), []string{"A"}, "1.2")
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, version.ErrInvalidFormat)

	pending, err := c.HasPendingChanges(context.Background())
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestController_PartialApply(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	res := sc.set(root, "A", "1.0.0", "B", "2.0.0")
	res["B"].setFail(manifest.ErrWrite)

	c, events := startController(t, sc)
	load(t, c, events, root)
	ctx := context.Background()

	_, err := c.Increment(ctx, version.Major, []string{"A", "B"})
	require.NoError(t, err)

	result, err := c.Apply(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, result.Failed)

	done := waitFor[ApplyCompleted](t, events)
	assert.Equal(t, 1, done.Succeeded)
	assert.Equal(t, []string{"B"}, done.Failed)

	// revert keeps A's save and drops B's unsaved edit
	require.NoError(t, c.Revert(ctx))
	views, err := c.Plugins(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "2.0.0", "B": "2.0.0"}, versions(views))
}

func TestController_ReloadDropsEdits(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")

	c, events := startController(t, sc)
	load(t, c, events, root)
	ctx := context.Background()

	_, err := c.Increment(ctx, version.Micro, []string{"A"})
	require.NoError(t, err)

	gen, err := c.Reload(ctx)
	require.NoError(t, err)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := AwaitScan(waitCtx, events, gen)
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", versions(out.Changed.Plugins)["A"])
	pending, err := c.HasPendingChanges(ctx)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestController_PlanDetectsDrift(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	res := sc.set(root, "A", "1.0.0", "B", "2.0.0")

	c, events := startController(t, sc)
	load(t, c, events, root)
	ctx := context.Background()

	_, err := c.Increment(ctx, version.Minor, []string{"A", "B"})
	require.NoError(t, err)
	res["B"].setStored("2.0.7")

	plan, err := c.Plan(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, root, plan.Workspace)
	assert.Equal(t, []string{"B"}, plan.ConflictingPlugins())
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, "A", plan.Operations[0].Plugin)

	forced, err := c.Plan(ctx, true)
	require.NoError(t, err)
	assert.Len(t, forced.Operations, 2)
}

func TestController_Restage(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")

	c, events := startController(t, sc)
	load(t, c, events, root)

	missing, err := c.Restage(context.Background(), map[string]version.Version{
		"A":    version.MustParse("1.0.1"),
		"gone": version.MustParse("1.0.0"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, missing)

	updated := waitFor[PluginsUpdated](t, events)
	assert.True(t, updated.Pending)
}

func TestController_SlowSubscriberDoesNotBlock(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")

	c, events := startController(t, sc)
	load(t, c, events, root)

	// never read
	_, cancel := c.Subscribe(1)
	defer cancel()

	for i := 0; i < 20; i++ {
		_, err := c.Increment(context.Background(), version.Micro, []string{"A"})
		require.NoError(t, err)
	}

	views, err := c.Plugins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.20", versions(views)["A"])
}

func TestController_EveryCorruptManifestDelivered(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")
	sc.corrupt(root, 2000)

	c, _ := startController(t, sc)
	events, cancel := c.Subscribe(4)
	defer cancel()

	out := load(t, c, events, root)
	assert.Len(t, out.Corrupt, 2000)
	assert.Equal(t, []string{"A"}, names(out.Changed.Plugins))
}

func TestController_LateReaderGetsFullScan(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")
	sc.corrupt(root, 300)

	c, _ := startController(t, sc)
	events, cancel := c.Subscribe(2)
	defer cancel()

	gen, err := c.SetWorkspace(context.Background(), root)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.State() == Loaded }, 5*time.Second, 10*time.Millisecond)

	corrupt := 0
	var changed WorkspaceChanged
	timeout := time.After(5 * time.Second)
read:
	for {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case ManifestCorrupt:
				if e.Generation == gen {
					corrupt++
				}
			case WorkspaceChanged:
				changed = e
				break read
			}
		case <-timeout:
			t.Fatalf("timed out after %d corrupt manifests", corrupt)
		}
	}

	assert.Equal(t, 300, corrupt)
	assert.Equal(t, gen, changed.Generation)
}

func TestController_UnreadPluginUpdatesCoalesce(t *testing.T) {
	sc := newFakeScanner()
	root := workspaceDir(t, "ws")
	sc.set(root, "A", "1.0.0")

	c, events := startController(t, sc)
	load(t, c, events, root)

	slow, cancel := c.Subscribe(1)
	defer cancel()

	for i := 0; i < 50; i++ {
		_, err := c.Increment(context.Background(), version.Micro, []string{"A"})
		require.NoError(t, err)
	}

	received := 0
	for {
		upd := waitFor[PluginsUpdated](t, slow)
		received++
		if versions(upd.Plugins)["A"] == "1.0.50" {
			break
		}
	}
	assert.Less(t, received, 50)
}

func TestController_Close(t *testing.T) {
	c, events := startController(t, newFakeScanner())

	c.Close()

	_, err := c.SetWorkspace(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrClosed)

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	late, _ := c.Subscribe(1)
	_, ok := <-late
	assert.False(t, ok, "subscribing after shutdown yields a closed channel")
}

func TestController_RunTwice(t *testing.T) {
	c, _ := startController(t, newFakeScanner())
	assert.Error(t, c.Run(context.Background()))
}

func TestAwaitScan_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AwaitScan(ctx, make(chan Event), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unloaded", Unloaded.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "unknown", State(9).String())
}
