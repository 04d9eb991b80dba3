package engine

import (
	"context"
	"sort"

	"github.com/danieljhkim/bundlever/internal/clock"
	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Algorithm steps:
// 1. Collect modified plugins in registry order
// 2. For each, stop if ctx is done; otherwise write its version through the
//    manifest resource
// 3. On success clear the modified flag and move the persisted baseline
// 4. On failure keep the plugin modified, record the error, continue
// 5. Return counts, saved and failed names
func (e *Engine) Apply(ctx context.Context, reg *plugin.Registry) *ApplyResult {
	start := e.clock.Now()
	result := &ApplyResult{
		Saved:  []string{},
		Failed: []string{},
		Errors: map[string]error{},
	}
	if reg == nil {
		return result
	}

	dirty := reg.Modified()
	for i, p := range dirty {
		if err := ctx.Err(); err != nil {
			for _, rest := range dirty[i:] {
				result.Skipped = append(result.Skipped, rest.Name())
			}
			e.log.WithError(err).Warnf("Apply interrupted, %d plugins not attempted", len(dirty)-i)
			break
		}

		result.Attempted++
		log := e.log.WithField("plugin", p.Name()).WithField("version", p.Version().String())

		if p.Resource() == nil {
			result.fail(p.Name(), errNoResource(p.Name()))
			log.Warn("Plugin has no manifest resource")
			continue
		}

		if err := p.Resource().WriteVersion(ctx, p.Version()); err != nil {
			result.fail(p.Name(), err)
			log.WithError(err).Warn("Failed to save manifest")
			continue
		}

		p.MarkPersisted()
		result.Succeeded++
		result.Saved = append(result.Saved, p.Name())
		log.Debug("Saved manifest")
	}

	result.Duration = clock.Since(e.clock, start)
	return result
}

// SavedVersions returns name -> version for every plugin saved by result,
// read from reg. Used to fold successful saves into the scan baseline.
func SavedVersions(reg *plugin.Registry, result *ApplyResult) map[string]version.Version {
	out := make(map[string]version.Version, len(result.Saved))
	for _, name := range result.Saved {
		if p, ok := reg.Get(name); ok {
			out[name] = p.Persisted()
		}
	}
	return out
}

func sortedCopy(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}
