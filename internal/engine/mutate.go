package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/version"
)

// Increment bumps part for every selected plugin present in reg and returns
// how many plugins changed. Names not in reg are skipped. Each plugin is
// bumped once even if named more than once.
func (e *Engine) Increment(reg *plugin.Registry, part version.Part, selection []string) int {
	count := 0
	for _, p := range resolve(reg, selection) {
		next := p.Version().Increment(part)
		e.log.WithFields(logrus.Fields{
			"plugin": p.Name(),
			"from":   p.Version().String(),
			"to":     next.String(),
		}).Debug("Incremented version")
		p.SetVersion(next)
		count++
	}
	return count
}

// SetVersion parses text and assigns the result to every selected plugin.
// A parse failure wraps version.ErrInvalidFormat and leaves reg untouched.
func (e *Engine) SetVersion(reg *plugin.Registry, selection []string, text string) (int, error) {
	v, err := version.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("failed to set version: %w", err)
	}

	count := 0
	for _, p := range resolve(reg, selection) {
		p.SetVersion(v)
		count++
	}
	e.log.WithField("version", v.String()).Debugf("Set version on %d plugins", count)
	return count, nil
}

// Restage re-applies pending versions (for example from a saved session) to
// reg and returns the names that are no longer in the registry. A pending
// version equal to the persisted one is not an edit and is ignored.
func (e *Engine) Restage(reg *plugin.Registry, pending map[string]version.Version) []string {
	var missing []string
	for name, v := range pending {
		p, ok := reg.Get(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		if v.Equal(p.Persisted()) {
			continue
		}
		p.SetVersion(v)
	}
	return sortedCopy(missing)
}

// HasPendingChanges reports whether any plugin in reg is modified.
func HasPendingChanges(reg *plugin.Registry) bool {
	return reg != nil && reg.HasPendingChanges()
}

// resolve maps selection to plugins in registry order, dropping unknown and
// repeated names.
func resolve(reg *plugin.Registry, selection []string) []*plugin.Plugin {
	if reg == nil || len(selection) == 0 {
		return nil
	}
	wanted := make(map[string]struct{}, len(selection))
	for _, name := range selection {
		wanted[name] = struct{}{}
	}

	var out []*plugin.Plugin
	reg.Each(func(p *plugin.Plugin) {
		if _, ok := wanted[p.Name()]; ok {
			out = append(out, p)
		}
	})
	return out
}
