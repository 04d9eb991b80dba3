package planner

import (
	"context"

	"github.com/danieljhkim/bundlever/internal/plugin"
)

// BuildApplyPlan generates a deterministic plan covering every modified
// plugin in registry order. Conflicting plugins get a Conflict instead of an
// Operation.
func BuildApplyPlan(ctx context.Context, workspace string, reg *plugin.Registry, force bool) (*ApplyPlan, error) {
	plan := NewApplyPlan(workspace)
	if reg == nil {
		return plan, nil
	}
	checker := NewConflictChecker(force)

	for _, p := range reg.Modified() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if conflict := checker.CheckPlugin(ctx, p); conflict != nil {
			plan.AddConflict(*conflict)
			continue
		}

		plan.AddOperation(Operation{
			Plugin:   p.Name(),
			Manifest: p.Resource().Ref(),
			From:     p.Persisted(),
			To:       p.Version(),
		})
	}

	return plan, nil
}
