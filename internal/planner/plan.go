package planner

import "github.com/danieljhkim/bundlever/internal/version"

// ApplyPlan represents the manifest writes an apply would perform.
type ApplyPlan struct {
	// Workspace is the workspace root the plan was built for
	Workspace string

	// Operations is the ordered list of writes to execute
	Operations []Operation

	// Conflicts is a list of detected conflicts (empty if no conflicts)
	Conflicts []Conflict
}

// Operation represents a single manifest write.
type Operation struct {
	// Plugin is the bundle name
	Plugin string

	// Manifest is the manifest reference (path)
	Manifest string

	// From is the version last read from the manifest
	From version.Version

	// To is the version that will be written
	To version.Version
}

// Conflict represents a conflict detected during planning.
type Conflict struct {
	// Plugin is the bundle name
	Plugin string

	// Manifest is the manifest reference (path)
	Manifest string

	// Reason is a human-readable explanation of the conflict
	Reason string

	// Expected is the version the scan recorded
	Expected string

	// OnDisk is what the manifest holds now ("unreadable" when it cannot be read)
	OnDisk string
}

// NewApplyPlan creates a new empty ApplyPlan.
func NewApplyPlan(workspace string) *ApplyPlan {
	return &ApplyPlan{
		Workspace:  workspace,
		Operations: []Operation{},
		Conflicts:  []Conflict{},
	}
}

// HasConflicts returns true if the plan has any conflicts.
func (p *ApplyPlan) HasConflicts() bool {
	return len(p.Conflicts) > 0
}

// IsEmpty returns true if the plan writes nothing.
func (p *ApplyPlan) IsEmpty() bool {
	return len(p.Operations) == 0
}

// AddOperation adds an operation to the plan.
func (p *ApplyPlan) AddOperation(op Operation) {
	p.Operations = append(p.Operations, op)
}

// AddConflict adds a conflict to the plan.
func (p *ApplyPlan) AddConflict(conflict Conflict) {
	p.Conflicts = append(p.Conflicts, conflict)
}

// ConflictingPlugins returns the names of plugins with conflicts.
func (p *ApplyPlan) ConflictingPlugins() []string {
	out := make([]string, 0, len(p.Conflicts))
	for _, c := range p.Conflicts {
		out = append(out, c.Plugin)
	}
	return out
}
