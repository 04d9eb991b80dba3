package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/bundlever/internal/plugin"
	"github.com/danieljhkim/bundlever/internal/version"
)

func TestConflictChecker_CheckPlugin(t *testing.T) {
	tests := []struct {
		name      string
		onDisk    string
		force     bool
		wantClash bool
	}{
		{"unchanged manifest", "1.0.0", false, false},
		{"already at target", "1.2.0", false, false},
		{"drifted", "1.0.9", false, true},
		{"drifted with force", "1.0.9", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, res := newRegistry("A", "1.0.0")
			bump(t, reg, "A", "1.2.0")
			res["A"].onDisk = version.MustParse(tt.onDisk)
			p, _ := reg.Get("A")

			conflict := NewConflictChecker(tt.force).CheckPlugin(context.Background(), p)
			if tt.wantClash {
				require.NotNil(t, conflict)
				assert.Equal(t, "A", conflict.Plugin)
				assert.Equal(t, tt.onDisk, conflict.OnDisk)
			} else {
				assert.Nil(t, conflict)
			}
		})
	}
}

func TestConflictChecker_NoResource(t *testing.T) {
	reg := plugin.NewSnapshot("/ws", []plugin.Entry{{Name: "orphan", Version: version.MustParse("1.0.0")}}).Registry()
	p, _ := reg.Get("orphan")

	conflict := NewConflictChecker(true).CheckPlugin(context.Background(), p)
	require.NotNil(t, conflict)
	assert.Equal(t, "missing", conflict.OnDisk)
}

func TestApplyPlan_Helpers(t *testing.T) {
	plan := NewApplyPlan("/ws")
	assert.True(t, plan.IsEmpty())
	assert.False(t, plan.HasConflicts())

	plan.AddOperation(Operation{Plugin: "A"})
	plan.AddConflict(Conflict{Plugin: "B"})

	assert.False(t, plan.IsEmpty())
	assert.True(t, plan.HasConflicts())
	assert.Equal(t, []string{"B"}, plan.ConflictingPlugins())
}
