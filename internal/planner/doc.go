// Package planner handles the planning phase of an apply.
//
// The planner turns the modified plugins of a registry into a deterministic
// list of manifest writes and checks each manifest for drift: a version on
// disk that no longer matches the version the scan saw. Drift means someone
// edited the manifest behind bundlever's back, and writing would silently
// overwrite that edit.
//
// Key responsibilities:
//   - Generate ApplyPlan with one write operation per modified plugin
//   - Detect conflicts (drifted, unreadable or missing manifests)
//   - Stay read-only: planning never writes a manifest
package planner
