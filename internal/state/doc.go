// Package state manages session persistence between bundlever invocations.
//
// Edits made by one command (bump, set) must survive until a later command
// applies or reverts them. The state package stores those staged edits per
// workspace as JSON files in the ~/.bundlever/sessions directory.
//
// Key concepts:
//   - Session: staged edits for one workspace
//   - PendingEdit: one staged version plus the manifest checksum it was staged against
//   - Preferences: cross-workspace choices such as the last used workspace
//   - SessionStore: Interface for persisting and loading sessions
package state
