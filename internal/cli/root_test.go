package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand_Help(t *testing.T) {
	out, _, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if out == "" {
		t.Error("expected help output, got empty string")
	}
	if !strings.Contains(out, "bundlever") {
		t.Error("expected help to contain 'bundlever'")
	}
	for _, group := range []string{"Inspect:", "Stage Edits:", "Apply & Revert:"} {
		if !strings.Contains(out, group) {
			t.Errorf("expected help to contain group %q", group)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	SetVersion("1.2.3")
	out, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out) != "1.2.3" {
		t.Errorf("version output = %q, want 1.2.3", out)
	}
}

func TestRootCommand_InvalidCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"invalid-command"})
	var buf bytes.Buffer
	rootCmd.SetErr(&buf)

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error for invalid command")
	}
}

func TestSetVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{"normal version", "1.2.3", "1.2.3"},
		{"empty version", "", "1.2.3"}, // Should not change if empty
		{"dev version", "dev", "dev"},
	}

	SetVersion("1.2.3")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetVersion(tt.version)
			if rootCmd.Version != tt.want {
				t.Errorf("SetVersion(%q) = %q, want %q", tt.version, rootCmd.Version, tt.want)
			}
		})
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	subcommands := []string{
		"list", "status", "tui", "bump", "set", "apply", "revert", "reload", "workspace",
	}

	for _, cmd := range subcommands {
		t.Run(cmd, func(t *testing.T) {
			subCmd, _, err := rootCmd.Find([]string{cmd})
			if err != nil {
				t.Errorf("Find(%q) error = %v", cmd, err)
			}
			if subCmd == nil || subCmd.Name() != cmd {
				t.Errorf("Find(%q) returned %v", cmd, subCmd)
			}
		})
	}
}

func TestFormatError(t *testing.T) {
	got := formatError(errTest("boom"))
	if !strings.Contains(got, "Error: boom") {
		t.Errorf("formatError() = %q", got)
	}
}

func TestPrintCount(t *testing.T) {
	if got := PrintCount(1, "plugin", "plugins"); got != "1 plugin" {
		t.Errorf("PrintCount(1) = %q", got)
	}
	if got := PrintCount(3, "plugin", "plugins"); got != "3 plugins" {
		t.Errorf("PrintCount(3) = %q", got)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
