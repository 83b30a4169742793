package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	if cmd == nil {
		t.Fatal("Root command should not be nil")
	}

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--help returned error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "reqtrace") {
		t.Errorf("Help text should contain 'reqtrace', got: %s", output)
	}
	if !strings.Contains(output, "requirement") {
		t.Errorf("Help text should mention requirements, got: %s", output)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "reqtrace" {
		t.Errorf("Expected Use to be 'reqtrace', got '%s'", cmd.Use)
	}

	want := map[string]bool{"collect": false, "check": false, "index": false, "query": false, "watch": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--version returned error: %v", err)
	}
	if !strings.Contains(buf.String(), Version) {
		t.Errorf("version output %q should contain %q", buf.String(), Version)
	}
}
