package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/krukkeniels/badgesim/internal/config"
)

// newTestCmd builds a fresh root command with its own flag set each
// call, so per-test flag values never leak into the next test (the
// package-level flag variables are reset to their flag defaults by
// registerFlags on every call).
func newTestCmd(args ...string) (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{Use: "badgesim", RunE: runGenerate, SilenceUsage: true, SilenceErrors: true}
	registerFlags(cmd)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	return cmd, &out
}

func TestPrintConfigWritesResolvedConfigAndSkipsGeneration(t *testing.T) {
	cmd, out := newTestCmd("--print-config", "--user-count", "5", "--location-count", "1")
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	var cfg config.Config
	if err := json.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("unmarshaling printed config: %v\noutput: %s", err, out.String())
	}
	if cfg.UserCount != 5 {
		t.Errorf("user_count = %d, want 5", cfg.UserCount)
	}
	if cfg.LocationCount != 1 {
		t.Errorf("location_count = %d, want 1", cfg.LocationCount)
	}
}

func TestDryRunSkipsSinkFilesButPrintsSummary(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")
	cmd, out := newTestCmd("--dry-run",
		"--user-count", "5", "--location-count", "1",
		"--events-output", eventsPath)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if out.Len() == 0 {
		t.Fatal("expected a non-empty statistics summary on stdout")
	}
	if _, err := os.Stat(eventsPath); err == nil {
		t.Fatal("--dry-run must not write the events file")
	}
}

func TestGenerateWritesEventFile(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")
	cmd, _ := newTestCmd("--user-count", "5", "--location-count", "1",
		"--events-output", eventsPath)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	info, err := os.Stat(eventsPath)
	if err != nil {
		t.Fatalf("events file was not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("events file is empty")
	}
}

func TestGenerateWithUserProfilesOutputWritesProfileFile(t *testing.T) {
	dir := t.TempDir()
	eventsPath := filepath.Join(dir, "events.jsonl")
	profilesPath := filepath.Join(dir, "profiles.jsonl")
	cmd, _ := newTestCmd("--user-count", "5", "--location-count", "1",
		"--events-output", eventsPath, "--user-profiles-output", profilesPath)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	info, err := os.Stat(profilesPath)
	if err != nil {
		t.Fatalf("profiles file was not written: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("profiles file is empty")
	}
}
