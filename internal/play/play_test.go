package play

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExecute_EmptyCommand(t *testing.T) {
	if err := Execute("", "/tmp/file.mp3"); err == nil {
		t.Fatal("Expected empty command to fail")
	}
	if err := Execute("   ", "/tmp/file.mp3"); err == nil {
		t.Fatal("Expected blank command to fail")
	}
}

func TestExecute_MissingBinary(t *testing.T) {
	if err := Execute("no-such-player-binary %s", "/tmp/file.mp3"); err == nil {
		t.Fatal("Expected unknown binary to fail")
	}
}

// The started process writes its argument to a file, proving both that
// %s substitution happened and that the process ran detached.
func TestExecute_SubstitutesTarget(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "out.txt")
	script := filepath.Join(dir, "player.sh")
	content := "#!/bin/sh\necho \"$1\" > " + outFile + "\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	if err := Execute(script+" %s", "http://example.org/ep.mp3"); err != nil {
		t.Fatalf("Failed to start player: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := os.ReadFile(outFile)
		if err == nil {
			if got := string(data); got != "http://example.org/ep.mp3\n" {
				t.Errorf("Expected substituted target, got %q", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for player output")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Without a placeholder the target is appended as the last argument.
func TestExecute_AppendsTarget(t *testing.T) {
	dir := t.TempDir()
	outFile := filepath.Join(dir, "out.txt")
	script := filepath.Join(dir, "player.sh")
	content := "#!/bin/sh\necho \"$2\" > " + outFile + "\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}

	if err := Execute(script+" --loop", "/music/ep.mp3"); err != nil {
		t.Fatalf("Failed to start player: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		data, err := os.ReadFile(outFile)
		if err == nil {
			if got := string(data); got != "/music/ep.mp3\n" {
				t.Errorf("Expected appended target, got %q", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for player output")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
