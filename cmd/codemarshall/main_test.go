package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

var binPath string

// TestMain builds the codemarshall binary once before running tests.
func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "codemarshall-test-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	binPath = filepath.Join(tmpDir, "codemarshall")

	cmd := exec.Command("go", "build", "-o", binPath, ".")
	if output, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "build codemarshall: %v\n%s", err, output)
		os.RemoveAll(tmpDir)
		os.Exit(1)
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

type runResult struct {
	stdout   string
	stderr   string
	exitCode int
}

// runBinary runs the binary against isolated config and data directories.
func runBinary(t *testing.T, dir, stdin string, args ...string) runResult {
	t.Helper()
	full := append([]string{
		"--config-dir", filepath.Join(dir, "config"),
		"--data-dir", filepath.Join(dir, "data"),
	}, args...)
	cmd := exec.Command(binPath, full...)
	cmd.Dir = dir
	cmd.Env = []string{"HOME=" + dir}
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("run codemarshall %v: %v", args, err)
	}
	return runResult{stdout: stdout.String(), stderr: stderr.String(), exitCode: code}
}

func TestExitCodes(t *testing.T) {
	dir := t.TempDir()

	if r := runBinary(t, dir, "", "user", "alice"); r.exitCode != 0 {
		t.Fatalf("user alice: exit %d, stderr %q", r.exitCode, r.stderr)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "success", args: []string{"list", "users"}, want: 0},
		{name: "duplicate user", args: []string{"user", "alice"}, want: 1},
		{name: "not found", args: []string{"view", "42"}, want: 1},
		{name: "usage", args: []string{"update", "1", "owner", "bob"}, want: 1},
		{name: "unknown flag", args: []string{"--frobnicate"}, want: 1},
		{name: "bad database url", args: []string{"--database-url", "mysql://db", "list", "users"}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runBinary(t, dir, "", tt.args...)
			if r.exitCode != tt.want {
				t.Errorf("exit code = %d, want %d (stderr %q)", r.exitCode, tt.want, r.stderr)
			}
			if tt.want != 0 && !strings.HasPrefix(r.stderr, "Error: ") {
				t.Errorf("stderr = %q, want an Error: line", r.stderr)
			}
		})
	}
}

func TestInteractiveSession(t *testing.T) {
	dir := t.TempDir()
	input := strings.Join([]string{
		"user alice",
		`add "Quick sort" Python "def qs(xs): return sorted(xs)"`,
		"view 1",
		"view 99",
		"exit",
	}, "\n")

	r := runBinary(t, dir, input)
	if r.exitCode != 0 {
		t.Fatalf("exit %d, stderr %q", r.exitCode, r.stderr)
	}
	for _, want := range []string{
		"Welcome to Code Marshall!",
		"Title: Quick sort",
		"def qs(xs): return sorted(xs)",
		"Error: Snippet with ID 99 not found.",
		"Goodbye!",
	} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, r.stdout)
		}
	}
}
