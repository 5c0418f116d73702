package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/BakeLens/securefs/internal/fileutil"
	"github.com/BakeLens/securefs/internal/platform"
)

// run executes the CLI with an isolated config and store directory.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	if _, err := fileutil.DefaultStrategy(); errors.Is(err, platform.ErrUnsupportedPlatform) {
		t.Skipf("no permission strategy on %s", runtime.GOOS)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--no-color"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestMkdirCommand(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	if _, err := run(t, "", "mkdir", a, b); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range []string{a, b} {
		if err := fileutil.CheckOwnerOnly(p); err != nil {
			t.Errorf("%s: %v", p, err)
		}
	}
}

func TestMkdirCommand_Parents(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "x", "y", "z")

	if _, err := run(t, "", "mkdir", nested); err == nil {
		t.Fatal("mkdir without -p should fail for a missing parent")
	}
	if _, err := run(t, "", "mkdir", "-p", nested); err != nil {
		t.Fatalf("mkdir -p: %v", err)
	}
	if err := fileutil.CheckOwnerOnly(nested); err != nil {
		t.Fatal(err)
	}
}

func TestMkdirCommand_FileConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "", "mkdir", path)
	if !errors.Is(err, fileutil.ErrNotDirectory) {
		t.Fatalf("mkdir on a file = %v, want ErrNotDirectory", err)
	}
}

func TestNewCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")

	if _, err := run(t, "Hello World", "new", path); err != nil {
		t.Fatalf("new: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Hello World" {
		t.Fatalf("got %q, want %q", data, "Hello World")
	}

	if _, err := run(t, "again", "new", path); err == nil {
		t.Fatal("second new on the same path should fail")
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	secure := filepath.Join(dir, "secure")
	if err := fileutil.CreateSecureDirectory(secure); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "check", secure)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.HasPrefix(out, "ok") {
		t.Errorf("unexpected output: %q", out)
	}

	out, err = run(t, "", "check", secure, filepath.Join(dir, "missing"))
	if err == nil {
		t.Fatal("check should fail when a path fails")
	}
	if !strings.Contains(out, "FAIL") {
		t.Errorf("output should report the failure: %q", out)
	}
}

func TestSecretCommands(t *testing.T) {
	t.Setenv("SECUREFS_STORE_DIR", filepath.Join(t.TempDir(), "vault", "secrets"))

	if _, err := run(t, "s3cr3t", "secret", "create", "token"); err != nil {
		t.Fatalf("secret create: %v", err)
	}
	if _, err := run(t, "other", "secret", "create", "token"); err == nil {
		t.Fatal("secret create on an existing name should fail")
	}
	if _, err := run(t, "rotated", "secret", "put", "token"); err != nil {
		t.Fatalf("secret put: %v", err)
	}

	out, err := run(t, "", "secret", "get", "token")
	if err != nil {
		t.Fatalf("secret get: %v", err)
	}
	if out != "rotated" {
		t.Fatalf("secret get = %q, want %q", out, "rotated")
	}

	out, err = run(t, "", "secret", "list")
	if err != nil {
		t.Fatalf("secret list: %v", err)
	}
	if out != "token\n" {
		t.Fatalf("secret list = %q", out)
	}

	if _, err := run(t, "", "secret", "put", "scratch"); err != nil {
		t.Fatalf("secret put: %v", err)
	}
	out, err = run(t, "", "secret", "prune")
	if err != nil {
		t.Fatalf("secret prune: %v", err)
	}
	if !strings.Contains(out, "removed 0") {
		t.Errorf("secret prune = %q", out)
	}
	if _, err := run(t, "", "secret", "rm", "scratch"); err != nil {
		t.Fatalf("secret rm: %v", err)
	}

	if _, err := run(t, "", "secret", "rm", "token"); err != nil {
		t.Fatalf("secret rm: %v", err)
	}
	if _, err := run(t, "", "secret", "get", "token"); err == nil {
		t.Fatal("secret get after rm should fail")
	}
}

func TestEmptyLogLevelMeansInfo(t *testing.T) {
	t.Setenv("SECUREFS_LOG_LEVEL", "")
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("log:\n  level: \"\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "", "--config", cfgPath, "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "log level: info") {
		t.Errorf("info output = %q, want the default level", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if _, err := run(t, "", "--log-level", "loud", "version"); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}

func TestInfoAndVersion(t *testing.T) {
	out, err := run(t, "", "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "strategy:") {
		t.Errorf("info output missing strategy: %q", out)
	}

	out, err = run(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output = %q", out)
	}
}
