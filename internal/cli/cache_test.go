package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClearDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ab/cdef.json", "ab/0123.json", "ff/9999.json"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	n, err := clearDir(dir)
	if err != nil {
		t.Fatalf("clearDir: %v", err)
	}
	if n != 3 {
		t.Errorf("cleared %d entries, want 3", n)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d entries left after clear", len(entries))
	}
}

func TestClearDirMissing(t *testing.T) {
	n, err := clearDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil || n != 0 {
		t.Errorf("clearDir(missing) = %d, %v; want 0, nil", n, err)
	}
}

func TestCacheCommands(t *testing.T) {
	dir := t.TempDir()
	c := testCLI()
	c.config().Server.CacheDir = dir

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := c.cacheCommand()
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		if err := cmd.Execute(); err != nil {
			t.Fatalf("cache %v: %v", args, err)
		}
		return out.String()
	}

	if got := strings.TrimSpace(run("path")); got != dir {
		t.Errorf("cache path = %q, want %q", got, dir)
	}
	if got := run("clear"); !strings.Contains(got, "Cache is empty") {
		t.Errorf("cache clear on empty dir = %q", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "entry.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := run("clear"); !strings.Contains(got, "Cleared 1 cached entries") {
		t.Errorf("cache clear = %q", got)
	}
}
