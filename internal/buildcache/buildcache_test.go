package buildcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestChanged_FirstCallAlwaysTrue(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644)

	c := New()
	changed, err := c.Changed(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("first observation of a tree should report changed")
	}
}

func TestChanged_NoOpOnRepeat(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644)

	c := New()
	c.Changed(dir)
	changed, err := c.Changed(dir)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("unchanged tree should report false on the second call")
	}
}

func TestChanged_DetectsModification(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("a"), 0644)

	c := New()
	c.Changed(dir)

	// Ensure a distinguishable mtime on filesystems with coarse resolution.
	future := time.Now().Add(2 * time.Second)
	os.Chtimes(path, future, future)

	changed, err := c.Changed(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("expected modification to be detected")
	}
}

func TestForget(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644)

	c := New()
	c.Changed(dir)
	c.Forget(dir)

	changed, err := c.Changed(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Error("expected forgotten root to report changed again")
	}
}
