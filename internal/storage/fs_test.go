package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempSource(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempSource(t, map[string]string{"note.md": "# Hello\nWorld\n", "a/b/c.md": "deep"})
	got, err := s.Read("note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Hello\nWorld\n" {
		t.Errorf("content mismatch: got %q", got)
	}
	got, err = s.Read("a/b/c.md")
	if err != nil || string(got) != "deep" {
		t.Errorf("nested read = %q, %v", got, err)
	}
}

func TestReadMissing(t *testing.T) {
	s := tempSource(t, nil)
	if _, err := s.Read("nope.md"); err == nil {
		t.Error("expected error reading missing file")
	}
}

func TestReadTooLarge(t *testing.T) {
	s := tempSource(t, map[string]string{"big.md": strings.Repeat("x", MaxFileSize+1)})
	if _, err := s.Read("big.md"); err == nil {
		t.Error("expected error for oversized file")
	}
}

func TestList(t *testing.T) {
	s := tempSource(t, map[string]string{
		"b.md":           "b",
		"sub/a.md":       "a",
		"readme.txt":     "not md",
		"UPPER.MD":       "upper",
		".git/config.md": "hidden dir",
		".draft.md":      "hidden file",
	})

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	want := []string{"UPPER.MD", "b.md", "sub/a.md"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Errorf("paths = %v, want %v", paths, want)
	}
	if items[1].Size != 1 {
		t.Errorf("size of b.md = %d, want 1", items[1].Size)
	}
}

func TestListSubdir(t *testing.T) {
	s := tempSource(t, map[string]string{"top.md": "t", "sub/a.md": "a"})
	items, err := s.List("sub")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "sub/a.md" {
		t.Errorf("items = %+v", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempSource(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if _, err := s.List(p); err == nil {
			t.Errorf("expected error for list of %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/notely-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "notely-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
