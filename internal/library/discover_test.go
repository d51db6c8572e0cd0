package library_test

import (
	"os"
	"path/filepath"
	"testing"

	"gainscan/internal/library"
)

func writeTree(t *testing.T, paths ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range paths {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func names(t *testing.T, root string, files []string) []string {
	t.Helper()
	out := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = rel
	}
	return out
}

func TestDiscoverFlatDirectory(t *testing.T) {
	root := writeTree(t, "b.flac", "a.mp3", "notes.txt", "sub/c.opus")

	files, err := library.Discover([]string{root}, library.Options{
		Extensions: []string{".mp3", ".flac", ".opus"},
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	got := names(t, root, files)
	want := []string{"a.mp3", "b.flac"}
	if len(got) != len(want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("files = %v, want %v", got, want)
		}
	}
}

func TestDiscoverRecursive(t *testing.T) {
	root := writeTree(t, "a.mp3", "sub/c.opus", "sub/deep/d.flac")

	files, err := library.Discover([]string{root}, library.Options{
		Recursive:  true,
		Extensions: []string{".mp3", ".flac", ".opus"},
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("found %d files, want 3: %v", len(files), files)
	}
}

func TestDiscoverExplicitFileSkipsFilter(t *testing.T) {
	root := writeTree(t, "notes.txt")

	files, err := library.Discover(
		[]string{filepath.Join(root, "notes.txt")},
		library.Options{Extensions: []string{".mp3"}},
	)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("a directly named file must always be accepted: %v", files)
	}
}

func TestDiscoverDeduplicates(t *testing.T) {
	root := writeTree(t, "a.mp3")
	path := filepath.Join(root, "a.mp3")

	files, err := library.Discover([]string{path, path, root}, library.Options{
		Extensions: []string{".mp3"},
	})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("duplicates survived: %v", files)
	}
}

func TestDiscoverMissingPath(t *testing.T) {
	_, err := library.Discover([]string{"/does/not/exist"}, library.Options{})
	if err == nil {
		t.Fatal("expected an error for a missing path")
	}
}
